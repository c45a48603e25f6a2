package realtime

import (
	"fmt"
	"sync"

	"github.com/vobuild/vobuild/pkg/capture"
)

// maxQueuedPlayback caps the playback queue at two seconds of PCM. When the
// agent outruns the output device, the oldest audio is dropped.
const maxQueuedPlayback = trackRate * 2 * 2

// Speaker plays the agent's audio on the host output device. Decoded frames
// are queued with Play and drained by the device callback. It owns the
// playback device from Start until Close.
type Speaker struct {
	audio capture.Context

	mu        sync.Mutex
	dev       capture.Device
	queue     []byte
	closeOnce sync.Once
}

// NewSpeaker creates a speaker. The device is not opened until Start.
func NewSpeaker(audio capture.Context) *Speaker {
	return &Speaker{audio: audio}
}

// Start opens the playback device and begins draining the queue.
func (s *Speaker) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev != nil {
		return nil
	}

	dev, err := s.audio.OpenPlayback(capture.Config{
		SampleRate: trackRate,
		Channels:   1,
	}, s.supply)
	if err != nil {
		return fmt.Errorf("realtime: open speaker: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		return fmt.Errorf("realtime: start speaker: %w", err)
	}
	s.dev = dev
	return nil
}

// Play queues a 16-bit little-endian PCM frame at the wire rate.
func (s *Speaker) Play(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, pcm...)
	if over := len(s.queue) - maxQueuedPlayback; over > 0 {
		s.queue = s.queue[over:]
	}
}

// supply fills out from the queue; the remainder stays zeroed (silence).
func (s *Speaker) supply(out []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(out, s.queue)
	s.queue = s.queue[n:]
}

// Close stops and releases the playback device. Idempotent.
func (s *Speaker) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		dev := s.dev
		s.dev = nil
		s.queue = nil
		s.mu.Unlock()
		if dev != nil {
			dev.Stop()
			err = dev.Close()
		}
	})
	return err
}
