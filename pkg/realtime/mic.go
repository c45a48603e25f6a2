package realtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"

	"github.com/vobuild/vobuild/pkg/capture"
)

const (
	// micRate is the microphone capture rate. The agent expects speech
	// quality input; 24 kHz mono matches its input format.
	micRate = 24000

	// trackRate is the wire rate of the local track. G.711 mu-law runs at
	// 8 kHz.
	trackRate = 8000
)

// Microphone captures local audio and feeds it to a WebRTC track as G.711
// mu-law samples. It owns the capture device from Start until Close.
type Microphone struct {
	audio capture.Context
	track *webrtc.TrackLocalStaticSample
	log   *slog.Logger

	mu        sync.Mutex
	dev       capture.Device
	closeOnce sync.Once
}

// NewMicrophone creates a microphone track source. The device is not
// opened until Start.
func NewMicrophone(audio capture.Context, logger *slog.Logger) (*Microphone, error) {
	if logger == nil {
		logger = slog.Default()
	}
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypePCMU,
		ClockRate: trackRate,
		Channels:  1,
	}, "audio", "vobuild-mic")
	if err != nil {
		return nil, fmt.Errorf("realtime: create local track: %w", err)
	}
	return &Microphone{audio: audio, track: track, log: logger}, nil
}

// Track returns the local track to attach to a peer connection.
func (m *Microphone) Track() *webrtc.TrackLocalStaticSample {
	return m.track
}

// Start opens the capture device and begins streaming.
func (m *Microphone) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev != nil {
		return nil
	}

	dev, err := m.audio.OpenCapture(capture.Config{
		SampleRate: micRate,
		Channels:   1,
	}, m.onData)
	if err != nil {
		return fmt.Errorf("realtime: open microphone: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		return fmt.Errorf("realtime: start microphone: %w", err)
	}
	m.dev = dev
	return nil
}

// Close stops and releases the capture device. Idempotent.
func (m *Microphone) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		dev := m.dev
		m.dev = nil
		m.mu.Unlock()
		if dev != nil {
			dev.Stop()
			err = dev.Close()
		}
	})
	return err
}

// onData downsamples a captured frame to the wire rate, encodes it as
// mu-law, and writes it to the track.
func (m *Microphone) onData(pcm []byte) {
	down, err := capture.Resample(pcm, micRate, trackRate, 1)
	if err != nil || len(down) == 0 {
		return
	}
	encoded := encodeMulaw(down)
	err = m.track.WriteSample(media.Sample{
		Data:     encoded,
		Duration: time.Duration(len(encoded)) * time.Second / trackRate,
	})
	if err != nil {
		m.log.Debug("dropping mic sample", "err", err)
	}
}
