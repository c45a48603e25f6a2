// Package capture records microphone audio into a single WAV blob.
//
// A Recorder owns the microphone exclusively between Start and Stop. While
// recording it exposes a normalized input level for visual feedback; the
// level has no effect on correctness. Stop finalizes the buffered audio into
// one 16 kHz mono WAV blob and hands it to the caller exactly once.
package capture

import (
	"bytes"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/vobuild/vobuild/pkg/fault"
)

const (
	// captureRate is the rate requested from the device.
	captureRate = 48000

	// outputRate is the rate of the finalized blob, matching what the
	// transcription providers expect.
	outputRate = 16000

	// levelSmoothing is the EMA coefficient for the input level meter.
	levelSmoothing = 0.3
)

// Recorder records from a capture device into an in-memory buffer.
// Safe for concurrent use.
type Recorder struct {
	audio Context

	// OnComplete, when set, receives the finalized WAV blob. It is invoked
	// at most once per recording, from the Stop call.
	OnComplete func(wav []byte)

	mu        sync.Mutex
	dev       Device
	buf       bytes.Buffer
	recording bool

	level atomic.Uint64 // float64 bits
}

// NewRecorder creates a Recorder on the given audio context.
func NewRecorder(audio Context) *Recorder {
	return &Recorder{audio: audio}
}

// Start acquires the capture device and begins recording. Returns a device
// fault if no device exists or permission is denied. Starting while already
// recording is an error.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return fmt.Errorf("capture: already recording")
	}

	dev, err := r.audio.OpenCapture(Config{SampleRate: captureRate, Channels: 1}, r.onData)
	if err != nil {
		return fault.Wrap(fault.KindDevice, fmt.Errorf("capture: microphone unavailable: %w", err))
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		return fault.Wrap(fault.KindDevice, fmt.Errorf("capture: start device: %w", err))
	}

	r.buf.Reset()
	r.dev = dev
	r.recording = true
	return nil
}

// Stop finalizes the recording into a 16 kHz mono WAV blob, releases the
// device, and returns the blob. If OnComplete is set it is invoked with the
// same blob. Calling Stop when not recording is a no-op returning nil.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil, nil
	}
	r.releaseLocked()

	pcm, err := Resample(r.buf.Bytes(), captureRate, outputRate, 1)
	if err != nil {
		return nil, err
	}
	wav := EncodeWAV(pcm, outputRate, 1)

	if r.OnComplete != nil {
		r.OnComplete(wav)
	}
	return wav, nil
}

// Close releases the device without finalizing. Buffered audio is discarded.
// Safe to call at any time, including when not recording.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked()
	r.buf.Reset()
	return nil
}

// Recording reports whether a recording is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Level returns the current normalized input level in [0, 1]. Zero when not
// recording.
func (r *Recorder) Level() float64 {
	return math.Float64frombits(r.level.Load())
}

// releaseLocked stops and closes the device and zeroes the level meter.
func (r *Recorder) releaseLocked() {
	if r.dev != nil {
		r.dev.Stop()
		r.dev.Close()
		r.dev = nil
	}
	r.recording = false
	r.level.Store(math.Float64bits(0))
}

// onData runs on the device's audio thread: it buffers the frame and updates
// the level meter.
func (r *Recorder) onData(pcm []byte) {
	r.mu.Lock()
	if r.recording {
		r.buf.Write(pcm)
	}
	r.mu.Unlock()

	r.updateLevel(pcm)
}

func (r *Recorder) updateLevel(pcm []byte) {
	n := len(pcm) / 2
	if n == 0 {
		return
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(pcm[i*2])|int16(pcm[i*2+1])<<8) / 32768.0
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(n))
	if rms > 1 {
		rms = 1
	}

	prev := math.Float64frombits(r.level.Load())
	next := prev + levelSmoothing*(rms-prev)
	r.level.Store(math.Float64bits(next))
}
