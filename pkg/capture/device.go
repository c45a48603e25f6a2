package capture

// DataFunc receives raw PCM from the capture device. Samples are 16-bit
// signed little-endian at the configured rate and channel count. The callback
// runs on the device's audio thread and must not block.
type DataFunc func(pcm []byte)

// SupplyFunc fills out with raw PCM for a playback device. The callback runs
// on the device's audio thread and must not block; any portion it cannot
// fill should be left zeroed (silence).
type SupplyFunc func(out []byte)

// Config describes the capture format requested from a device.
type Config struct {
	// SampleRate in Hz (e.g. 48000).
	SampleRate uint32

	// Channels is the channel count (1 for mono).
	Channels uint32
}

// Device is an open capture or playback stream.
type Device interface {
	// Start begins delivering audio to the data callback.
	Start() error

	// Stop halts delivery. The device can be restarted.
	Stop() error

	// Close releases the device. The device cannot be reused after Close.
	Close() error
}

// Context provides access to the host's audio devices. The real
// implementation is backed by miniaudio; tests use a Fake.
type Context interface {
	// OpenCapture opens the default capture device with the given config.
	// Audio is delivered to data once the device is started.
	OpenCapture(cfg Config, data DataFunc) (Device, error)

	// OpenPlayback opens the default playback device with the given config.
	// Once started, the device pulls audio from supply.
	OpenPlayback(cfg Config, supply SupplyFunc) (Device, error)

	// Close releases the audio backend.
	Close() error
}
