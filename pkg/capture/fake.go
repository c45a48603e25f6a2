package capture

import "sync"

// Fake is an in-memory Context for tests. Frames pushed with Feed are
// delivered to the recorder's data callback as if they came from a device;
// Pull drains a playback device's supply callback the same way.
type Fake struct {
	// OpenErr, when set, is returned by OpenCapture and OpenPlayback. Used
	// to simulate a missing device or denied permission.
	OpenErr error

	mu      sync.Mutex
	devices []*FakeDevice
	closed  bool
}

// OpenCapture implements Context.
func (f *Fake) OpenCapture(cfg Config, data DataFunc) (Device, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &FakeDevice{data: data}
	f.devices = append(f.devices, d)
	return d, nil
}

// OpenPlayback implements Context.
func (f *Fake) OpenPlayback(cfg Config, supply SupplyFunc) (Device, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &FakeDevice{supply: supply}
	f.devices = append(f.devices, d)
	return d, nil
}

// Close implements Context.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Devices returns every device opened through this context.
func (f *Fake) Devices() []*FakeDevice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeDevice(nil), f.devices...)
}

// FakeDevice is the Device returned by Fake. Exactly one of data or supply
// is set, depending on which direction the device was opened for.
type FakeDevice struct {
	mu      sync.Mutex
	data    DataFunc
	supply  SupplyFunc
	started bool
	stopped bool
	closed  bool
}

func (d *FakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = true
	return nil
}

func (d *FakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *FakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Feed delivers a PCM frame to the data callback, as the audio thread would.
// No-op once the device is stopped or closed.
func (d *FakeDevice) Feed(pcm []byte) {
	d.mu.Lock()
	cb := d.data
	active := d.started && !d.stopped && !d.closed
	d.mu.Unlock()
	if active && cb != nil {
		cb(pcm)
	}
}

// Pull drains n bytes from a playback device's supply callback, as the
// audio thread would. Returns silence once the device is stopped or closed.
func (d *FakeDevice) Pull(n int) []byte {
	out := make([]byte, n)
	d.mu.Lock()
	cb := d.supply
	active := d.started && !d.stopped && !d.closed
	d.mu.Unlock()
	if active && cb != nil {
		cb(out)
	}
	return out
}

// Started reports whether Start was called.
func (d *FakeDevice) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// Closed reports whether Close was called.
func (d *FakeDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
