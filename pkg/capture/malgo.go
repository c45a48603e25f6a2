package capture

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// System returns a Context backed by the miniaudio library.
func System() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: init audio context: %w", err)
	}
	return &malgoContext{ctx: ctx}, nil
}

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func (m *malgoContext) OpenCapture(cfg Config, data DataFunc) (Device, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = cfg.Channels
	deviceConfig.SampleRate = cfg.SampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, in []byte, frameCount uint32) {
			data(in)
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("capture: open device: %w", err)
	}
	return &malgoDevice{dev: dev}, nil
}

func (m *malgoContext) OpenPlayback(cfg Config, supply SupplyFunc) (Device, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = cfg.Channels
	deviceConfig.SampleRate = cfg.SampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			supply(out)
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("capture: open playback device: %w", err)
	}
	return &malgoDevice{dev: dev}, nil
}

func (m *malgoContext) Close() error {
	if err := m.ctx.Uninit(); err != nil {
		return err
	}
	m.ctx.Free()
	return nil
}

type malgoDevice struct {
	dev       *malgo.Device
	closeOnce sync.Once
}

func (d *malgoDevice) Start() error {
	return d.dev.Start()
}

func (d *malgoDevice) Stop() error {
	return d.dev.Stop()
}

func (d *malgoDevice) Close() error {
	d.closeOnce.Do(func() {
		d.dev.Uninit()
	})
	return nil
}
