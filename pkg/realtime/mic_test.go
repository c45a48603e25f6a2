package realtime

import (
	"testing"

	"github.com/vobuild/vobuild/pkg/capture"
)

func TestMicrophoneStartStop(t *testing.T) {
	audio := &capture.Fake{}
	mic, err := NewMicrophone(audio, quiet())
	if err != nil {
		t.Fatalf("NewMicrophone error: %v", err)
	}
	if mic.Track() == nil {
		t.Fatal("Track is nil")
	}

	if err := mic.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	devices := audio.Devices()
	if len(devices) != 1 || !devices[0].Started() {
		t.Fatalf("devices = %+v; want one started device", devices)
	}

	// Feeding a frame must not panic even with no peer connection bound.
	devices[0].Feed(make([]byte, 960))

	if err := mic.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !devices[0].Closed() {
		t.Error("device not released on Close")
	}
	if err := mic.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}

func TestMulawKnownValues(t *testing.T) {
	tests := []struct {
		sample int16
		want   byte
	}{
		{0, 0xFF},
		{32767, 0x80},
		{-32768, 0x00},
	}
	for _, tt := range tests {
		if got := mulawByte(tt.sample); got != tt.want {
			t.Errorf("mulawByte(%d) = %#02x; want %#02x", tt.sample, got, tt.want)
		}
	}
}

func TestEncodeMulawLength(t *testing.T) {
	pcm := make([]byte, 320)
	out := encodeMulaw(pcm)
	if len(out) != 160 {
		t.Errorf("encoded %d bytes; want one byte per sample (160)", len(out))
	}
}
