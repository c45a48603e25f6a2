package realtime

import (
	"bytes"
	"testing"

	"github.com/vobuild/vobuild/pkg/capture"
)

func TestSpeakerPlaysQueuedAudio(t *testing.T) {
	audio := &capture.Fake{}
	spk := NewSpeaker(audio)

	if err := spk.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	devices := audio.Devices()
	if len(devices) != 1 || !devices[0].Started() {
		t.Fatalf("devices = %+v; want one started playback device", devices)
	}

	spk.Play([]byte{1, 2, 3, 4})
	spk.Play([]byte{5, 6})

	if got := devices[0].Pull(4); !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("first pull = %v; want 1 2 3 4", got)
	}
	if got := devices[0].Pull(4); !bytes.Equal(got, []byte{5, 6, 0, 0}) {
		t.Errorf("second pull = %v; want 5 6 followed by silence", got)
	}

	if err := spk.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !devices[0].Closed() {
		t.Error("device not released on Close")
	}
	if err := spk.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}

func TestSpeakerQueueDropsOldest(t *testing.T) {
	audio := &capture.Fake{}
	spk := NewSpeaker(audio)
	if err := spk.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer spk.Close()

	old := bytes.Repeat([]byte{0xAA}, maxQueuedPlayback)
	spk.Play(old)
	spk.Play([]byte{1, 2, 3, 4})

	dev := audio.Devices()[0]
	drained := dev.Pull(maxQueuedPlayback)
	if drained[0] != 0xAA {
		t.Errorf("queue head = %#02x; want the surviving old audio", drained[0])
	}
	tail := drained[len(drained)-4:]
	if !bytes.Equal(tail, []byte{1, 2, 3, 4}) {
		t.Errorf("queue tail = %v; want the newest frame kept", tail)
	}
}

func TestDecodeMulawKnownValues(t *testing.T) {
	tests := []struct {
		in   byte
		want int16
	}{
		{0xFF, 0},
		{0x80, 32124},
		{0x00, -32124},
	}
	for _, tt := range tests {
		if got := mulawSample(tt.in); got != tt.want {
			t.Errorf("mulawSample(%#02x) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestDecodeMulawLength(t *testing.T) {
	out := decodeMulaw(make([]byte, 160))
	if len(out) != 320 {
		t.Errorf("decoded %d bytes; want two bytes per sample (320)", len(out))
	}
}
