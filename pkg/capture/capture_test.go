package capture

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/vobuild/vobuild/pkg/fault"
)

// sine returns one PCM frame of a sine wave at the given amplitude.
func sine(samples int, amplitude float64) []byte {
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(amplitude * 32767 * math.Sin(float64(i)/8))
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

func TestRecorderStartStop(t *testing.T) {
	audio := &Fake{}
	rec := NewRecorder(audio)

	if err := rec.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if !rec.Recording() {
		t.Fatal("Recording() = false after Start")
	}

	devs := audio.Devices()
	if len(devs) != 1 {
		t.Fatalf("got %d devices; want 1", len(devs))
	}
	devs[0].Feed(sine(480, 0.5))
	devs[0].Feed(sine(480, 0.5))

	wav, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if len(wav) <= wavHeaderSize {
		t.Fatalf("blob too small: %d bytes", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("blob is not a WAV container")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != outputRate {
		t.Errorf("blob sample rate = %d; want %d", rate, outputRate)
	}
	if !devs[0].Closed() {
		t.Error("device not released by Stop")
	}
	if rec.Recording() {
		t.Error("Recording() = true after Stop")
	}
}

func TestRecorderStopIdempotent(t *testing.T) {
	audio := &Fake{}
	rec := NewRecorder(audio)

	completions := 0
	rec.OnComplete = func([]byte) { completions++ }

	if err := rec.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	audio.Devices()[0].Feed(sine(480, 0.3))

	if _, err := rec.Stop(); err != nil {
		t.Fatalf("first Stop error: %v", err)
	}
	wav, err := rec.Stop()
	if err != nil {
		t.Fatalf("second Stop error: %v", err)
	}
	if wav != nil {
		t.Error("second Stop returned a blob; want nil")
	}
	if completions != 1 {
		t.Errorf("OnComplete invoked %d times; want 1", completions)
	}
}

func TestRecorderDeviceError(t *testing.T) {
	audio := &Fake{OpenErr: errors.New("permission denied")}
	rec := NewRecorder(audio)

	err := rec.Start()
	if err == nil {
		t.Fatal("Start should fail when the device cannot be opened")
	}
	if kind := fault.KindOf(err); kind != fault.KindDevice {
		t.Errorf("error kind = %q; want %q", kind, fault.KindDevice)
	}
	if rec.Recording() {
		t.Error("Recording() = true after failed Start")
	}
}

func TestRecorderLevelBounds(t *testing.T) {
	audio := &Fake{}
	rec := NewRecorder(audio)

	if err := rec.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	dev := audio.Devices()[0]

	if got := rec.Level(); got != 0 {
		t.Errorf("initial level = %v; want 0", got)
	}

	// Full-scale, silence, and garbage frames must all keep the level in range.
	frames := [][]byte{
		sine(480, 1.0),
		make([]byte, 960),
		{0xff, 0x7f, 0x00, 0x80, 0xff, 0x7f},
	}
	for _, f := range frames {
		dev.Feed(f)
		if l := rec.Level(); l < 0 || l > 1 {
			t.Fatalf("level %v out of [0,1]", l)
		}
	}
	if l := rec.Level(); l == 0 {
		t.Error("level did not move after loud frames")
	}

	rec.Stop()
	if l := rec.Level(); l != 0 {
		t.Errorf("level after Stop = %v; want 0", l)
	}
}

func TestRecorderCloseDiscards(t *testing.T) {
	audio := &Fake{}
	rec := NewRecorder(audio)

	if err := rec.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	audio.Devices()[0].Feed(sine(480, 0.5))

	if err := rec.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !audio.Devices()[0].Closed() {
		t.Error("device not released by Close")
	}
	if wav, _ := rec.Stop(); wav != nil {
		t.Error("Stop after Close returned a blob; want nil")
	}
}

func TestEncodeWAV(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	wav := EncodeWAV(pcm, 16000, 1)

	if len(wav) != wavHeaderSize+len(pcm) {
		t.Fatalf("length = %d; want %d", len(wav), wavHeaderSize+len(pcm))
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data chunk size = %d; want %d", got, len(pcm))
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("channels = %d; want 1", got)
	}
}

func TestResamplePassthrough(t *testing.T) {
	pcm := sine(480, 0.5)
	out, err := Resample(pcm, 16000, 16000, 1)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	if len(out) != len(pcm) {
		t.Errorf("passthrough length = %d; want %d", len(out), len(pcm))
	}
}
