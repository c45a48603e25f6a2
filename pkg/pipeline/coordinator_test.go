package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vobuild/vobuild/pkg/appgen"
	"github.com/vobuild/vobuild/pkg/fault"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTranscriber struct {
	text  string
	err   error
	seen  Stage
	block chan struct{}
	c     **Coordinator
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte) (string, error) {
	if f.c != nil {
		f.seen = (*f.c).Snapshot().Stage
	}
	if f.block != nil {
		<-f.block
	}
	return f.text, f.err
}

type fakeCoder struct {
	app      *appgen.App
	err      error
	patchErr error
	seen     Stage
	seenText string
	patches  []string
	inFlight int
	overlap  bool
	mu       sync.Mutex
	c        **Coordinator
}

func (f *fakeCoder) GenerateCode(context.Context, string) (*appgen.App, error) {
	if f.c != nil {
		snap := (*f.c).Snapshot()
		f.seen = snap.Stage
		f.seenText = snap.RecognizedText
	}
	return f.app, f.err
}

func (f *fakeCoder) PatchCode(_ context.Context, instruction, currentCode string) (string, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	f.patches = append(f.patches, instruction)
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.patchErr != nil {
		return "", f.patchErr
	}
	return currentCode + "\n// " + instruction, nil
}

type fakeIconMaker struct {
	ref  string
	err  error
	seen Stage
	c    **Coordinator
}

func (f *fakeIconMaker) GenerateIcon(context.Context, string) (string, error) {
	if f.c != nil {
		f.seen = (*f.c).Snapshot().Stage
	}
	return f.ref, f.err
}

type fakePackager struct {
	artifact *appgen.Artifact
	err      error
}

func (f *fakePackager) Package(context.Context, string) (*appgen.Artifact, error) {
	return f.artifact, f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(message string) {
	f.mu.Lock()
	f.messages = append(f.messages, message)
	f.mu.Unlock()
}

func newTestCoordinator(t *testing.T, tr *fakeTranscriber, co *fakeCoder, ic *fakeIconMaker, pk *fakePackager, no *fakeNotifier) *Coordinator {
	t.Helper()
	var c *Coordinator
	tr.c, co.c, ic.c = &c, &c, &c
	cfg := Config{
		Transcriber: tr,
		Coder:       co,
		IconMaker:   ic,
		Packager:    pk,
		SettleDelay: time.Hour,
		Logger:      quiet(),
	}
	if no != nil {
		cfg.Notifier = no
	}
	var err error
	c, err = New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func happyApp() *appgen.App {
	return &appgen.App{Name: "Todo", Code: "code v1"}
}

func happyFakes() (*fakeTranscriber, *fakeCoder, *fakeIconMaker, *fakePackager) {
	return &fakeTranscriber{text: "a todo app"},
		&fakeCoder{app: happyApp()},
		&fakeIconMaker{ref: "data:image/png;base64,AAAA"},
		&fakePackager{artifact: &appgen.Artifact{Success: true, URL: "https://builds.vobuild.dev/app.apk"}}
}

func TestProcessRecordingSuccess(t *testing.T) {
	tr, co, ic, pk := happyFakes()
	c := newTestCoordinator(t, tr, co, ic, pk, nil)

	if err := c.ProcessRecording(context.Background(), []byte("wav")); err != nil {
		t.Fatalf("ProcessRecording error: %v", err)
	}

	snap := c.Snapshot()
	if snap.Stage != StageComplete {
		t.Errorf("stage = %v; want %v", snap.Stage, StageComplete)
	}
	want := []string{"Transcribing audio", "Generating app code", "Generating app icon", "Build complete"}
	if len(snap.Log) != len(want) {
		t.Fatalf("log has %d entries (%q); want %d", len(snap.Log), snap.Log, len(want))
	}
	for i, line := range want {
		if snap.Log[i] != line {
			t.Errorf("log[%d] = %q; want %q", i, snap.Log[i], line)
		}
	}
	if snap.RecognizedText != "a todo app" || snap.AppName != "Todo" || snap.Code != "code v1" {
		t.Errorf("snapshot artifacts incomplete: %+v", snap)
	}
	if snap.Artifact == nil || !snap.Artifact.Success {
		t.Errorf("artifact = %+v; want a successful artifact", snap.Artifact)
	}
}

func TestProcessRecordingStageVisibleBeforeEachCall(t *testing.T) {
	tr, co, ic, pk := happyFakes()
	c := newTestCoordinator(t, tr, co, ic, pk, nil)

	if err := c.ProcessRecording(context.Background(), []byte("wav")); err != nil {
		t.Fatalf("ProcessRecording error: %v", err)
	}

	if tr.seen != StageTranscribing {
		t.Errorf("transcriber saw stage %v; want %v", tr.seen, StageTranscribing)
	}
	if co.seen != StageGeneratingCode {
		t.Errorf("coder saw stage %v; want %v", co.seen, StageGeneratingCode)
	}
	if co.seenText != "a todo app" {
		t.Errorf("coder saw text %q; want the recognized text", co.seenText)
	}
	if ic.seen != StageGeneratingIcon {
		t.Errorf("icon maker saw stage %v; want %v", ic.seen, StageGeneratingIcon)
	}
}

func TestProcessRecordingProviderFailure(t *testing.T) {
	tr, co, ic, pk := happyFakes()
	tr.text, tr.err = "", fault.FromStatus("groq", 500, "boom")
	no := &fakeNotifier{}
	c := newTestCoordinator(t, tr, co, ic, pk, no)

	err := c.ProcessRecording(context.Background(), []byte("wav"))
	if err == nil {
		t.Fatal("ProcessRecording should fail")
	}
	if kind := fault.KindOf(err); kind != fault.KindProvider {
		t.Errorf("kind = %q; want %q", kind, fault.KindProvider)
	}

	snap := c.Snapshot()
	if snap.Stage != StageFailed {
		t.Errorf("stage = %v; want %v", snap.Stage, StageFailed)
	}
	if snap.Err == nil {
		t.Error("snapshot error is nil")
	}
	last := snap.Log[len(snap.Log)-1]
	if !strings.HasPrefix(last, "error: ") {
		t.Errorf("last log entry = %q; want error prefix", last)
	}
	if len(no.messages) != 1 || !strings.HasPrefix(no.messages[0], "Build failed:") {
		t.Errorf("notifier got %q; want one generic failure message", no.messages)
	}
}

func TestProcessRecordingRateLimitMessage(t *testing.T) {
	tr, co, ic, pk := happyFakes()
	tr.text, tr.err = "", fault.FromStatus("groq", 429, "")
	no := &fakeNotifier{}
	c := newTestCoordinator(t, tr, co, ic, pk, no)

	if err := c.ProcessRecording(context.Background(), []byte("wav")); err == nil {
		t.Fatal("ProcessRecording should fail")
	}
	if len(no.messages) != 1 || !strings.Contains(no.messages[0], "rate limited") {
		t.Errorf("notifier got %q; want rate-limit wording", no.messages)
	}
}

func TestProcessRecordingRejectedWhileBusy(t *testing.T) {
	tr, co, ic, pk := happyFakes()
	tr.block = make(chan struct{})
	c := newTestCoordinator(t, tr, co, ic, pk, nil)

	done := make(chan error, 1)
	go func() { done <- c.ProcessRecording(context.Background(), []byte("wav")) }()

	// Wait for the first build to reach the transcriber.
	for c.Snapshot().Stage != StageTranscribing {
		time.Sleep(time.Millisecond)
	}

	err := c.ProcessRecording(context.Background(), []byte("other"))
	if kind := fault.KindOf(err); kind != fault.KindPipelineStage {
		t.Errorf("second build: kind = %q; want %q", kind, fault.KindPipelineStage)
	}

	close(tr.block)
	if err := <-done; err != nil {
		t.Fatalf("first build error: %v", err)
	}
}

func TestRetryResetsSession(t *testing.T) {
	tr, co, ic, pk := happyFakes()
	co.err = errors.New("model unavailable")
	c := newTestCoordinator(t, tr, co, ic, pk, nil)

	if err := c.ProcessRecording(context.Background(), []byte("wav")); err == nil {
		t.Fatal("ProcessRecording should fail")
	}
	if err := c.Retry(); err != nil {
		t.Fatalf("Retry error: %v", err)
	}

	snap := c.Snapshot()
	if snap.Stage != StageRecording {
		t.Errorf("stage = %v; want %v", snap.Stage, StageRecording)
	}
	if len(snap.Log) != 0 || snap.Err != nil || snap.RecognizedText != "" {
		t.Errorf("session not reset: %+v", snap)
	}

	// Retry outside the failed stage is rejected.
	if err := c.Retry(); err == nil {
		t.Error("Retry from recording stage should fail")
	}
}

func TestSettleMarksCompleteBuild(t *testing.T) {
	tr, co, ic, pk := happyFakes()
	var c *Coordinator
	tr.c, co.c, ic.c = &c, &c, &c
	var err error
	c, err = New(Config{
		Transcriber: tr,
		Coder:       co,
		IconMaker:   ic,
		Packager:    pk,
		SettleDelay: 10 * time.Millisecond,
		Logger:      quiet(),
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer c.Close()

	if err := c.ProcessRecording(context.Background(), []byte("wav")); err != nil {
		t.Fatalf("ProcessRecording error: %v", err)
	}
	if c.Snapshot().Settled {
		t.Error("session settled before the delay elapsed")
	}

	deadline := time.Now().Add(time.Second)
	for !c.Snapshot().Settled {
		if time.Now().After(deadline) {
			t.Fatal("session never settled")
		}
		time.Sleep(time.Millisecond)
	}

	// Settling is broadcast-only: the build stays complete with its
	// artifacts until the user acts.
	snap := c.Snapshot()
	if snap.Stage != StageComplete {
		t.Errorf("stage = %v; want %v", snap.Stage, StageComplete)
	}
	if snap.Artifact == nil || snap.Code == "" {
		t.Errorf("settle discarded artifacts: %+v", snap)
	}
}

func TestNewRecordingReplacesCompleteBuild(t *testing.T) {
	tr, co, ic, pk := happyFakes()
	c := newTestCoordinator(t, tr, co, ic, pk, nil)

	if err := c.ProcessRecording(context.Background(), []byte("wav")); err != nil {
		t.Fatalf("first ProcessRecording error: %v", err)
	}
	if got := c.Snapshot().Stage; got != StageComplete {
		t.Fatalf("stage = %v; want %v", got, StageComplete)
	}

	if err := c.ProcessRecording(context.Background(), []byte("wav2")); err != nil {
		t.Fatalf("second ProcessRecording error: %v", err)
	}
	snap := c.Snapshot()
	if snap.Stage != StageComplete || len(snap.Log) != 4 {
		t.Errorf("second build: stage = %v, log = %v; want a fresh complete build", snap.Stage, snap.Log)
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	tr, co, ic, pk := happyFakes()
	c := newTestCoordinator(t, tr, co, ic, pk, nil)

	ch, cancel := c.Subscribe()
	defer cancel()

	first := <-ch
	if first.Stage != StageRecording {
		t.Errorf("initial stage = %v; want %v", first.Stage, StageRecording)
	}

	if err := c.ProcessRecording(context.Background(), []byte("wav")); err != nil {
		t.Fatalf("ProcessRecording error: %v", err)
	}

	var last Snapshot
	for {
		select {
		case snap := <-ch:
			last = snap
			if snap.Stage == StageComplete {
				if len(snap.Log) != 4 {
					t.Errorf("complete snapshot has %d log entries; want 4", len(snap.Log))
				}
				return
			}
		default:
			t.Fatalf("never saw complete; last stage %v", last.Stage)
		}
	}
}
