package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vobuild/vobuild/pkg/appgen"
	"github.com/vobuild/vobuild/pkg/chat"
	"github.com/vobuild/vobuild/pkg/fault"
)

// DefaultSettleDelay is how long a completed build rests before its
// snapshot is marked settled and the preview is shown.
const DefaultSettleDelay = time.Second

// Transcriber converts a WAV recording to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Coder generates and patches app source code.
type Coder interface {
	GenerateCode(ctx context.Context, prompt string) (*appgen.App, error)
	PatchCode(ctx context.Context, instruction, currentCode string) (string, error)
}

// IconMaker generates an app icon and returns an image reference.
type IconMaker interface {
	GenerateIcon(ctx context.Context, prompt string) (string, error)
}

// Packager turns generated code into an installable artifact.
type Packager interface {
	Package(ctx context.Context, code string) (*appgen.Artifact, error)
}

// Notifier receives user-facing failure messages. Implementations must not
// block.
type Notifier interface {
	Notify(message string)
}

// Config configures a Coordinator.
type Config struct {
	Transcriber Transcriber
	Coder       Coder
	IconMaker   IconMaker
	Packager    Packager

	// Notifier is optional.
	Notifier Notifier

	// SettleDelay defaults to DefaultSettleDelay.
	SettleDelay time.Duration

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Coordinator owns one build session. It advances the session through the
// pipeline stages, appends one log line per transition, and broadcasts a
// snapshot after every change.
type Coordinator struct {
	id          string
	transcriber Transcriber
	coder       Coder
	iconMaker   IconMaker
	packager    Packager
	notifier    Notifier
	settle      time.Duration
	log         *slog.Logger

	mu      sync.Mutex
	sess    session
	subs    map[int]chan Snapshot
	nextSub int

	patches    chan patchJob
	quit       chan struct{}
	workerDone chan struct{}
	closeOnce  sync.Once
}

// New creates a Coordinator and starts its patch worker.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Transcriber == nil || cfg.Coder == nil || cfg.IconMaker == nil || cfg.Packager == nil {
		return nil, fmt.Errorf("pipeline: transcriber, coder, icon maker, and packager are required")
	}
	settle := cfg.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	c := &Coordinator{
		id:          uuid.New().String(),
		transcriber: cfg.Transcriber,
		coder:       cfg.Coder,
		iconMaker:   cfg.IconMaker,
		packager:    cfg.Packager,
		notifier:    cfg.Notifier,
		settle:      settle,
		subs:        make(map[int]chan Snapshot),
		patches:     make(chan patchJob),
		quit:        make(chan struct{}),
		workerDone:  make(chan struct{}),
	}
	c.log = log.With("session", c.id)
	go c.patchWorker()
	return c, nil
}

// ID returns the session identifier.
func (c *Coordinator) ID() string { return c.id }

// Snapshot returns the current session state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.snapshot(c.id)
}

// Messages returns the patch conversation so far.
func (c *Coordinator) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Message, len(c.sess.transcript))
	copy(out, c.sess.transcript)
	return out
}

// Subscribe registers a snapshot channel. The current state is delivered
// immediately; later snapshots are dropped if the subscriber falls behind.
// The returned cancel function unregisters and closes the channel.
func (c *Coordinator) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Snapshot, 16)
	c.subs[id] = ch
	ch <- c.sess.snapshot(c.id)

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// ProcessRecording runs a finished recording through the full pipeline:
// transcription, code generation, icon generation, and packaging. On any
// failure the session moves to StageFailed and the error is returned. On
// success the session reaches StageComplete and is marked settled after
// SettleDelay; a new recording replaces the completed build.
func (c *Coordinator) ProcessRecording(ctx context.Context, wav []byte) error {
	c.mu.Lock()
	if !c.sess.stage.CanRecord() {
		stage := c.sess.stage
		c.mu.Unlock()
		return fault.New(fault.KindPipelineStage, "cannot start a build while %s", stage)
	}
	c.sess.reset()
	c.advanceLocked(StageTranscribing, "Transcribing audio")
	c.mu.Unlock()

	text, err := c.transcriber.Transcribe(ctx, wav)
	if err != nil {
		return c.fail(err)
	}
	c.log.Info("transcription complete", "chars", len(text))

	c.mu.Lock()
	c.sess.recognizedText = text
	c.advanceLocked(StageGeneratingCode, "Generating app code")
	c.mu.Unlock()

	app, err := c.coder.GenerateCode(ctx, text)
	if err != nil {
		return c.fail(err)
	}
	c.log.Info("code generated", "app", app.Name, "chars", len(app.Code))

	c.mu.Lock()
	c.sess.appName = app.Name
	c.sess.code = app.Code
	c.advanceLocked(StageGeneratingIcon, "Generating app icon")
	c.mu.Unlock()

	iconRef, err := c.iconMaker.GenerateIcon(ctx, text)
	if err != nil {
		return c.fail(err)
	}

	artifact, err := c.packager.Package(ctx, app.Code)
	if err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	c.sess.iconRef = iconRef
	c.sess.artifact = artifact
	c.advanceLocked(StageComplete, "Build complete")
	c.mu.Unlock()

	c.scheduleSettle()
	return nil
}

// Retry returns a failed session to the recording stage. Artifacts and the
// log from the failed build are discarded.
func (c *Coordinator) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.stage != StageFailed {
		return fault.New(fault.KindPipelineStage, "retry is only valid after a failure, session is %s", c.sess.stage)
	}
	c.sess.reset()
	c.broadcastLocked()
	return nil
}

// Close stops the patch worker and closes all subscriber channels.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
		<-c.workerDone

		c.mu.Lock()
		for id, sub := range c.subs {
			delete(c.subs, id)
			close(sub)
		}
		c.mu.Unlock()
	})
	return nil
}

// advanceLocked moves the session to stage, appends one log line, and
// broadcasts. The log line is recorded before the broadcast so subscribers
// never see a stage without its entry.
func (c *Coordinator) advanceLocked(stage Stage, line string) {
	c.sess.stage = stage
	c.sess.log = append(c.sess.log, line)
	c.sess.updatedAt = time.Now()
	c.broadcastLocked()
}

func (c *Coordinator) broadcastLocked() {
	snap := c.sess.snapshot(c.id)
	for _, sub := range c.subs {
		select {
		case sub <- snap:
		default:
		}
	}
}

func (c *Coordinator) fail(err error) error {
	fe := fault.Wrap(fault.KindPipelineStage, err)
	c.log.Warn("build failed", "kind", fe.Kind, "err", err)

	c.mu.Lock()
	c.sess.lastErr = fe
	c.sess.stage = StageFailed
	c.sess.log = append(c.sess.log, "error: "+fe.Message)
	c.sess.updatedAt = time.Now()
	c.broadcastLocked()
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.Notify(userMessage(fe))
	}
	return fe
}

// scheduleSettle marks the completed build settled after the settle delay
// and broadcasts, so subscribers show the preview only once the final stage
// has rested on screen. The stage itself does not change.
func (c *Coordinator) scheduleSettle() {
	time.AfterFunc(c.settle, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.sess.stage != StageComplete || c.sess.settled {
			return
		}
		c.sess.settled = true
		c.sess.updatedAt = time.Now()
		c.broadcastLocked()
	})
}

// userMessage maps a failure to the text shown to the user. Rate-limit and
// quota failures get actionable wording.
func userMessage(fe *fault.Error) string {
	switch fe.Kind {
	case fault.KindRateLimited:
		return "The transcription service is rate limited right now. Wait a moment and try again."
	case fault.KindQuotaExhausted:
		return "The transcription service quota is exhausted. Check your account credits."
	case fault.KindTranscriptionEmpty:
		return "No speech was recognized. Try speaking again."
	case fault.KindDevice:
		return "The microphone is unavailable. Check device permissions."
	default:
		return "Build failed: " + fe.Message
	}
}
