package pipeline

import (
	"time"

	"github.com/vobuild/vobuild/pkg/appgen"
	"github.com/vobuild/vobuild/pkg/chat"
	"github.com/vobuild/vobuild/pkg/fault"
)

// session is the mutable build state owned by a Coordinator. All access
// goes through the Coordinator's mutex.
type session struct {
	stage          Stage
	recognizedText string
	appName        string
	code           string
	iconRef        string
	artifact       *appgen.Artifact
	log            []string
	transcript     []chat.Message
	lastErr        *fault.Error
	settled        bool
	updatedAt      time.Time
}

// Snapshot is an immutable view of a build session, broadcast to
// subscribers on every state change.
type Snapshot struct {
	ID             string           `json:"id"`
	Stage          Stage            `json:"stage"`
	RecognizedText string           `json:"recognized_text,omitempty"`
	AppName        string           `json:"app_name,omitempty"`
	Code           string           `json:"code,omitempty"`
	IconRef        string           `json:"icon_ref,omitempty"`
	Artifact       *appgen.Artifact `json:"artifact,omitempty"`
	Log            []string         `json:"log"`
	Err            *fault.Error     `json:"error,omitempty"`

	// Settled is set once a completed build has rested for the settle
	// delay and its preview is ready to show.
	Settled bool `json:"settled,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (s *session) snapshot(id string) Snapshot {
	logCopy := make([]string, len(s.log))
	copy(logCopy, s.log)
	return Snapshot{
		ID:             id,
		Stage:          s.stage,
		RecognizedText: s.recognizedText,
		AppName:        s.appName,
		Code:           s.code,
		IconRef:        s.iconRef,
		Artifact:       s.artifact,
		Log:            logCopy,
		Err:            s.lastErr,
		Settled:        s.settled,
		UpdatedAt:      s.updatedAt,
	}
}

// reset clears build artifacts and the log, returning the session to the
// recording stage.
func (s *session) reset() {
	s.stage = StageRecording
	s.recognizedText = ""
	s.appName = ""
	s.code = ""
	s.iconRef = ""
	s.artifact = nil
	s.log = nil
	s.lastErr = nil
	s.settled = false
	s.updatedAt = time.Now()
}
