// Package pipeline drives a voice-described app build through its stages:
// transcription, code generation, icon generation, and packaging. A
// Coordinator owns one build session, broadcasts state snapshots to
// subscribers, and serializes patch requests against the generated code.
package pipeline

import (
	"encoding/json"
	"fmt"
)

// Stage represents the build stage of a session.
type Stage int

const (
	StageRecording Stage = iota
	StageTranscribing
	StageGeneratingCode
	StageGeneratingIcon
	StageComplete
	StageFailed
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageRecording:
		return "recording"
	case StageTranscribing:
		return "transcribing"
	case StageGeneratingCode:
		return "generating_code"
	case StageGeneratingIcon:
		return "generating_icon"
	case StageComplete:
		return "complete"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Stage) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "recording":
		*s = StageRecording
	case "transcribing":
		*s = StageTranscribing
	case "generating_code":
		*s = StageGeneratingCode
	case "generating_icon":
		*s = StageGeneratingIcon
	case "complete":
		*s = StageComplete
	case "failed":
		*s = StageFailed
	default:
		return fmt.Errorf("pipeline: unknown stage %q", name)
	}
	return nil
}

// Busy returns true while a build is in flight. A busy session rejects
// new recordings.
func (s Stage) Busy() bool {
	switch s {
	case StageTranscribing, StageGeneratingCode, StageGeneratingIcon:
		return true
	default:
		return false
	}
}

// CanRecord returns true if a new recording may start the pipeline. A
// completed build can be replaced by recording again; a failed one must go
// through Retry first.
func (s Stage) CanRecord() bool {
	return s == StageRecording || s == StageComplete
}
