package pipeline

import (
	"encoding/json"
	"testing"
)

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageRecording, "recording"},
		{StageTranscribing, "transcribing"},
		{StageGeneratingCode, "generating_code"},
		{StageGeneratingIcon, "generating_icon"},
		{StageComplete, "complete"},
		{StageFailed, "failed"},
		{Stage(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q; want %q", tt.stage, got, tt.want)
		}
	}
}

func TestStageJSONRoundTrip(t *testing.T) {
	for _, stage := range []Stage{StageRecording, StageTranscribing, StageGeneratingCode, StageGeneratingIcon, StageComplete, StageFailed} {
		b, err := json.Marshal(stage)
		if err != nil {
			t.Fatalf("marshal %v: %v", stage, err)
		}
		var got Stage
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if got != stage {
			t.Errorf("round trip %v -> %v", stage, got)
		}
	}
}

func TestStageBusy(t *testing.T) {
	busy := map[Stage]bool{
		StageRecording:      false,
		StageTranscribing:   true,
		StageGeneratingCode: true,
		StageGeneratingIcon: true,
		StageComplete:       false,
		StageFailed:         false,
	}
	for stage, want := range busy {
		if got := stage.Busy(); got != want {
			t.Errorf("%v.Busy() = %v; want %v", stage, got, want)
		}
	}
	if !StageRecording.CanRecord() {
		t.Error("recording stage should accept a new recording")
	}
	if !StageComplete.CanRecord() {
		t.Error("a completed build should accept a replacement recording")
	}
	if StageFailed.CanRecord() {
		t.Error("failed stage should not accept a new recording before retry")
	}
}

func TestStageUnmarshalUnknownName(t *testing.T) {
	var s Stage
	if err := json.Unmarshal([]byte(`"archived"`), &s); err == nil {
		t.Error("unknown stage name should not decode")
	}
}
