package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vobuild/vobuild/pkg/fault"
)

// OpenAI transcribes audio with the OpenAI Whisper API. Typically configured
// as the secondary provider behind Groq.
type OpenAI struct {
	// APIKey is required.
	APIKey string

	// Language is an optional ISO-639-1 hint.
	Language string

	// BaseURL overrides the API endpoint (for tests).
	BaseURL string
}

func (o *OpenAI) Name() string { return "openai" }

// Transcribe sends the recording to the Whisper transcription endpoint.
func (o *OpenAI) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if o.APIKey == "" {
		return "", fault.New(fault.KindProvider, "openai API key not configured")
	}

	opts := []option.RequestOption{option.WithAPIKey(o.APIKey)}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	client := openai.NewClient(opts...)

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
		Model: openai.AudioModelWhisper1,
	}
	if o.Language != "" {
		params.Language = openai.String(o.Language)
	}

	resp, err := client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return "", fault.FromStatus("openai", apierr.StatusCode, apierr.Message)
		}
		return "", fault.Wrap(fault.KindProvider, fmt.Errorf("transcribe: openai request: %w", err))
	}
	return resp.Text, nil
}
