package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/vobuild/vobuild/pkg/fault"
)

// DefaultGroqURL is the Groq speech-to-text endpoint (OpenAI-compatible).
const DefaultGroqURL = "https://api.groq.com/openai/v1/audio/transcriptions"

// defaultGroqModel is the Whisper variant served by Groq.
const defaultGroqModel = "whisper-large-v3-turbo"

// Groq transcribes audio with Groq's hosted Whisper.
type Groq struct {
	// APIKey is required.
	APIKey string

	// Model defaults to whisper-large-v3-turbo.
	Model string

	// Language is an optional ISO-639-1 hint.
	Language string

	// BaseURL defaults to DefaultGroqURL.
	BaseURL string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

func (g *Groq) Name() string { return "groq" }

// Transcribe sends the recording as a multipart form upload.
func (g *Groq) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if g.APIKey == "" {
		return "", fault.New(fault.KindProvider, "groq API key not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("transcribe: build form: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("transcribe: build form: %w", err)
	}

	model := g.Model
	if model == "" {
		model = defaultGroqModel
	}
	writer.WriteField("model", model)
	writer.WriteField("response_format", "json")
	if g.Language != "" {
		writer.WriteField("language", g.Language)
	}
	writer.Close()

	url := g.BaseURL
	if url == "" {
		url = DefaultGroqURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("transcribe: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fault.Wrap(fault.KindProvider, fmt.Errorf("transcribe: groq request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fault.FromStatus("groq", resp.StatusCode, string(detail))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fault.Wrap(fault.KindProvider, fmt.Errorf("transcribe: decode groq response: %w", err))
	}
	return result.Text, nil
}
