// Package appgen generates mobile-app source code and icons from natural
// language prompts, and packages generated code into an installable artifact
// through an external build service.
package appgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/vobuild/vobuild/pkg/fault"
)

const (
	// DefaultCodeModel generates and patches app source code.
	DefaultCodeModel = "gemini-2.5-flash"

	// DefaultIconModel generates app icons (image output modality).
	DefaultIconModel = "gemini-2.5-flash-image-preview"
)

const codeSystemPrompt = `You are an expert mobile app developer.
Produce complete, production-ready React Native source code for an Android
app matching the user's description. Include every required component.
Respond with a single JSON object: {"app_name": "...", "code": "..."}.`

const patchSystemPrompt = `You are an expert mobile app developer working on
an existing React Native Android app. Analyze the current code carefully,
apply the requested change precisely, keep the existing structure, and
return the complete updated source code. Return only code.`

const iconPromptTemplate = `Create a modern, professional app icon for: %s.
The icon must be simple and memorable, use vivid colors, contain no text,
and be a square suitable for Android adaptive icons.`

// App is the result of code generation.
type App struct {
	// Name is the model-suggested application name.
	Name string `json:"app_name"`

	// Code is the complete generated source text.
	Code string `json:"code"`
}

// generateFunc matches genai's Models.GenerateContent. Replaced in tests.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Generator produces app code and icons with Gemini models.
type Generator struct {
	// CodeModel defaults to DefaultCodeModel.
	CodeModel string

	// IconModel defaults to DefaultIconModel.
	IconModel string

	generate generateFunc
}

// NewGenerator creates a Generator authenticated with the given API key.
func NewGenerator(ctx context.Context, apiKey string) (*Generator, error) {
	if apiKey == "" {
		return nil, fault.New(fault.KindProvider, "gemini API key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("appgen: create client: %w", err)
	}
	return &Generator{generate: client.Models.GenerateContent}, nil
}

// GenerateCode produces a complete app from the user's description.
func (g *Generator) GenerateCode(ctx context.Context, prompt string) (*App, error) {
	text, err := g.generateText(ctx, g.codeModel(), codeSystemPrompt,
		fmt.Sprintf("Create a complete Android app for the following description: %s", prompt))
	if err != nil {
		return nil, err
	}

	var app App
	if err := unmarshalModelJSON([]byte(stripFences(text)), &app); err != nil {
		// Some responses skip the JSON wrapper and return bare code.
		return &App{Code: stripFences(text)}, nil
	}
	if strings.TrimSpace(app.Code) == "" {
		return nil, fault.New(fault.KindProvider, "code generation returned no code")
	}
	return &app, nil
}

// PatchCode applies a change instruction to existing code and returns the
// complete replacement. The caller keeps the previous code on error.
func (g *Generator) PatchCode(ctx context.Context, instruction, currentCode string) (string, error) {
	text, err := g.generateText(ctx, g.codeModel(), patchSystemPrompt,
		fmt.Sprintf("Current code:\n\n%s\n\nRequested change: %s", currentCode, instruction))
	if err != nil {
		return "", err
	}
	code := stripFences(text)
	if strings.TrimSpace(code) == "" {
		return "", fault.New(fault.KindProvider, "code patch returned no code")
	}
	return code, nil
}

// GenerateIcon produces an app icon for the prompt and returns it as an
// image reference (data URL).
func (g *Generator) GenerateIcon(ctx context.Context, prompt string) (string, error) {
	model := g.IconModel
	if model == "" {
		model = DefaultIconModel
	}

	resp, err := g.generate(ctx, model, []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: fmt.Sprintf(iconPromptTemplate, prompt)}},
	}}, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return "", wrapGenaiErr(err)
	}

	ref := imageRef(resp)
	if ref == "" {
		return "", fault.New(fault.KindProvider, "icon generation returned no image")
	}
	return ref, nil
}

func (g *Generator) codeModel() string {
	if g.CodeModel != "" {
		return g.CodeModel
	}
	return DefaultCodeModel
}

func (g *Generator) generateText(ctx context.Context, model, system, prompt string) (string, error) {
	resp, err := g.generate(ctx, model, []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       genai.Ptr[float32](0.7),
	})
	if err != nil {
		return "", wrapGenaiErr(err)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fault.New(fault.KindProvider, "model returned an empty response")
	}
	return sb.String(), nil
}

// imageRef extracts the first inline image from a response as a data URL.
func imageRef(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return dataURL(part.InlineData.MIMEType, part.InlineData.Data)
			}
		}
	}
	return ""
}

func wrapGenaiErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fault.FromStatus("gemini", apiErr.Code, apiErr.Message)
	}
	return fault.Wrap(fault.KindProvider, fmt.Errorf("appgen: generate: %w", err))
}
