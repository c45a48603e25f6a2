package appgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vobuild/vobuild/pkg/fault"
)

// Artifact describes a packaged build.
type Artifact struct {
	Success   bool      `json:"success"`
	URL       string    `json:"artifactUrl"`
	BuildTime time.Time `json:"buildTime"`
	Size      string    `json:"size"`
}

// Packager sends generated source to an external build service and returns
// the resulting artifact reference. The build service is opaque; when no
// endpoint is configured the packager simulates a successful build so the
// rest of the flow stays exercisable.
type Packager struct {
	// Endpoint is the build service URL. Empty means simulate.
	Endpoint string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Package submits code for packaging.
func (p *Packager) Package(ctx context.Context, code string) (*Artifact, error) {
	if code == "" {
		return nil, fault.New(fault.KindPipelineStage, "no code to package")
	}

	log := p.Logger
	if log == nil {
		log = slog.Default()
	}

	if p.Endpoint == "" {
		log.Info("packaging simulated", "code_len", len(code))
		return &Artifact{
			Success:   true,
			URL:       "https://builds.vobuild.dev/app.apk",
			BuildTime: time.Now(),
			Size:      "15.3 MB",
		}, nil
	}

	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return nil, fmt.Errorf("appgen: marshal package request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("appgen: build package request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.KindPipelineStage, fmt.Errorf("appgen: package request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fault.FromStatus("packager", resp.StatusCode, string(detail))
	}

	var artifact Artifact
	if err := json.NewDecoder(resp.Body).Decode(&artifact); err != nil {
		return nil, fault.Wrap(fault.KindPipelineStage, fmt.Errorf("appgen: decode package response: %w", err))
	}
	if !artifact.Success {
		return nil, fault.New(fault.KindPipelineStage, "build service reported failure")
	}
	return &artifact, nil
}
