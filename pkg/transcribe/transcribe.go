// Package transcribe turns recorded audio into text.
//
// A Gateway tries a primary provider and, on any failure, retries once
// against an optional secondary provider with the same audio payload. There
// is no backoff loop: one fallback hop only. Empty or whitespace-only
// recognized text is a failure, never a successful empty result.
package transcribe

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vobuild/vobuild/pkg/fault"
)

// Provider recognizes speech in a complete WAV recording.
type Provider interface {
	// Name identifies the provider in logs and error messages.
	Name() string

	// Transcribe returns the recognized text for the recording.
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// ProviderFunc is an adapter to allow the use of ordinary functions as
// Providers.
type ProviderFunc struct {
	ProviderName string
	Func         func(ctx context.Context, wav []byte) (string, error)
}

func (p ProviderFunc) Name() string { return p.ProviderName }

func (p ProviderFunc) Transcribe(ctx context.Context, wav []byte) (string, error) {
	return p.Func(ctx, wav)
}

// Gateway routes transcription requests through a fixed provider order.
type Gateway struct {
	// Primary is tried first. Required.
	Primary Provider

	// Secondary, when set, is tried once after any primary failure.
	Secondary Provider

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Transcribe recognizes the recording. On primary failure the secondary is
// tried with the same payload; if both fail, the primary's error propagates
// unless the secondary's failure is more specific (rate limit, quota), in
// which case the error that occurred last is surfaced.
func (g *Gateway) Transcribe(ctx context.Context, wav []byte) (string, error) {
	log := g.Logger
	if log == nil {
		log = slog.Default()
	}

	text, primaryErr := g.attempt(ctx, g.Primary, wav)
	if primaryErr == nil {
		return text, nil
	}

	if g.Secondary == nil {
		return "", fault.Wrap(fault.KindProvider, primaryErr)
	}

	log.Warn("primary transcription failed, falling back",
		"primary", g.Primary.Name(),
		"secondary", g.Secondary.Name(),
		"error", primaryErr)

	text, secondaryErr := g.attempt(ctx, g.Secondary, wav)
	if secondaryErr == nil {
		return text, nil
	}

	if fault.IsSpecific(secondaryErr) && !fault.IsSpecific(primaryErr) {
		return "", fault.Wrap(fault.KindProvider, secondaryErr)
	}
	return "", fault.Wrap(fault.KindProvider, primaryErr)
}

// attempt runs one provider and normalizes its result: whitespace-only text
// becomes a transcription_empty fault.
func (g *Gateway) attempt(ctx context.Context, p Provider, wav []byte) (string, error) {
	text, err := p.Transcribe(ctx, wav)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fault.New(fault.KindTranscriptionEmpty, "%s recognized no speech", p.Name())
	}
	return text, nil
}
