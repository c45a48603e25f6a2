// Package fault defines the error taxonomy shared by the build pipeline,
// the transcription gateway, and the realtime voice session.
//
// Every failure that crosses a component boundary is carried as a *Error so
// that callers can branch on Kind without string matching, and so that the
// presentation layer can show actionable text for rate-limit and quota
// failures instead of a generic message.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	// KindDevice indicates a microphone problem: no device, or permission
	// denied.
	KindDevice Kind = "device"

	// KindTranscriptionEmpty indicates the recognizer returned empty or
	// whitespace-only text. Treated as a failure, never as an empty result.
	KindTranscriptionEmpty Kind = "transcription_empty"

	// KindProvider indicates a generic upstream failure (network error or
	// non-2xx status).
	KindProvider Kind = "provider"

	// KindRateLimited indicates the upstream rejected the call with a rate
	// limit (HTTP 429).
	KindRateLimited Kind = "rate_limited"

	// KindQuotaExhausted indicates the upstream account is out of credits
	// (HTTP 402).
	KindQuotaExhausted Kind = "quota_exhausted"

	// KindNegotiation indicates a realtime broker or signaling failure.
	KindNegotiation Kind = "negotiation"

	// KindPipelineStage wraps code, icon, or packaging failures inside the
	// build pipeline.
	KindPipelineStage Kind = "pipeline_stage"
)

// Error is a classified failure.
type Error struct {
	// Kind classifies the failure.
	Kind Kind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Recoverable reports whether retrying the operation can succeed
	// without operator intervention.
	Recoverable bool `json:"recoverable"`

	// HTTPStatus is the upstream HTTP status code, if applicable.
	HTTPStatus int `json:"-"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given kind and formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:        kind,
		Message:     fmt.Sprintf(format, args...),
		Recoverable: kind.recoverable(),
	}
}

// Wrap creates an Error with the given kind, carrying err as the cause.
// If err is already a *Error its kind is preserved.
func Wrap(kind Kind, err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return &Error{
		Kind:        kind,
		Message:     err.Error(),
		Recoverable: kind.recoverable(),
		Err:         err,
	}
}

// FromStatus maps an upstream HTTP status to an Error. Rate-limit (429) and
// payment-required (402) responses get their own kinds so the user sees an
// actionable message instead of a generic provider failure.
func FromStatus(provider string, status int, body string) *Error {
	switch status {
	case http.StatusTooManyRequests:
		return &Error{
			Kind:        KindRateLimited,
			Message:     fmt.Sprintf("%s rate limit exceeded, try again later", provider),
			Recoverable: true,
			HTTPStatus:  status,
		}
	case http.StatusPaymentRequired:
		return &Error{
			Kind:        KindQuotaExhausted,
			Message:     fmt.Sprintf("%s quota exhausted, add credits to continue", provider),
			Recoverable: false,
			HTTPStatus:  status,
		}
	default:
		msg := fmt.Sprintf("%s returned status %d", provider, status)
		if body != "" {
			msg = fmt.Sprintf("%s: %s", msg, body)
		}
		return &Error{
			Kind:        KindProvider,
			Message:     msg,
			Recoverable: true,
			HTTPStatus:  status,
		}
	}
}

// KindOf returns the kind of err, or KindProvider if err is not a *Error.
// Returns "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindProvider
}

// IsSpecific reports whether err carries a kind with dedicated user-facing
// text. Used by the transcription gateway to decide which of two provider
// failures to surface.
func IsSpecific(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindQuotaExhausted, KindTranscriptionEmpty, KindDevice:
		return true
	default:
		return false
	}
}

func (k Kind) recoverable() bool {
	switch k {
	case KindQuotaExhausted, KindDevice:
		return false
	default:
		return true
	}
}
