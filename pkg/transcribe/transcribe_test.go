package transcribe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vobuild/vobuild/pkg/fault"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixed(name, text string) Provider {
	return ProviderFunc{
		ProviderName: name,
		Func: func(context.Context, []byte) (string, error) {
			return text, nil
		},
	}
}

func failing(name string, err error) Provider {
	return ProviderFunc{
		ProviderName: name,
		Func: func(context.Context, []byte) (string, error) {
			return "", err
		},
	}
}

func TestGatewayPrimarySucceeds(t *testing.T) {
	secondaryCalled := false
	g := &Gateway{
		Primary: fixed("a", "Create a todo app"),
		Secondary: ProviderFunc{ProviderName: "b", Func: func(context.Context, []byte) (string, error) {
			secondaryCalled = true
			return "other", nil
		}},
		Logger: quiet(),
	}

	text, err := g.Transcribe(context.Background(), []byte("wav"))
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "Create a todo app" {
		t.Errorf("text = %q; want %q", text, "Create a todo app")
	}
	if secondaryCalled {
		t.Error("secondary called although primary succeeded")
	}
}

func TestGatewayFallback(t *testing.T) {
	g := &Gateway{
		Primary:   failing("a", errors.New("connection refused")),
		Secondary: fixed("b", "  recognized text "),
		Logger:    quiet(),
	}

	text, err := g.Transcribe(context.Background(), []byte("wav"))
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "recognized text" {
		t.Errorf("text = %q; want trimmed secondary text", text)
	}
}

func TestGatewayNoSecondary(t *testing.T) {
	g := &Gateway{
		Primary: failing("a", errors.New("network down")),
		Logger:  quiet(),
	}

	_, err := g.Transcribe(context.Background(), []byte("wav"))
	if err == nil {
		t.Fatal("Transcribe should fail")
	}
	if kind := fault.KindOf(err); kind != fault.KindProvider {
		t.Errorf("kind = %q; want %q", kind, fault.KindProvider)
	}
}

func TestGatewayBothFailPrimaryWins(t *testing.T) {
	primaryErr := errors.New("primary timeout")
	g := &Gateway{
		Primary:   failing("a", primaryErr),
		Secondary: failing("b", errors.New("secondary timeout")),
		Logger:    quiet(),
	}

	_, err := g.Transcribe(context.Background(), []byte("wav"))
	if err == nil {
		t.Fatal("Transcribe should fail")
	}
	if !strings.Contains(err.Error(), "primary timeout") {
		t.Errorf("error = %v; want primary's error surfaced", err)
	}
}

func TestGatewayBothFailSpecificSecondaryWins(t *testing.T) {
	g := &Gateway{
		Primary:   failing("a", errors.New("primary timeout")),
		Secondary: failing("b", fault.FromStatus("b", 429, "")),
		Logger:    quiet(),
	}

	_, err := g.Transcribe(context.Background(), []byte("wav"))
	if err == nil {
		t.Fatal("Transcribe should fail")
	}
	if kind := fault.KindOf(err); kind != fault.KindRateLimited {
		t.Errorf("kind = %q; want the secondary's more specific %q", kind, fault.KindRateLimited)
	}
}

func TestGatewayEmptyTextIsFailure(t *testing.T) {
	g := &Gateway{Primary: fixed("a", "   \n\t"), Logger: quiet()}

	_, err := g.Transcribe(context.Background(), []byte("wav"))
	if err == nil {
		t.Fatal("whitespace-only text should fail")
	}
	if kind := fault.KindOf(err); kind != fault.KindTranscriptionEmpty {
		t.Errorf("kind = %q; want %q", kind, fault.KindTranscriptionEmpty)
	}
}

func TestGatewayEmptyPrimaryFallsBack(t *testing.T) {
	g := &Gateway{
		Primary:   fixed("a", ""),
		Secondary: fixed("b", "hello"),
		Logger:    quiet(),
	}

	text, err := g.Transcribe(context.Background(), []byte("wav"))
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "hello" {
		t.Errorf("text = %q; want %q", text, "hello")
	}
}

func TestGroqTranscribe(t *testing.T) {
	var gotAuth, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotModel = r.FormValue("model")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"hallo welt"}`)
	}))
	defer srv.Close()

	g := &Groq{APIKey: "key", BaseURL: srv.URL}
	text, err := g.Transcribe(context.Background(), []byte("RIFFdata"))
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "hallo welt" {
		t.Errorf("text = %q; want %q", text, "hallo welt")
	}
	if gotAuth != "Bearer key" {
		t.Errorf("auth header = %q; want bearer key", gotAuth)
	}
	if gotModel != defaultGroqModel {
		t.Errorf("model = %q; want %q", gotModel, defaultGroqModel)
	}
}

func TestGroqStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		kind   fault.Kind
	}{
		{429, fault.KindRateLimited},
		{402, fault.KindQuotaExhausted},
		{500, fault.KindProvider},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		g := &Groq{APIKey: "key", BaseURL: srv.URL}
		_, err := g.Transcribe(context.Background(), []byte("wav"))
		srv.Close()

		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if kind := fault.KindOf(err); kind != tt.kind {
			t.Errorf("status %d: kind = %q; want %q", tt.status, kind, tt.kind)
		}
	}
}

func TestGroqMissingKey(t *testing.T) {
	g := &Groq{}
	if _, err := g.Transcribe(context.Background(), []byte("wav")); err == nil {
		t.Fatal("missing API key should fail")
	}
}
