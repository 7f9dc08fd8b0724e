package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw  string
		want EndpointStatus
	}{
		{"", EndpointDisabled},
		{"   ", EndpointDisabled},
		{"https://translate.example.com/translate", EndpointConfigured},
		{" http://localhost:5000/translate ", EndpointConfigured},
		{"ftp://example.com", EndpointInvalid},
		{"translate.example.com", EndpointInvalid},
		{"/translate", EndpointInvalid},
		{"https://", EndpointInvalid},
		{"http://[::1", EndpointInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, got, err := ParseEndpoint(tt.raw)
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			switch got {
			case EndpointConfigured:
				if err != nil || u == nil {
					t.Errorf("configured endpoint: u=%v err=%v", u, err)
				}
			case EndpointInvalid:
				if err == nil {
					t.Error("invalid endpoint without error")
				}
			case EndpointDisabled:
				if err != nil || u != nil {
					t.Errorf("disabled endpoint: u=%v err=%v", u, err)
				}
			}
		})
	}
}

func TestEndpointHints(t *testing.T) {
	if EndpointDisabled.Hint() != DisabledHint || EndpointInvalid.Hint() != InvalidHint || EndpointConfigured.Hint() != "" {
		t.Error("unexpected hint text")
	}
	if got := EndpointInvalid.CompletionStatus(); got != "Completed (translation disabled: invalid translation URL)." {
		t.Errorf("got %q", got)
	}
	if got := EndpointDisabled.CompletionStatus(); got != "Completed (translation disabled)." {
		t.Errorf("got %q", got)
	}
}

func newTestTranslator(t *testing.T, h http.HandlerFunc) *Translator {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	u, status, err := ParseEndpoint(srv.URL + "/translate")
	if status != EndpointConfigured {
		t.Fatalf("test server URL rejected: %v", err)
	}
	return New(u, "en", "fa")
}

func TestTranslate(t *testing.T) {
	tr := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/translate" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		want := map[string]string{"q": "hello world", "source": "en", "target": "fa", "format": "text"}
		for k, v := range want {
			if req[k] != v {
				t.Errorf("%s = %q, want %q", k, req[k], v)
			}
		}
		io.WriteString(w, `{"translatedText":"salam donya"}`)
	})

	got, err := tr.Translate(context.Background(), "hello world")
	if err != nil {
		t.Fatal(err)
	}
	if got != "salam donya" {
		t.Errorf("got %q, want %q", got, "salam donya")
	}
}

func TestTranslateBlankSkipsRequest(t *testing.T) {
	called := false
	tr := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	got, err := tr.Translate(context.Background(), "  \n")
	if err != nil || got != "" {
		t.Errorf("got %q, %v", got, err)
	}
	if called {
		t.Error("blank text reached the service")
	}
}

func TestTranslateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"bad status", 503, "overloaded", "translation service returned 503 Service Unavailable: overloaded"},
		{"bad status empty", 500, "", "translation service returned 500 Internal Server Error"},
		{"bad json", 200, "<html>", "translation response parse error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := tr.Translate(context.Background(), "hi")
			if err == nil || !strings.HasPrefix(err.Error(), tt.want) {
				t.Errorf("got %v, want prefix %q", err, tt.want)
			}
		})
	}
}

func TestTranslateMissingField(t *testing.T) {
	tr := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"other":"x"}`)
	})
	got, err := tr.Translate(context.Background(), "hi")
	if err != nil || got != "" {
		t.Errorf("got %q, %v, want empty translation", got, err)
	}
}

func TestUserMessage(t *testing.T) {
	inner := errors.New("connection refused")
	tests := []struct {
		name     string
		err      error
		realtime bool
		want     string
	}{
		{
			"nil",
			nil, false,
			"Translation unavailable. An unexpected error occurred. " + verifyHint,
		},
		{
			"realtime prefix",
			errors.New("timeout"), true,
			"Real-time translation unavailable. timeout " + verifyHint,
		},
		{
			"wrapped inner already in message",
			fmt.Errorf("translation request failed: %w", inner), false,
			"Translation unavailable. translation request failed: connection refused " + verifyHint,
		},
		{
			"inner appended",
			hiddenInner{msg: "service error", inner: inner}, false,
			"Translation unavailable. service error (connection refused) " + verifyHint,
		},
		{
			"hint not repeated",
			errors.New("Please verify the translation service URL."), false,
			"Translation unavailable. Please verify the translation service URL.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err, tt.realtime); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

type hiddenInner struct {
	msg   string
	inner error
}

func (e hiddenInner) Error() string { return e.msg }
func (e hiddenInner) Unwrap() error { return e.inner }
