package transcriber

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer gsk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart: %v", err)
			return
		}
		if got := r.FormValue("model"); got != groqDefaultModel {
			t.Errorf("model = %q, want %q", got, groqDefaultModel)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language = %q, want en", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file part: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		if string(data) != "RIFFDATA" {
			t.Errorf("file data = %q", data)
		}
		if header.Filename != "chunk.wav" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":" hello there "}`)
	}))
	defer srv.Close()

	g := NewGroq(Options{BaseURL: srv.URL + "/v1", SourceLanguage: "en"})
	if g.Name() != "groq" {
		t.Errorf("Name() = %q", g.Name())
	}
	res, err := g.Transcribe(context.Background(), []byte("RIFFDATA"), "chunk.wav", "gsk-test")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != " hello there " {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Translation != "" {
		t.Errorf("Translation = %q, want empty", res.Translation)
	}
}

func TestWhisperAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(401)
		io.WriteString(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}))
	defer srv.Close()

	w := NewWhisper(Options{BaseURL: srv.URL})
	_, err := w.Transcribe(context.Background(), []byte("RIFF"), "a.wav", "bad")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "whisper API error 401") || !strings.Contains(err.Error(), "Invalid API Key") {
		t.Errorf("got %q", err.Error())
	}
}

func TestWhisperCachesClientPerKey(t *testing.T) {
	w := NewWhisper(Options{})
	if w.client("a") != w.client("a") {
		t.Error("expected the same client for the same key")
	}
	if w.client("a") == w.client("b") {
		t.Error("expected distinct clients for distinct keys")
	}
}
