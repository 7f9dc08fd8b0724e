package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

// Result is one transcription round trip. Translation is empty when the
// provider does not translate.
type Result struct {
	Text        string
	Translation string
	Metrics     *NetworkMetrics
	RateLimit   string
}

// Client turns a complete audio file into text. The API key is passed per
// call so callers can pick up a key that changes during a session.
type Client interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, fileName, apiKey string) (*Result, error)
}

// Warmer is implemented by clients that can open their connection before
// the first upload.
type Warmer interface {
	Warm(ctx context.Context)
}

type Options struct {
	Model          string
	BaseURL        string
	SourceLanguage string
	TargetLanguage string
}

var Providers = []string{"openai", "whisper", "groq", "gemini", "google"}

// New returns the client for a provider name.
func New(provider string, opts Options) (Client, error) {
	switch provider {
	case "openai", "":
		return NewOpenAI(opts), nil
	case "whisper":
		return NewWhisper(opts), nil
	case "groq":
		return NewGroq(opts), nil
	case "gemini":
		return NewGemini(opts), nil
	case "google":
		return NewGoogle(opts), nil
	}
	return nil, fmt.Errorf("unknown provider %q (use %s)", provider, strings.Join(Providers, ", "))
}

const defaultSourceLanguage = "en"

// source is the spoken language, English unless configured.
func (o Options) source() string {
	if o.SourceLanguage == "" {
		return defaultSourceLanguage
	}
	return o.SourceLanguage
}

// KeyEnv names the environment variable holding the provider's API key.
func KeyEnv(provider string) string {
	switch provider {
	case "groq":
		return "GROQ_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	}
	return "OPENAI_API_KEY"
}

var languageNames = map[string]string{
	"en": "English",
	"fa": "Persian",
	"ar": "Arabic",
	"de": "German",
	"es": "Spanish",
	"fr": "French",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"pt": "Portuguese",
	"ru": "Russian",
	"tr": "Turkish",
	"zh": "Chinese",
}

// LanguageName maps an ISO 639-1 code to its English name, falling back to
// the code itself.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// audioFormat derives the container name from an upload file name.
func audioFormat(fileName string) string {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")); ext {
	case "wav", "mp3", "m4a", "aac", "flac":
		return ext
	}
	return "wav"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func requireKey(name, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("%s API key is required", name)
	}
	return nil
}
