package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	groqDefaultModel = "whisper-large-v3-turbo"
)

// Whisper talks to any OpenAI-compatible /audio/transcriptions endpoint.
// It returns transcript text only.
type Whisper struct {
	name    string
	baseURL string
	model   string
	lang    string

	mu      sync.Mutex
	clients map[string]*openai.Client
}

func NewWhisper(opts Options) *Whisper {
	model := opts.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &Whisper{
		name:    "whisper",
		baseURL: opts.BaseURL,
		model:   model,
		lang:    opts.source(),
		clients: make(map[string]*openai.Client),
	}
}

func NewGroq(opts Options) *Whisper {
	if opts.BaseURL == "" {
		opts.BaseURL = groqBaseURL
	}
	if opts.Model == "" {
		opts.Model = groqDefaultModel
	}
	w := NewWhisper(opts)
	w.name = "groq"
	return w
}

func (w *Whisper) Name() string { return w.name }

func (w *Whisper) client(apiKey string) *openai.Client {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.clients[apiKey]; ok {
		return c
	}
	cfg := openai.DefaultConfig(apiKey)
	if w.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(w.baseURL, "/")
	}
	c := openai.NewClientWithConfig(cfg)
	w.clients[apiKey] = c
	return c
}

func (w *Whisper) Transcribe(ctx context.Context, audioData []byte, fileName, apiKey string) (*Result, error) {
	if err := requireKey(w.name, apiKey); err != nil {
		return nil, err
	}
	if fileName == "" {
		fileName = "audio.wav"
	}

	resp, err := w.client(apiKey).CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: fileName,
		Reader:   bytes.NewReader(audioData),
		Language: w.lang,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%s API error %d: %s", w.name, apiErr.HTTPStatusCode, apiErr.Message)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return nil, fmt.Errorf("%s API error %d: %w", w.name, reqErr.HTTPStatusCode, reqErr.Err)
		}
		return nil, fmt.Errorf("%s transcription: %w", w.name, err)
	}
	return &Result{Text: resp.Text}, nil
}
