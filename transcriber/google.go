package transcriber

import (
	"context"
	"fmt"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"aitranscriber/encoder"
)

// Google uses Cloud Speech-to-Text synchronous recognition. Audio is sent as
// LINEAR16 (from WAV) or FLAC; there is no translation.
type Google struct {
	lang string

	mu      sync.Mutex
	clients map[string]*speech.Client
}

func NewGoogle(opts Options) *Google {
	return &Google{lang: opts.source(), clients: make(map[string]*speech.Client)}
}

func (g *Google) Name() string { return "google" }

func (g *Google) client(apiKey string) (*speech.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}
	c, err := speech.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	g.clients[apiKey] = c
	return c, nil
}

// Close releases every cached gRPC connection.
func (g *Google) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var first error
	for k, c := range g.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(g.clients, k)
	}
	return first
}

func (g *Google) recognitionConfig(audioData []byte, fileName string) (*speechpb.RecognitionConfig, []byte, error) {
	cfg := &speechpb.RecognitionConfig{
		LanguageCode:               g.lang,
		EnableAutomaticPunctuation: true,
	}
	switch audioFormat(fileName) {
	case "wav":
		pcm, f, err := encoder.DecodeWAVBytes(audioData)
		if err != nil {
			return nil, nil, err
		}
		if f.BitsPerSample != 16 {
			return nil, nil, fmt.Errorf("google speech needs 16-bit PCM, got %d-bit", f.BitsPerSample)
		}
		cfg.Encoding = speechpb.RecognitionConfig_LINEAR16
		cfg.SampleRateHertz = int32(f.SampleRate)
		cfg.AudioChannelCount = int32(f.Channels)
		return cfg, pcm, nil
	case "flac":
		cfg.Encoding = speechpb.RecognitionConfig_FLAC
		return cfg, audioData, nil
	}
	return nil, nil, fmt.Errorf("google speech does not accept %s audio", audioFormat(fileName))
}

func (g *Google) Transcribe(ctx context.Context, audioData []byte, fileName, apiKey string) (*Result, error) {
	if err := requireKey("google", apiKey); err != nil {
		return nil, err
	}
	cfg, content, err := g.recognitionConfig(audioData, fileName)
	if err != nil {
		return nil, err
	}
	client, err := g.client(apiKey)
	if err != nil {
		return nil, err
	}

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("google API error: %w", err)
	}

	var parts []string
	for _, r := range resp.GetResults() {
		if alts := r.GetAlternatives(); len(alts) > 0 {
			parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		}
	}
	return &Result{Text: strings.Join(parts, " ")}, nil
}
