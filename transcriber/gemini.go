package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.5-flash"

// Gemini sends the audio inline and asks for a JSON transcript/translation
// pair, like the OpenAI Responses client.
type Gemini struct {
	model   string
	baseURL string
	source  string
	target  string

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGemini(opts Options) *Gemini {
	model := opts.Model
	if model == "" {
		model = geminiDefaultModel
	}
	g := &Gemini{
		model:   model,
		baseURL: opts.BaseURL,
		source:  LanguageName(opts.source()),
		clients: make(map[string]*genai.Client),
	}
	if opts.TargetLanguage != "" {
		g.target = LanguageName(opts.TargetLanguage)
	}
	return g
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) client(apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if g.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	// the client outlives any single request context
	c, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	g.clients[apiKey] = c
	return c, nil
}

func (g *Gemini) prompt() string {
	if g.target == "" {
		return fmt.Sprintf("Transcribe the provided audio in %s. Respond with JSON containing the field 'transcript'.", g.source)
	}
	return fmt.Sprintf("Transcribe the provided audio in %s and provide a natural %s translation. Respond with JSON containing the fields 'transcript' and 'translation'.", g.source, g.target)
}

func (g *Gemini) schema() *genai.Schema {
	s := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"transcript": {Type: genai.TypeString},
		},
		Required: []string{"transcript"},
	}
	if g.target != "" {
		s.Properties["translation"] = &genai.Schema{Type: genai.TypeString}
		s.Required = append(s.Required, "translation")
	}
	return s
}

func audioMIMEType(fileName string) string {
	switch audioFormat(fileName) {
	case "mp3":
		return "audio/mp3"
	case "m4a":
		return "audio/mp4"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	}
	return "audio/wav"
}

func (g *Gemini) Transcribe(ctx context.Context, audioData []byte, fileName, apiKey string) (*Result, error) {
	if err := requireKey("gemini", apiKey); err != nil {
		return nil, err
	}
	client, err := g.client(apiKey)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(g.prompt()),
			genai.NewPartFromBytes(audioData, audioMIMEType(fileName)),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   g.schema(),
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("gemini API error %d: %s", apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("gemini transcription: %w", err)
	}

	payload := geminiText(resp)
	if strings.TrimSpace(payload) == "" {
		return nil, errors.New("gemini response did not include textual output")
	}
	var out struct {
		Transcript  string `json:"transcript"`
		Translation string `json:"translation"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, fmt.Errorf("gemini response parse error: %s: %w", truncate(payload, 500), err)
	}
	return &Result{Text: out.Transcript, Translation: out.Translation}, nil
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
