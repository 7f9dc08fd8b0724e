package transcriber

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	openAIResponsesURL = "https://api.openai.com/v1/responses"
	openAIDefaultModel = "gpt-4o-mini-transcribe"
)

// OpenAI transcribes and translates in a single Responses API call, asking
// for a strict JSON object with transcript and translation fields.
type OpenAI struct {
	client *TracedClient
	apiURL string
	model  string
	source string
	target string
}

func NewOpenAI(opts Options) *OpenAI {
	apiURL := openAIResponsesURL
	if opts.BaseURL != "" {
		apiURL = strings.TrimRight(opts.BaseURL, "/") + "/responses"
	}
	model := opts.Model
	if model == "" {
		model = openAIDefaultModel
	}
	o := &OpenAI{
		client: NewTracedClient(apiURL),
		apiURL: apiURL,
		model:  model,
		source: LanguageName(opts.source()),
	}
	if opts.TargetLanguage != "" {
		o.target = LanguageName(opts.TargetLanguage)
	}
	return o
}

func (o *OpenAI) Name() string { return "openai" }

// Warm pre-opens the connection to the API host.
func (o *OpenAI) Warm(ctx context.Context) { o.client.Warm(ctx) }

func (o *OpenAI) instruction() string {
	if o.target == "" {
		return fmt.Sprintf("Transcribe the provided audio in %s. Return a JSON object that contains the field 'transcript'.", o.source)
	}
	return fmt.Sprintf("Transcribe the provided audio in %s and provide a natural %s translation. Return a JSON object that contains the fields 'transcript' and 'translation'.", o.source, o.target)
}

func (o *OpenAI) payload(audioData []byte, format string) map[string]any {
	properties := map[string]any{
		"transcript": map[string]any{
			"type":        "string",
			"description": o.source + " transcription of the supplied audio.",
		},
	}
	required := []string{"transcript"}
	if o.target != "" {
		properties["translation"] = map[string]any{
			"type":        "string",
			"description": o.target + " translation of the audio content.",
		}
		required = append(required, "translation")
	}

	return map[string]any{
		"model":       o.model,
		"temperature": 0,
		"input": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "input_text", "text": o.instruction()},
					map[string]any{
						"type": "input_audio",
						"audio": map[string]any{
							"format": format,
							"data":   base64.StdEncoding.EncodeToString(audioData),
						},
					},
				},
			},
		},
		"text": map[string]any{
			"format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name": "transcription_translation",
					"schema": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"properties":           properties,
						"required":             required,
					},
				},
			},
		},
	}
}

func (o *OpenAI) Transcribe(ctx context.Context, audioData []byte, fileName, apiKey string) (*Result, error) {
	if err := requireKey("openai", apiKey); err != nil {
		return nil, err
	}
	if len(audioData) == 0 {
		return nil, errors.New("openai: audio payload is empty")
	}

	body, err := json.Marshal(o.payload(audioData, audioFormat(fileName)))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if detail := openAIErrorDetail(resp.Body); detail != "" {
			return nil, fmt.Errorf("openai API error %s: %s", resp.Status, detail)
		}
		return nil, fmt.Errorf("openai API error %s", resp.Status)
	}

	text, translation, err := parseOpenAIResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")

	return &Result{
		Text:        text,
		Translation: translation,
		Metrics:     resp.Metrics,
		RateLimit:   remaining + "/" + limit,
	}, nil
}

// openAIErrorDetail prefers error.message, then error.code, then the raw body.
func openAIErrorDetail(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var parsed struct {
		Error *struct {
			Message string          `json:"message"`
			Code    json.RawMessage `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return truncate(string(body), 500)
	}
	if parsed.Error != nil {
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if code := strings.Trim(string(parsed.Error.Code), `"`); code != "" && code != "null" {
			return code
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return truncate(string(body), 500)
	}
	return truncate(compact.String(), 500)
}

type openAIContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIResponse struct {
	Output []struct {
		Content []openAIContent `json:"content"`
	} `json:"output"`
	OutputText string          `json:"output_text"`
	Content    []openAIContent `json:"content"`
}

func (r *openAIResponse) text() string {
	// only the first output_text item of output[] counts
outputs:
	for _, out := range r.Output {
		for _, c := range out.Content {
			if strings.EqualFold(c.Type, "output_text") {
				if strings.TrimSpace(c.Text) != "" {
					return c.Text
				}
				break outputs
			}
		}
	}
	if strings.TrimSpace(r.OutputText) != "" {
		return r.OutputText
	}
	for _, c := range r.Content {
		if strings.EqualFold(c.Type, "output_text") && strings.TrimSpace(c.Text) != "" {
			return c.Text
		}
	}
	return ""
}

func parseOpenAIResponse(body []byte) (string, string, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("openai response parse error: %w", err)
	}
	payload := resp.text()
	if strings.TrimSpace(payload) == "" {
		return "", "", errors.New("openai response did not include textual output")
	}

	var out struct {
		Transcript  string `json:"transcript"`
		Translation string `json:"translation"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return "", "", fmt.Errorf("openai response returned malformed JSON payload: %s: %w", truncate(payload, 500), err)
	}
	return out.Transcript, out.Translation, nil
}
