// Package translator sends finished transcripts to a LibreTranslate-style
// HTTP service.
package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aitranscriber/log"
	"aitranscriber/metrics"
)

const maxErrorBody = 500

type Translator struct {
	endpoint string
	source   string
	target   string
	client   *http.Client
}

func New(endpoint *url.URL, source, target string) *Translator {
	if source == "" {
		source = "en"
	}
	if target == "" {
		target = "fa"
	}
	return &Translator{
		endpoint: endpoint.String(),
		source:   source,
		target:   target,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type request struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type response struct {
	TranslatedText string `json:"translatedText"`
}

// Translate returns "" without a request when text is blank.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	start := time.Now()
	out, err := t.do(ctx, text)
	log.Translation(err == nil, time.Since(start))
	switch {
	case err != nil:
		metrics.TranslationRequests.WithLabelValues("error").Inc()
	case out == "":
		metrics.TranslationRequests.WithLabelValues("empty").Inc()
	default:
		metrics.TranslationRequests.WithLabelValues("ok").Inc()
	}
	return out, err
}

func (t *Translator) do(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(request{Q: text, Source: t.source, Target: t.target, Format: "text"})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("translation response read failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(data))
		if len(detail) > maxErrorBody {
			detail = detail[:maxErrorBody] + "..."
		}
		if detail == "" {
			return "", fmt.Errorf("translation service returned %s", resp.Status)
		}
		return "", fmt.Errorf("translation service returned %s: %s", resp.Status, detail)
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return "", fmt.Errorf("translation response parse error: %w", err)
	}
	return r.TranslatedText, nil
}
