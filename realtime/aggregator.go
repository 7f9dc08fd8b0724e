package realtime

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"aitranscriber/transcriber"
)

// aggregator holds the running transcript and translation for a session.
// Text is only ever appended.
type aggregator struct {
	mu          sync.Mutex
	transcript  strings.Builder
	translation strings.Builder
}

// append adds one chunk's segments and returns both running totals as of
// this append.
func (a *aggregator) append(text, translation string) (fullText, fullTranslation string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	appendWithSpace(&a.transcript, text)
	appendWithSpace(&a.translation, translation)
	return a.transcript.String(), a.translation.String()
}

func (a *aggregator) result() transcriber.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return transcriber.Result{
		Text:        strings.TrimSpace(a.transcript.String()),
		Translation: strings.TrimSpace(a.translation.String()),
	}
}

func appendWithSpace(b *strings.Builder, segment string) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return
	}
	if b.Len() > 0 {
		last, _ := utf8.DecodeLastRuneInString(b.String())
		if !unicode.IsSpace(last) {
			b.WriteByte(' ')
		}
	}
	b.WriteString(segment)
}
