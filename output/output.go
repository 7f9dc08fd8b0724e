// Package output writes finished transcripts next to the recordings.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const noTranslation = "[No translation available]"

type Transcript struct {
	// Source is the audio file the transcript was made from.
	Source      string
	Text        string
	Translation string
	// SourceLanguage and TargetLanguage are display names such as "English".
	SourceLanguage string
	TargetLanguage string
	GeneratedAt    time.Time
}

// Paths lists the files written for one transcript.
type Paths struct {
	Text     string
	Markdown string
}

// BaseName is the source file name without directory or extension.
func (t Transcript) BaseName() string {
	base := filepath.Base(t.Source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (t Transcript) translation() string {
	if strings.TrimSpace(t.Translation) == "" {
		return noTranslation
	}
	return t.Translation
}

func (t Transcript) labels() (string, string) {
	src, dst := t.SourceLanguage, t.TargetLanguage
	if src == "" {
		src = "English"
	}
	if dst == "" {
		dst = "Persian"
	}
	return src, dst
}

func (t Transcript) PlainText() string {
	src, dst := t.labels()
	at := t.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Recorded File: %s\n", t.Source)
	fmt.Fprintf(&b, "Generated On: %s\n", at.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("-", 60) + "\n")
	fmt.Fprintf(&b, "%s Transcript:\n%s\n\n", src, t.Text)
	fmt.Fprintf(&b, "%s Translation:\n%s\n", dst, t.translation())
	return b.String()
}

func (t Transcript) Markdown() string {
	src, dst := t.labels()
	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", t.BaseName())
	fmt.Fprintf(&b, "## %s Transcript\n\n%s\n\n", src, t.Text)
	fmt.Fprintf(&b, "## %s Translation\n\n%s\n", dst, t.translation())
	return b.String()
}

// Write stores t as <dir>/<base>.txt and <dir>/<base>.md.
func Write(dir string, t Transcript) (Paths, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Paths{}, fmt.Errorf("create transcripts directory: %w", err)
	}
	base := t.BaseName()
	p := Paths{
		Text:     filepath.Join(dir, base+".txt"),
		Markdown: filepath.Join(dir, base+".md"),
	}
	if err := os.WriteFile(p.Text, []byte(t.PlainText()), 0644); err != nil {
		return Paths{}, fmt.Errorf("unable to save transcript: %w", err)
	}
	if err := os.WriteFile(p.Markdown, []byte(t.Markdown()), 0644); err != nil {
		return Paths{}, fmt.Errorf("unable to save transcript: %w", err)
	}
	return p, nil
}
