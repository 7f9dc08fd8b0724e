package main

import (
	"fmt"
	"io"
	"sync"

	"aitranscriber/realtime"
)

// Sink abstracts the display layer so the Bubble Tea TUI, the plain console
// and test mode receive the same recording and transcription events.
type Sink interface {
	RecordingStart(device string)
	RecordingStop()
	RecordingTick(duration float64)
	AudioLevel(level float64)
	NoVoiceWarning()
	VoiceCleared()
	Segment(u realtime.Update)
	Transcript(text, translation string)
	Status(text string)
	ModeLine(text string)
	DeviceLine(text string)
}

// consoleSink prints one line per event. Level and tick events are dropped.
type consoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out}
}

func (c *consoleSink) printf(format string, args ...any) {
	c.mu.Lock()
	fmt.Fprintf(c.out, format+"\n", args...)
	c.mu.Unlock()
}

func (c *consoleSink) RecordingStart(device string) { c.printf("RECORDING_START %s", device) }
func (c *consoleSink) RecordingStop()               { c.printf("RECORDING_STOP") }
func (c *consoleSink) RecordingTick(float64)        {}
func (c *consoleSink) AudioLevel(float64)           {}
func (c *consoleSink) NoVoiceWarning()              { c.printf("NO_VOICE") }
func (c *consoleSink) VoiceCleared()                { c.printf("VOICE_CLEARED") }

func (c *consoleSink) Segment(u realtime.Update) {
	c.printf("SEGMENT %d %s", u.Index, u.SegmentText)
	if u.SegmentTranslation != "" {
		c.printf("SEGMENT_TRANSLATION %d %s", u.Index, u.SegmentTranslation)
	}
}

func (c *consoleSink) Transcript(text, translation string) {
	c.printf("TRANSCRIPT %s", text)
	c.printf("TRANSLATION %s", translation)
}

func (c *consoleSink) Status(text string)     { c.printf("STATUS %s", text) }
func (c *consoleSink) ModeLine(text string)   { c.printf("MODE %s", text) }
func (c *consoleSink) DeviceLine(text string) { c.printf("DEVICE %s", text) }
