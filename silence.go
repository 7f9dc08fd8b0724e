package main

import "time"

const (
	tickInterval     = 100 * time.Millisecond
	silenceWarnEvery = 8 * time.Second
	speechMinRatio   = 0.10
	speechClearRatio = 0.25 // higher threshold to clear warning (hysteresis)
	// RMS level above which a tick counts as speech
	speechLevel = 0.02
)

type SilenceEvent int

const (
	SilenceNone      SilenceEvent = iota
	SilenceWarn                   // no voice detected
	SilenceWarnClear              // speech resumed after warning
	SilenceRepeat                 // still silent, every 8s while warned
)

type silenceMonitor struct {
	warnAt int

	ticks    int
	window   []bool
	warned   bool
	lastWarn int
}

func newSilenceMonitor() *silenceMonitor {
	warnAt := int(silenceWarnEvery / tickInterval)
	return &silenceMonitor{
		warnAt: warnAt,
		window: make([]bool, warnAt),
	}
}

// ratio is the share of speech ticks in the last warnAt ticks.
func (m *silenceMonitor) ratio() float64 {
	n := min(m.ticks, m.warnAt)
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i)%m.warnAt] {
			count++
		}
	}
	return float64(count) / float64(n)
}

// Tick records one interval and reports how the warning state changed.
func (m *silenceMonitor) Tick(hasSpeech bool) SilenceEvent {
	m.window[m.ticks%m.warnAt] = hasSpeech
	m.ticks++

	r := m.ratio()
	switch {
	case m.ticks >= m.warnAt && r < speechMinRatio && !m.warned:
		m.warned = true
		m.lastWarn = m.ticks
		return SilenceWarn
	case m.warned && r >= speechClearRatio:
		m.warned = false
		return SilenceWarnClear
	case m.warned && m.ticks-m.lastWarn >= m.warnAt:
		m.lastWarn = m.ticks
		return SilenceRepeat
	}
	return SilenceNone
}
