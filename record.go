package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"aitranscriber/audio"
	"aitranscriber/config"
	"aitranscriber/encoder"
	"aitranscriber/log"
	"aitranscriber/realtime"
	"aitranscriber/transcriber"
)

const (
	recordingTimeFormat = "20060102_150405"
	warmTimeout         = 10 * time.Second
)

type recording struct {
	id       string
	settings config.Settings
	client   transcriber.Client
	capture  audio.CaptureDevice
	archive  encoder.Archive
	manager  *realtime.Manager // nil in batch mode
	started  time.Time

	mu       sync.Mutex
	stopped  bool
	frames   uint64
	peak     float64
	writeErr error

	done     chan struct{}
	stopOnce sync.Once
}

func recordingPath(s config.Settings, at time.Time) string {
	return filepath.Join(s.RecordingsDir(), "recording_"+at.Format(recordingTimeFormat))
}

func sessionMode(s config.Settings) string {
	if s.Realtime {
		return "realtime"
	}
	return "batch"
}

func startRecording(a *app, s config.Settings) (*recording, error) {
	client, err := a.newClient(s)
	if err != nil {
		return nil, err
	}
	if w, ok := client.(transcriber.Warmer); ok {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
			defer cancel()
			w.Warm(ctx)
		}()
	}

	now := time.Now()
	if err := os.MkdirAll(s.RecordingsDir(), 0755); err != nil {
		return nil, fmt.Errorf("create recordings directory: %w", err)
	}
	archive, err := a.newArchive(recordingPath(s, now), s.ArchiveFormat, encoder.DefaultFormat)
	if err != nil {
		return nil, fmt.Errorf("create recording file: %w", err)
	}

	rec := &recording{
		id:       uuid.NewString(),
		settings: s,
		client:   client,
		capture:  a.capture,
		archive:  archive,
		started:  now,
		done:     make(chan struct{}),
	}

	if s.Realtime {
		rec.manager, err = realtime.New(context.Background(), client, realtime.Config{
			Format:        encoder.DefaultFormat,
			ChunkDuration: time.Duration(s.ChunkSeconds) * time.Second,
			APIKey:        a.apiKey,
			SessionID:     rec.id,
		})
		if err != nil {
			archive.Close()
			return nil, err
		}
		rec.manager.OnUpdate(a.sink.Segment)
		rec.manager.OnFailure(func(f realtime.Failure) {
			a.sink.Status(fmt.Sprintf("Chunk %d failed: %v", f.Index, f.Err))
		})
	}

	log.SessionStart(rec.id, client.Name(), sessionMode(s))
	log.Info("recording_file: " + archive.Path())

	a.capture.SetCallback(rec.onAudio(a.sink))
	if err := a.capture.Start(); err != nil {
		a.capture.ClearCallback()
		if rec.manager != nil {
			rec.manager.Dispose()
		}
		archive.Close()
		return nil, err
	}
	go rec.monitor(a.sink)

	if rec.manager != nil && a.apiKey() == "" {
		a.sink.Status("Recording without an API key. Chunks are skipped until one is saved.")
	}
	return rec, nil
}

func (r *recording) onAudio(sink Sink) audio.DataCallback {
	return func(data []byte, frameCount uint32) {
		if len(data) == 0 {
			return
		}
		pcm := make([]byte, len(data))
		copy(pcm, data)

		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			return
		}
		r.frames += uint64(frameCount)
		if err := r.archive.Write(pcm); err != nil && r.writeErr == nil {
			r.writeErr = err
			log.Errorf("recording write error: %v", err)
		}
		r.mu.Unlock()

		if r.manager != nil {
			r.manager.AddAudio(pcm)
		}
		level := audio.RMS(pcm)
		r.mu.Lock()
		r.peak = max(r.peak, level)
		r.mu.Unlock()
		sink.AudioLevel(level)
	}
}

// monitor reports elapsed time and the no-voice warning until stop.
func (r *recording) monitor(sink Sink) {
	mon := newSilenceMonitor()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			sink.RecordingTick(time.Since(r.started).Seconds())
			switch mon.Tick(r.peakLevel() >= speechLevel) {
			case SilenceWarn:
				log.Info("no_voice_warning")
				sink.NoVoiceWarning()
			case SilenceWarnClear:
				sink.VoiceCleared()
			case SilenceRepeat:
				log.Info("silence_during_warning")
				sink.NoVoiceWarning()
			}
		}
	}
}

// peakLevel returns the loudest block since the previous call.
func (r *recording) peakLevel() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.peak
	r.peak = 0
	return p
}

// stop halts capture and closes the archive. Audio delivered after stop
// is dropped.
func (r *recording) stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.capture.Stop()
		r.capture.ClearCallback()

		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()

		if err := r.archive.Close(); err != nil {
			log.Errorf("recording close error: %v", err)
			r.mu.Lock()
			if r.writeErr == nil {
				r.writeErr = err
			}
			r.mu.Unlock()
		}
		log.Info("recording_stop")
	})
}

// archiveErr is the first write or close failure of the recording file.
func (r *recording) archiveErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeErr
}

// seconds is the captured audio length.
func (r *recording) seconds() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return float64(r.frames) / float64(encoder.DefaultFormat.SampleRate)
}
