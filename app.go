package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"aitranscriber/audio"
	"aitranscriber/config"
	"aitranscriber/encoder"
	"aitranscriber/log"
	"aitranscriber/opener"
	"aitranscriber/transcriber"
)

var errFinalizing = errors.New("still finalizing the previous recording")

// overrides holds command line values that win over the settings file.
type overrides struct {
	provider string
	realtime *bool
	chunk    int
}

// app owns the capture device and runs one recording at a time.
type app struct {
	store   *config.Store
	over    overrides
	capture audio.CaptureDevice
	device  *audio.DeviceInfo
	sink    Sink
	timeout time.Duration

	// newClient and newArchive are swapped out in tests.
	newClient  func(config.Settings) (transcriber.Client, error)
	newArchive func(path, kind string, f encoder.Format) (encoder.Archive, error)

	mu         sync.Mutex
	active     *recording
	finalizing chan struct{}
	lastText   string
}

func newApp(store *config.Store, over overrides, capture audio.CaptureDevice, sink Sink, timeout time.Duration) *app {
	return &app{
		store:     store,
		over:      over,
		capture:   capture,
		sink:      sink,
		timeout:   timeout,
		newClient:  newClient,
		newArchive: encoder.NewArchive,
	}
}

func newClient(s config.Settings) (transcriber.Client, error) {
	return transcriber.New(s.Provider, transcriber.Options{
		Model:          s.Model,
		SourceLanguage: s.SourceLanguage,
		TargetLanguage: s.TargetLanguage,
	})
}

// settings is the stored configuration with command line overrides applied.
func (a *app) settings() config.Settings {
	s := a.store.Get()
	if a.over.provider != "" {
		s.Provider = a.over.provider
	}
	if a.over.realtime != nil {
		s.Realtime = *a.over.realtime
	}
	if a.over.chunk > 0 {
		s.ChunkSeconds = a.over.chunk
	}
	return s
}

// apiKey is read for every chunk so a key saved mid-recording is picked up.
func (a *app) apiKey() string {
	if a.over.provider == "" {
		return a.store.APIKey()
	}
	return a.settings().ResolveKey()
}

func modeLineText(s config.Settings) string {
	mode := "batch"
	if s.Realtime {
		mode = fmt.Sprintf("realtime %ds", s.ChunkSeconds)
	}
	return fmt.Sprintf("[%s | %s | %s>%s]", s.ArchiveFormat, s.Provider+" "+mode, s.SourceLanguage, s.TargetLanguage)
}

func (a *app) recording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active != nil
}

// start begins a new recording.
func (a *app) start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active != nil {
		return nil
	}
	if a.finalizing != nil {
		select {
		case <-a.finalizing:
		default:
			return errFinalizing
		}
	}

	s := a.settings()
	rec, err := startRecording(a, s)
	if err != nil {
		return err
	}
	a.active = rec
	a.sink.RecordingStart(a.capture.DeviceName())
	return nil
}

// stop ends the current recording and finishes it in the background. The
// returned channel closes once the transcript has been delivered.
func (a *app) stop() <-chan struct{} {
	a.mu.Lock()
	rec := a.active
	a.active = nil
	if rec == nil {
		done := a.finalizing
		a.mu.Unlock()
		if done == nil {
			c := make(chan struct{})
			close(c)
			return c
		}
		return done
	}
	done := make(chan struct{})
	a.finalizing = done
	a.mu.Unlock()

	rec.stop()
	a.sink.RecordingStop()
	go func() {
		defer close(done)
		a.finish(rec)
	}()
	return done
}

// toggle starts a recording or stops the running one.
func (a *app) toggle() {
	if a.recording() {
		a.stop()
		return
	}
	if err := a.start(); err != nil {
		log.Errorf("recording start error: %v", err)
		a.sink.Status("Error: " + err.Error())
	}
}

// reload re-reads the settings file. A running recording keeps its
// provider but picks up a new API key on the next chunk.
func (a *app) reload() error {
	if _, err := a.store.Reload(); err != nil {
		log.Warnf("settings reload failed: %v", err)
		return err
	}
	log.Info("settings_reloaded")
	a.sink.ModeLine(modeLineText(a.settings()))
	a.sink.DeviceLine(deviceLineText(a.device))
	return nil
}

func (a *app) openFolder() error {
	return opener.Open(a.settings().TranscriptsDir())
}

func (a *app) last() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastText
}

// shutdown stops any recording and waits for it to be delivered.
func (a *app) shutdown() {
	select {
	case <-a.stop():
	case <-time.After(a.timeout + 5*time.Second):
		log.Warn("shutdown: finalization did not finish in time")
	}
}
