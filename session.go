package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"aitranscriber/audio"
	"aitranscriber/config"
	"aitranscriber/log"
	"aitranscriber/metrics"
	"aitranscriber/output"
	"aitranscriber/transcriber"
	"aitranscriber/translator"
)

const (
	statusNoKey         = "Recording saved. Provide an API key to transcribe."
	statusNoTranslation = "[No translation returned]"
	statusNoAudio       = "No audio captured."
	statusCompleted     = "Completed."

	// recordings shorter than this are not transcribed
	minRecording = 100 * time.Millisecond
)

// delivery is one finished transcript on its way to disk and the display.
type delivery struct {
	id       string
	source   string
	mode     string
	settings config.Settings
	result   transcriber.Result
	// failed is set when some audio could not be transcribed.
	failed bool
}

// finish completes a stopped recording and delivers its transcript.
func (a *app) finish(rec *recording) {
	s := rec.settings
	mode := sessionMode(s)
	seconds := rec.seconds()
	source := rec.archive.Path()
	archiveErr := rec.archiveErr()
	if archiveErr != nil {
		a.sink.Status("Recording file error: " + archiveErr.Error())
	}

	if time.Duration(seconds*float64(time.Second)) < minRecording {
		if rec.manager != nil {
			rec.manager.Dispose()
		}
		log.SessionEnd(rec.id, 0, 0, seconds)
		metrics.Sessions.WithLabelValues(mode, "empty").Inc()
		a.sink.Status(statusNoAudio)
		return
	}

	d := delivery{id: rec.id, source: source, mode: mode, settings: s, failed: archiveErr != nil}
	chunks, failures := 0, 0

	if rec.manager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		res, err := rec.manager.Complete(ctx)
		cancel()
		rec.manager.Dispose()

		stats := rec.manager.Stats()
		chunks, failures = stats.Queued, stats.Failed
		log.SessionEnd(rec.id, chunks, failures, seconds)

		if stats.Transcribed == 0 && stats.Failed == 0 && strings.TrimSpace(a.apiKey()) == "" {
			metrics.Sessions.WithLabelValues(mode, "no_key").Inc()
			a.sink.Status(statusNoKey)
			return
		}
		if err != nil {
			log.Errorf("finalize error: %v", err)
			a.sink.Status("Finalization interrupted: " + err.Error())
			d.failed = true
		}
		if failures > 0 {
			d.failed = true
		}
		d.result = res
	} else {
		key := a.apiKey()
		if strings.TrimSpace(key) == "" {
			log.SessionEnd(rec.id, 0, 0, seconds)
			metrics.Sessions.WithLabelValues(mode, "no_key").Inc()
			a.sink.Status(statusNoKey)
			return
		}
		a.sink.Status("Transcribing...")
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		res, err := transcribeFile(ctx, rec.client, source, key)
		cancel()
		chunks = 1
		if err != nil {
			log.SessionEnd(rec.id, chunks, 1, seconds)
			log.Errorf("transcription error: %v", err)
			metrics.Sessions.WithLabelValues(mode, "failed").Inc()
			a.sink.Status("Error: " + err.Error())
			return
		}
		log.SessionEnd(rec.id, chunks, 0, seconds)
		d.result = res
	}

	a.deliver(d)
}

// transcribeFile uploads a whole recording with the loader's readiness and
// format rules.
func transcribeFile(ctx context.Context, client transcriber.Client, path, apiKey string) (transcriber.Result, error) {
	up, err := audio.LoadForUpload(ctx, path)
	if err != nil {
		return transcriber.Result{}, err
	}
	start := time.Now()
	res, err := client.Transcribe(ctx, up.Data, up.FileName, apiKey)
	metrics.TranscriptionLatency.WithLabelValues(client.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		return transcriber.Result{}, err
	}
	if res == nil {
		return transcriber.Result{}, nil
	}
	return transcriber.Result{
		Text:        strings.TrimSpace(res.Text),
		Translation: strings.TrimSpace(res.Translation),
		Metrics:     res.Metrics,
		RateLimit:   res.RateLimit,
	}, nil
}

// translate runs the configured translation service over text. It returns
// ErrDisabled with the endpoint status when no usable service is set.
func translate(ctx context.Context, s config.Settings, text string) (string, translator.EndpointStatus, error) {
	endpoint, status, err := translator.ParseEndpoint(s.TranslationEndpoint)
	if err != nil {
		log.Warnf("translation endpoint: %v", err)
	}
	if status != translator.EndpointConfigured {
		return "", status, translator.ErrDisabled
	}
	out, err := translator.New(endpoint, s.SourceLanguage, s.TargetLanguage).Translate(ctx, text)
	return strings.TrimSpace(out), status, err
}

// deliver translates, saves and displays a finished transcript.
func (a *app) deliver(d delivery) {
	s := d.settings
	res := d.result
	status := statusCompleted

	if res.Text != "" {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		tr, epStatus, err := translate(ctx, s, res.Text)
		cancel()
		switch {
		case errors.Is(err, translator.ErrDisabled):
			if res.Translation == "" {
				status = epStatus.CompletionStatus()
			}
		case err != nil:
			msg := translator.UserMessage(err, d.mode == "realtime")
			log.Warn(msg)
			a.sink.Status(msg)
		case tr != "":
			res.Translation = tr
		}
	}

	paths, err := output.Write(s.TranscriptsDir(), output.Transcript{
		Source:         d.source,
		Text:           res.Text,
		Translation:    res.Translation,
		SourceLanguage: transcriber.LanguageName(s.SourceLanguage),
		TargetLanguage: transcriber.LanguageName(s.TargetLanguage),
		GeneratedAt:    time.Now(),
	})
	if err != nil {
		log.Errorf("save transcript: %v", err)
		a.sink.Status("Error: " + err.Error())
		metrics.Sessions.WithLabelValues(d.mode, "failed").Inc()
		return
	}
	log.TranscriptSaved(paths.Text, paths.Markdown)
	log.TranscriptionText(res.Text, res.Translation)

	a.mu.Lock()
	a.lastText = res.Text
	a.mu.Unlock()

	shown := res.Translation
	if shown == "" {
		shown = statusNoTranslation
	}
	a.sink.Transcript(res.Text, shown)

	outcome := "ok"
	if d.failed {
		outcome = "partial"
		status = "Completed with errors. Some audio could not be transcribed."
	}
	metrics.Sessions.WithLabelValues(d.mode, outcome).Inc()
	a.sink.Status(fmt.Sprintf("%s Saved %s", status, paths.Text))
}

// runFile transcribes an existing recording and returns the exit code.
func (a *app) runFile(path string) int {
	s := a.settings()
	client, err := a.newClient(s)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	key := a.apiKey()
	if strings.TrimSpace(key) == "" {
		a.sink.Status(statusNoKey)
		return 1
	}

	id := uuid.NewString()
	log.SessionStart(id, client.Name(), "file")
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	res, err := transcribeFile(ctx, client, path, key)
	cancel()
	if err != nil {
		log.SessionEnd(id, 1, 1, 0)
		log.Errorf("transcription error: %v", err)
		metrics.Sessions.WithLabelValues("file", "failed").Inc()
		a.sink.Status("Error: " + err.Error())
		return 1
	}
	log.SessionEnd(id, 1, 0, 0)
	a.deliver(delivery{id: id, source: path, mode: "file", settings: s, result: res})
	return 0
}
