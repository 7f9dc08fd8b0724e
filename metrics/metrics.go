// Package metrics holds the Prometheus collectors for recording sessions and
// exposes them on an optional HTTP listener.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Chunk metrics
	ChunksQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aitranscriber_chunks_queued_total",
		Help: "Total number of audio chunks queued for transcription",
	})
	ChunksTranscribed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aitranscriber_chunks_transcribed_total",
		Help: "Total number of audio chunks transcribed",
	})
	ChunksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aitranscriber_chunks_skipped_total",
		Help: "Total number of audio chunks skipped without an API key",
	})
	ChunksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aitranscriber_chunks_failed_total",
		Help: "Total number of audio chunks that failed to transcribe",
	})
	ChunksPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aitranscriber_chunks_pending",
		Help: "Number of chunks waiting for the transcription worker",
	})

	// Provider metrics
	TranscriptionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aitranscriber_transcription_duration_seconds",
		Help:    "Duration of one transcription request",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"provider"})
	TranslationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aitranscriber_translation_requests_total",
		Help: "Total number of translation requests by result",
	}, []string{"result"})

	// Session metrics
	Sessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aitranscriber_sessions_total",
		Help: "Total number of recording sessions by mode and outcome",
	}, []string{"mode", "outcome"})
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
