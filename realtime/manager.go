package realtime

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"aitranscriber/encoder"
	"aitranscriber/log"
	"aitranscriber/metrics"
	"aitranscriber/transcriber"
)

// ErrSessionClosed is returned by Complete once the manager has been disposed.
var ErrSessionClosed = errors.New("session no longer available")

const DefaultFileName = "realtime_chunk.wav"

type State int

const (
	StateIdle State = iota
	StateActive
	StateFinalizing
	StateCompleted
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Update is published after each chunk is transcribed. Index starts at 1 and
// follows capture order; the Full fields are the running totals including
// this chunk.
type Update struct {
	Index              int
	SegmentText        string
	SegmentTranslation string
	FullTranscript     string
	FullTranslation    string
	Final              bool
}

// Failure reports one chunk that could not be encoded or transcribed. The
// session keeps going after a failure.
type Failure struct {
	Index int
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("chunk %d: %v", f.Index, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

type Config struct {
	Format        encoder.Format
	ChunkDuration time.Duration

	// APIKey is called once per chunk. An empty key skips the chunk.
	APIKey func() string

	FileName  string
	SessionID string
}

type Stats struct {
	Queued      int
	Transcribed int
	Skipped     int
	Failed      int
}

// Manager cuts a live PCM stream into fixed-length chunks and transcribes
// them one at a time, in order, while capture continues.
type Manager struct {
	client   transcriber.Client
	format   encoder.Format
	apiKey   func() string
	fileName string
	id       string

	ctx    context.Context
	cancel context.CancelCauseFunc

	buf  *chunkBuffer
	agg  aggregator
	pipe *pipeline

	// chainMu makes take+enqueue atomic so chunks enter the pipeline in
	// capture order.
	chainMu sync.Mutex
	next    int

	obsMu     sync.Mutex
	onUpdate  []func(Update)
	onFailure []func(Failure)

	mu       sync.Mutex
	state    State
	finished chan struct{}
	final    transcriber.Result
	finalErr error

	disposeOnce sync.Once

	queued      atomic.Int64
	transcribed atomic.Int64
	skipped     atomic.Int64
	failed      atomic.Int64
}

func New(ctx context.Context, client transcriber.Client, cfg Config) (*Manager, error) {
	if client == nil {
		return nil, errors.New("realtime: nil transcription client")
	}
	if cfg.APIKey == nil {
		return nil, errors.New("realtime: nil API key accessor")
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, fmt.Errorf("realtime: %w", err)
	}
	if cfg.FileName == "" {
		cfg.FileName = DefaultFileName
	}

	m := &Manager{
		client:   client,
		format:   cfg.Format,
		apiKey:   cfg.APIKey,
		fileName: cfg.FileName,
		id:       cfg.SessionID,
		buf:      newChunkBuffer(ChunkSize(cfg.Format, cfg.ChunkDuration)),
		finished: make(chan struct{}),
	}
	m.ctx, m.cancel = context.WithCancelCause(ctx)
	m.pipe = newPipeline(m.ctx, m.process)
	return m, nil
}

// OnUpdate registers fn for every transcribed chunk. Callbacks run on the
// worker goroutine and must not block for long.
func (m *Manager) OnUpdate(fn func(Update)) {
	m.obsMu.Lock()
	m.onUpdate = append(m.onUpdate, fn)
	m.obsMu.Unlock()
}

// OnFailure registers fn for every chunk that fails.
func (m *Manager) OnFailure(fn func(Failure)) {
	m.obsMu.Lock()
	m.onFailure = append(m.onFailure, fn)
	m.obsMu.Unlock()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Stats() Stats {
	return Stats{
		Queued:      int(m.queued.Load()),
		Transcribed: int(m.transcribed.Load()),
		Skipped:     int(m.skipped.Load()),
		Failed:      int(m.failed.Load()),
	}
}

// AddAudio buffers captured PCM and queues every complete chunk. It never
// blocks on transcription and is a no-op once Complete or Dispose has been
// called.
func (m *Manager) AddAudio(p []byte) {
	if len(p) == 0 {
		return
	}
	m.chainMu.Lock()
	defer m.chainMu.Unlock()

	m.mu.Lock()
	switch m.state {
	case StateIdle:
		m.state = StateActive
	case StateActive:
	default:
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if m.ctx.Err() != nil {
		return
	}
	m.buf.append(p)
	m.drainLocked(false)
}

func (m *Manager) drainLocked(force bool) {
	for {
		chunk, final, ok := m.buf.take(force)
		if !ok {
			return
		}
		m.next++
		j := job{index: m.next, pcm: chunk, final: final}
		if !m.pipe.enqueue(j) {
			log.Warnf("realtime: dropped chunk %d, pipeline closed", j.index)
			return
		}
		m.queued.Add(1)
		metrics.ChunksQueued.Inc()
		log.ChunkQueued(m.id, j.index, len(chunk), final)
	}
}

// Complete flushes the remaining audio as the final chunk, waits for every
// queued chunk and returns the trimmed transcript and translation.
//
// Canceling ctx cancels the session. The returned error then wraps the
// cancellation and the Result holds whatever was aggregated so far. Calling
// Complete again returns the first call's outcome.
func (m *Manager) Complete(ctx context.Context) (transcriber.Result, error) {
	m.mu.Lock()
	switch m.state {
	case StateDisposed:
		m.mu.Unlock()
		return transcriber.Result{}, ErrSessionClosed
	case StateFinalizing, StateCompleted:
		finished := m.finished
		m.mu.Unlock()
		select {
		case <-finished:
			return m.final, m.finalErr
		case <-ctx.Done():
			return transcriber.Result{}, ctx.Err()
		}
	}
	m.state = StateFinalizing
	m.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { m.cancel(context.Cause(ctx)) })
	defer stop()

	m.chainMu.Lock()
	m.drainLocked(true)
	m.pipe.close()
	m.chainMu.Unlock()

	var err error
	select {
	case <-m.pipe.done:
		err = m.pipe.error()
	case <-m.ctx.Done():
		select {
		case <-m.pipe.done:
			err = m.pipe.error()
		default:
			err = context.Cause(m.ctx)
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		err = fmt.Errorf("realtime: finalize: %w", err)
	}
	res := m.agg.result()

	m.mu.Lock()
	m.final, m.finalErr = res, err
	if m.state == StateFinalizing {
		m.state = StateCompleted
	}
	close(m.finished)
	m.mu.Unlock()
	return res, err
}

// Dispose cancels the session and drops buffered audio. It is safe to call
// more than once and after Complete.
func (m *Manager) Dispose() {
	m.disposeOnce.Do(func() {
		m.mu.Lock()
		m.state = StateDisposed
		m.mu.Unlock()

		m.cancel(nil)
		m.pipe.close()
		m.buf.release()
	})
}

func (m *Manager) process(ctx context.Context, j job) error {
	key := strings.TrimSpace(m.apiKey())
	if key == "" {
		m.skip(j, "no API key")
		return nil
	}

	wav, err := encoder.EncodeWAV(j.pcm, m.format)
	if errors.Is(err, encoder.ErrEmptyAudio) {
		m.skip(j, "empty audio")
		return nil
	}
	if err != nil {
		m.fail(j, fmt.Errorf("encode: %w", err))
		return nil
	}

	start := time.Now()
	res, err := m.client.Transcribe(ctx, wav, m.fileName, key)
	if err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		m.fail(j, err)
		return nil
	}
	if res == nil {
		res = &transcriber.Result{}
	}
	elapsed := time.Since(start)
	metrics.TranscriptionLatency.WithLabelValues(m.client.Name()).Observe(elapsed.Seconds())
	metrics.ChunksTranscribed.Inc()
	m.transcribed.Add(1)
	log.ChunkTranscribed(m.id, j.index, len(j.pcm), chunkMetrics(res, elapsed, float64(len(j.pcm))/float64(m.format.BytesPerSecond())))

	full, fullTranslation := m.agg.append(res.Text, res.Translation)
	m.emitUpdate(Update{
		Index:              j.index,
		SegmentText:        strings.TrimSpace(res.Text),
		SegmentTranslation: strings.TrimSpace(res.Translation),
		FullTranscript:     full,
		FullTranslation:    fullTranslation,
		Final:              j.final,
	})
	return nil
}

func (m *Manager) skip(j job, reason string) {
	m.skipped.Add(1)
	metrics.ChunksSkipped.Inc()
	log.ChunkSkipped(m.id, j.index, reason)
}

func (m *Manager) fail(j job, err error) {
	m.failed.Add(1)
	metrics.ChunksFailed.Inc()
	log.ChunkFailed(m.id, j.index, err)
	f := Failure{Index: j.index, Err: err}

	m.obsMu.Lock()
	fns := slices.Clone(m.onFailure)
	m.obsMu.Unlock()
	for _, fn := range fns {
		fn(f)
	}
}

func (m *Manager) emitUpdate(u Update) {
	m.obsMu.Lock()
	fns := slices.Clone(m.onUpdate)
	m.obsMu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}

func chunkMetrics(res *transcriber.Result, elapsed time.Duration, audioSeconds float64) log.Metrics {
	lm := log.Metrics{
		AudioLengthS: audioSeconds,
		TotalTimeMs:  float64(elapsed.Microseconds()) / 1000,
		RateLimit:    res.RateLimit,
	}
	if nm := res.Metrics; nm != nil {
		lm.DNSTimeMs = float64(nm.DNS.Microseconds()) / 1000
		lm.TLSTimeMs = float64(nm.TLS.Microseconds()) / 1000
		lm.TTFBMs = float64(nm.TTFB.Microseconds()) / 1000
		lm.ConnReused = nm.ConnReused
	}
	return lm
}
