package realtime

import (
	"context"
	"sync"

	"aitranscriber/metrics"
)

type job struct {
	index int
	pcm   []byte
	final bool
}

// pipeline runs jobs one at a time, in the order they were enqueued, on a
// single worker goroutine. process returns non-nil only when it observed
// cancellation; that stops the worker and is kept as the pipeline error.
type pipeline struct {
	process func(ctx context.Context, j job) error

	mu     sync.Mutex
	queue  []job
	closed bool
	err    error

	wake chan struct{}
	done chan struct{}
}

func newPipeline(ctx context.Context, process func(context.Context, job) error) *pipeline {
	p := &pipeline{
		process: process,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.run(ctx)
	return p
}

// enqueue never blocks. It reports false once the pipeline is closed or the
// worker has stopped.
func (p *pipeline) enqueue(j job) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, j)
	p.mu.Unlock()
	metrics.ChunksPending.Inc()
	p.signal()
	return true
}

// close lets the worker exit once the queue is drained.
func (p *pipeline) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.signal()
}

func (p *pipeline) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *pipeline) pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// error is valid once done is closed.
func (p *pipeline) error() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *pipeline) run(ctx context.Context) {
	defer close(p.done)
	defer p.stop(nil)

	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			closed := p.closed
			p.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-p.wake:
			case <-ctx.Done():
				p.stop(context.Cause(ctx))
				return
			}
			continue
		}
		j := p.queue[0]
		p.queue[0] = job{}
		p.queue = p.queue[1:]
		p.mu.Unlock()
		metrics.ChunksPending.Dec()

		if ctx.Err() != nil {
			p.stop(context.Cause(ctx))
			return
		}
		if err := p.process(ctx, j); err != nil {
			p.stop(err)
			return
		}
	}
}

// stop refuses further work and discards whatever is still queued.
func (p *pipeline) stop(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.err == nil {
		p.err = err
	}
	if n := len(p.queue); n > 0 {
		metrics.ChunksPending.Sub(float64(n))
		p.queue = nil
	}
}
