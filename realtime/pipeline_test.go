package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func waitDone(t *testing.T, p *pipeline) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(3 * time.Second):
		t.Fatal("pipeline did not finish")
	}
}

func TestPipelineRunsInOrder(t *testing.T) {
	var (
		mu       sync.Mutex
		got      []int
		inFlight int
		maxSeen  int
	)
	p := newPipeline(context.Background(), func(ctx context.Context, j job) error {
		mu.Lock()
		inFlight++
		maxSeen = max(maxSeen, inFlight)
		mu.Unlock()

		// earlier jobs take longer
		time.Sleep(time.Duration(10-j.index) * time.Millisecond)

		mu.Lock()
		inFlight--
		got = append(got, j.index)
		mu.Unlock()
		return nil
	})
	for i := 1; i <= 5; i++ {
		if !p.enqueue(job{index: i}) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	p.close()
	waitDone(t, p)

	if p.error() != nil {
		t.Errorf("error = %v", p.error())
	}
	want := []int{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if maxSeen != 1 {
		t.Errorf("max in flight = %d, want 1", maxSeen)
	}
}

func TestPipelineEnqueueAfterClose(t *testing.T) {
	p := newPipeline(context.Background(), func(context.Context, job) error { return nil })
	p.close()
	if p.enqueue(job{index: 1}) {
		t.Error("enqueue accepted after close")
	}
	waitDone(t, p)
}

func TestPipelineCancelStopsWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var calls int
	p := newPipeline(ctx, func(ctx context.Context, j job) error {
		calls++
		close(started)
		<-ctx.Done()
		return context.Cause(ctx)
	})
	p.enqueue(job{index: 1})
	p.enqueue(job{index: 2})
	<-started
	cancel()
	waitDone(t, p)

	if !errors.Is(p.error(), context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", p.error())
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if p.pending() != 0 {
		t.Errorf("pending = %d, want 0", p.pending())
	}
	if p.enqueue(job{index: 3}) {
		t.Error("enqueue accepted after worker stopped")
	}
}

func TestPipelineCancelWhileIdle(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	p := newPipeline(ctx, func(context.Context, job) error { return nil })
	errStop := errors.New("stop")
	cancel(errStop)
	waitDone(t, p)
	if !errors.Is(p.error(), errStop) {
		t.Errorf("error = %v, want cause", p.error())
	}
}
