package transcriber

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeReply scripts one call to Fake.Transcribe.
type FakeReply struct {
	Text        string
	Translation string
	Err         error
	Delay       time.Duration
}

// Call records what a Fake was asked to transcribe.
type Call struct {
	Audio    []byte
	FileName string
	APIKey   string
}

// Fake replays scripted replies in call order. Once the script runs out it
// keeps answering with Default.
type Fake struct {
	Default FakeReply

	mu      sync.Mutex
	replies []FakeReply
	calls   []Call
	active  int
	maxSeen int
}

func NewFake(text string, err error) *Fake {
	return &Fake{Default: FakeReply{Text: text, Err: err}}
}

// NewScriptedFake answers the n-th call with replies[n].
func NewScriptedFake(replies ...FakeReply) *Fake {
	return &Fake{replies: replies}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Transcribe(ctx context.Context, audio []byte, fileName, apiKey string) (*Result, error) {
	f.mu.Lock()
	reply := f.Default
	if n := len(f.calls); n < len(f.replies) {
		reply = f.replies[n]
	}
	f.calls = append(f.calls, Call{Audio: append([]byte(nil), audio...), FileName: fileName, APIKey: apiKey})
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if reply.Err != nil {
		return nil, fmt.Errorf("fake transcriber error: %w", reply.Err)
	}
	return &Result{
		Text:        reply.Text,
		Translation: reply.Translation,
		Metrics:     &NetworkMetrics{Total: reply.Delay},
	}, nil
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// MaxConcurrent is the largest number of overlapping Transcribe calls seen.
func (f *Fake) MaxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxSeen
}
