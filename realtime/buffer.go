package realtime

import (
	"math"
	"sync"
	"time"

	"aitranscriber/encoder"
)

const DefaultChunkDuration = 5 * time.Second

// ChunkSize is the byte length of one chunk: whole seconds of audio, never
// less than one frame so a chunk boundary cannot split a sample.
func ChunkSize(f encoder.Format, d time.Duration) int {
	if d <= 0 {
		d = DefaultChunkDuration
	}
	seconds := max(1, int(math.Round(d.Seconds())))
	return max(f.BytesPerSecond()*seconds, f.BlockAlign())
}

// chunkBuffer accumulates captured PCM and hands out fixed-size prefixes.
type chunkBuffer struct {
	mu        sync.Mutex
	buf       []byte
	chunkSize int
	released  bool
}

func newChunkBuffer(chunkSize int) *chunkBuffer {
	return &chunkBuffer{chunkSize: chunkSize}
}

func (b *chunkBuffer) append(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.buf = append(b.buf, p...)
}

// take removes the next chunk from the head. A full chunk is final only when
// force is set and nothing remains behind it; with force, a short remainder
// is returned as the final chunk.
func (b *chunkBuffer) take(force bool) (chunk []byte, final, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.buf)
	switch {
	case n >= b.chunkSize:
		chunk = make([]byte, b.chunkSize)
		copy(chunk, b.buf)
		b.buf = b.buf[:copy(b.buf, b.buf[b.chunkSize:])]
		return chunk, force && len(b.buf) == 0, true
	case force && n > 0:
		chunk = make([]byte, n)
		copy(chunk, b.buf)
		b.buf = b.buf[:0]
		return chunk, true, true
	}
	return nil, false, false
}

func (b *chunkBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// release drops buffered audio; later appends are ignored.
func (b *chunkBuffer) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = nil
	b.released = true
}
