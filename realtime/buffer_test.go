package realtime

import (
	"bytes"
	"testing"
	"time"

	"aitranscriber/encoder"
)

func TestChunkSize(t *testing.T) {
	mono16 := encoder.Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
	tests := []struct {
		name string
		f    encoder.Format
		d    time.Duration
		want int
	}{
		{"default", mono16, 0, 160000},
		{"five seconds", mono16, 5 * time.Second, 160000},
		{"rounds up", mono16, 1600 * time.Millisecond, 64000},
		{"rounds down", mono16, 1400 * time.Millisecond, 32000},
		{"at least one second", mono16, 100 * time.Millisecond, 32000},
		{"stereo 24-bit", encoder.Format{SampleRate: 8000, Channels: 2, BitsPerSample: 24}, time.Second, 48000},
		{"never below one frame", encoder.Format{SampleRate: 0, Channels: 2, BitsPerSample: 16}, time.Second, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChunkSize(tt.f, tt.d); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func seq(n int, start byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}

func TestChunkBufferTake(t *testing.T) {
	b := newChunkBuffer(4)

	if _, _, ok := b.take(false); ok {
		t.Fatal("empty buffer produced a chunk")
	}
	if _, _, ok := b.take(true); ok {
		t.Fatal("empty buffer produced a forced chunk")
	}

	b.append(seq(3, 0))
	if _, _, ok := b.take(false); ok {
		t.Fatal("short buffer produced a chunk without force")
	}

	b.append(seq(7, 3))
	chunk, final, ok := b.take(false)
	if !ok || final {
		t.Fatalf("ok=%v final=%v, want full non-final chunk", ok, final)
	}
	if !bytes.Equal(chunk, []byte{0, 1, 2, 3}) {
		t.Errorf("chunk = %v", chunk)
	}
	chunk, _, _ = b.take(false)
	if !bytes.Equal(chunk, []byte{4, 5, 6, 7}) {
		t.Errorf("second chunk = %v", chunk)
	}
	if b.len() != 2 {
		t.Errorf("len = %d, want 2", b.len())
	}

	chunk, final, ok = b.take(true)
	if !ok || !final || !bytes.Equal(chunk, []byte{8, 9}) {
		t.Errorf("forced remainder = %v final=%v ok=%v", chunk, final, ok)
	}
	if b.len() != 0 {
		t.Errorf("len = %d after forced take", b.len())
	}
}

func TestChunkBufferForcedFullChunk(t *testing.T) {
	b := newChunkBuffer(4)
	b.append(seq(8, 0))

	_, final, _ := b.take(true)
	if final {
		t.Error("first of two full chunks marked final")
	}
	_, final, ok := b.take(true)
	if !ok || !final {
		t.Errorf("last full chunk: ok=%v final=%v, want final", ok, final)
	}
	if _, _, ok := b.take(true); ok {
		t.Error("drained buffer produced another chunk")
	}
}

func TestChunkBufferDeterministic(t *testing.T) {
	const size = 6
	for _, r := range []int{0, 1, 5} {
		b := newChunkBuffer(size)
		total := 3*size + r
		data := seq(total, 0)
		// uneven appends must not change the chunking
		for i := 0; i < total; i += 5 {
			b.append(data[i:min(i+5, total)])
		}

		var got [][]byte
		for {
			chunk, final, ok := b.take(false)
			if !ok {
				break
			}
			if final {
				t.Errorf("r=%d: non-forced take marked final", r)
			}
			got = append(got, chunk)
		}
		if len(got) != 3 {
			t.Fatalf("r=%d: got %d full chunks, want 3", r, len(got))
		}
		chunk, final, ok := b.take(true)
		if r == 0 {
			if ok {
				t.Errorf("r=0: unexpected final chunk %v", chunk)
			}
			continue
		}
		if !ok || !final || len(chunk) != r {
			t.Errorf("r=%d: final chunk len=%d final=%v ok=%v", r, len(chunk), final, ok)
		}
		got = append(got, chunk)
		if !bytes.Equal(bytes.Join(got, nil), data) {
			t.Errorf("r=%d: chunks do not reassemble the input", r)
		}
	}
}

func TestChunkBufferRelease(t *testing.T) {
	b := newChunkBuffer(4)
	b.append(seq(3, 0))
	b.release()
	b.append(seq(8, 0))
	if b.len() != 0 {
		t.Errorf("len = %d after release, want 0", b.len())
	}
	if _, _, ok := b.take(true); ok {
		t.Error("released buffer produced a chunk")
	}
}
