package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"aitranscriber/encoder"
)

func TestIsBluetooth(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Jabra Evolve2", true},
		{"Headset (BT)", true},
		{"Headset BT)", true},
		{"Mic [BT]", true},
		{"Subtitle Capture", false},
		{"Built-in Microphone", false},
		{"USB Audio Device", false},
	}
	for _, tt := range tests {
		if got := IsBluetooth(tt.name); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestApplyGainClamps(t *testing.T) {
	dst := make([]byte, 6)
	applyGain(dst, []int16{100, 20000, -20000}, 2)
	want := []int16{200, 32767, -32768}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(dst[i*2:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func tonePCM(frames int) []byte {
	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func writeWAV(t *testing.T, pcm []byte) string {
	t.Helper()
	data, err := encoder.EncodeWAV(pcm, encoder.DefaultFormat)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "in.wav")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFakeCaptureDeliversFile(t *testing.T) {
	pcm := tonePCM(5000)
	ctx, err := NewFakeContext(writeWAV(t, pcm), false)
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Format() != encoder.DefaultFormat {
		t.Errorf("format = %v", ctx.Format())
	}
	capture, err := ctx.NewCapture(nil, CaptureConfig{})
	if err != nil {
		t.Fatal(err)
	}
	fc := capture.(*FakeCapture)

	var mu sync.Mutex
	var got []byte
	var frames uint32
	capture.SetCallback(func(data []byte, n uint32) {
		mu.Lock()
		got = append(got, data...)
		frames += n
		mu.Unlock()
	})
	if err := capture.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-fc.AudioDone():
	case <-time.After(2 * time.Second):
		t.Fatal("audio never finished")
	}
	capture.Stop()

	mu.Lock()
	defer mu.Unlock()
	if !bytes.Equal(got, pcm) {
		t.Errorf("delivered %d bytes, want %d identical bytes", len(got), len(pcm))
	}
	if frames != 5000 {
		t.Errorf("frames = %d, want 5000", frames)
	}
}

func TestFakeCaptureRealtimePaced(t *testing.T) {
	pcm := tonePCM(2048)
	fctx := NewFakeContextPCM(pcm, encoder.DefaultFormat, true)
	capture, _ := fctx.NewCapture(nil, CaptureConfig{})
	fc := capture.(*FakeCapture)

	var mu sync.Mutex
	var n int
	capture.SetCallback(func(data []byte, _ uint32) {
		mu.Lock()
		n += len(data)
		mu.Unlock()
	})
	start := time.Now()
	capture.Start()
	select {
	case <-fc.AudioDone():
	case <-time.After(3 * time.Second):
		t.Fatal("audio never finished")
	}
	// two 1024-frame blocks at 16kHz take at least one interval (64ms)
	if time.Since(start) < 50*time.Millisecond {
		t.Error("realtime capture was not paced")
	}
	capture.Close()

	mu.Lock()
	defer mu.Unlock()
	if n < len(pcm) {
		t.Errorf("delivered %d bytes, want at least %d", n, len(pcm))
	}
}

func TestNewFakeContextRejectsMissing(t *testing.T) {
	if _, err := NewFakeContext(filepath.Join(t.TempDir(), "nope.wav"), false); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadForUpload(t *testing.T) {
	fileReadyDelay = time.Millisecond
	t.Cleanup(func() { fileReadyDelay = 200 * time.Millisecond })

	t.Run("wav", func(t *testing.T) {
		path := writeWAV(t, tonePCM(1000))
		up, err := LoadForUpload(context.Background(), path)
		if err != nil {
			t.Fatal(err)
		}
		if up.FileName != "in.wav" || string(up.Data[:4]) != "RIFF" {
			t.Errorf("got %q with header %q", up.FileName, up.Data[:4])
		}
	})

	t.Run("too small", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tiny.wav")
		os.WriteFile(path, make([]byte, MinFileSize-1), 0644)
		if _, err := LoadForUpload(context.Background(), path); !errors.Is(err, ErrFileEmpty) {
			t.Errorf("got %v, want ErrFileEmpty", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := LoadForUpload(context.Background(), filepath.Join(t.TempDir(), "gone.wav"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("got %v, want not-exist", err)
		}
	})

	t.Run("flac converted", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rec.flac")
		w, err := encoder.CreateFlac(path, encoder.DefaultFormat)
		if err != nil {
			t.Fatal(err)
		}
		pcm := tonePCM(6000)
		if err := w.Write(pcm); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}

		up, err := LoadForUpload(context.Background(), path)
		if err != nil {
			t.Fatal(err)
		}
		if up.FileName != "rec.wav" {
			t.Errorf("file name = %q, want rec.wav", up.FileName)
		}
		got, _, err := encoder.DecodeWAVBytes(up.Data)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, pcm) {
			t.Error("converted audio differs from the recording")
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := LoadForUpload(ctx, writeWAV(t, tonePCM(100))); !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	})
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v", got)
	}
	if got := RMS(make([]byte, 64)); got != 0 {
		t.Errorf("RMS(silence) = %v", got)
	}
	full := make([]byte, 8)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(full[i*2:], uint16(0x8000)) // -32768
	}
	if got := RMS(full); math.Abs(got-1) > 1e-9 {
		t.Errorf("RMS(full scale) = %v, want 1", got)
	}
	if got := RMS(tonePCM(16000)); got < 0.1 || got > 0.2 {
		t.Errorf("RMS(tone) = %v, want about 0.17", got)
	}
}
