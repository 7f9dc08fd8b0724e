package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"aitranscriber/encoder"
)

const fakeFrameSize = 1024

// FakeContext replays a WAV file as if it were a microphone.
type FakeContext struct {
	pcm      []byte
	format   encoder.Format
	realtime bool
}

// NewFakeContext loads wavPath. With realtime set, capture is paced at the
// file's sample rate; otherwise the whole file is delivered on Start.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pcm, format, err := encoder.DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", wavPath, err)
	}
	if format.BitsPerSample != 16 {
		return nil, fmt.Errorf("load %s: capture replay needs 16-bit audio, got %d-bit", wavPath, format.BitsPerSample)
	}
	return &FakeContext{pcm: pcm, format: format, realtime: realtime}, nil
}

func NewFakeContextPCM(pcm []byte, format encoder.Format, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, format: format, realtime: realtime}
}

func (f *FakeContext) Format() encoder.Format          { return f.format }
func (f *FakeContext) Devices() ([]DeviceInfo, error) { return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{
		pcm:       f.pcm,
		format:    f.format,
		realtime:  f.realtime,
		audioDone: make(chan struct{}),
	}, nil
}

type FakeCapture struct {
	pcm      []byte
	format   encoder.Format
	realtime bool

	mu        sync.Mutex
	cb        DataCallback
	audioDone chan struct{}
	stopCh    chan struct{}
	feedDone  chan struct{}
}

// AudioDone is closed once the whole file has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audioDone
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/f.format.BlockAlign()))
	return end
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	audioDone := f.audioDone
	stopCh, feedDone := f.stopCh, f.feedDone
	f.mu.Unlock()

	chunkBytes := fakeFrameSize * f.format.BlockAlign()

	if !f.realtime {
		if cb := f.callback(); cb != nil {
			for pos := 0; pos < len(f.pcm); {
				pos = f.feedChunk(cb, pos, chunkBytes)
			}
		}
		close(audioDone)
		close(feedDone)
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(f.format.SampleRate)
	go func() {
		defer close(feedDone)
		pos := 0
		silence := make([]byte, chunkBytes)
		audioFinished := false

		for {
			select {
			case <-stopCh:
				return
			default:
			}

			cb := f.callback()
			if cb == nil {
				time.Sleep(time.Millisecond)
				continue
			}

			if pos < len(f.pcm) {
				pos = f.feedChunk(cb, pos, chunkBytes)
			} else {
				if !audioFinished {
					audioFinished = true
					close(audioDone)
				}
				cb(silence, fakeFrameSize)
			}

			select {
			case <-stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stopCh, feedDone := f.stopCh, f.feedDone
	f.mu.Unlock()
	if stopCh == nil {
		return
	}
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	<-feedDone

	f.mu.Lock()
	select {
	case <-f.audioDone:
		f.audioDone = make(chan struct{}) // reset for replay
	default:
	}
	f.mu.Unlock()
}

func (f *FakeCapture) Close() { f.Stop() }
