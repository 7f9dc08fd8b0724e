package encoder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FlacWriter archives a recording as FLAC, emitting one frame per BlockSize
// samples. Only mono and stereo streams are supported.
type FlacWriter struct {
	mu          sync.Mutex
	file        *os.File
	enc         *flac.Encoder
	format      Format
	path        string
	pending     []int32
	totalFrames uint64
}

func CreateFlac(path string, f Format) (*FlacWriter, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.Channels > 2 {
		return nil, fmt.Errorf("flac archive supports at most 2 channels, got %d", f.Channels)
	}
	if f.BitsPerSample == 8 || f.BitsPerSample == 32 {
		return nil, fmt.Errorf("flac archive does not support %d-bit audio", f.BitsPerSample)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    uint32(f.SampleRate),
		NChannels:     uint8(f.Channels),
		BitsPerSample: uint8(f.BitsPerSample),
	}
	enc, err := flac.NewEncoder(file, info)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	return &FlacWriter{file: file, enc: enc, format: f, path: path}, nil
}

func (w *FlacWriter) Write(pcm []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, s := range pcmToInts(pcm, w.format.BitsPerSample) {
		w.pending = append(w.pending, int32(s))
	}
	blockSamples := BlockSize * w.format.Channels
	for len(w.pending) >= blockSamples {
		if err := w.writeFrame(w.pending[:blockSamples]); err != nil {
			return err
		}
		w.pending = w.pending[blockSamples:]
	}
	return nil
}

func (w *FlacWriter) writeFrame(interleaved []int32) error {
	ch := w.format.Channels
	n := len(interleaved) / ch
	if n == 0 {
		return nil
	}
	subframes := make([]*frame.Subframe, ch)
	for c := range subframes {
		samples := make([]int32, n)
		for i := range samples {
			samples[i] = interleaved[i*ch+c]
		}
		subframes[c] = &frame.Subframe{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   samples,
			NSamples:  n,
		}
	}
	channels := frame.ChannelsMono
	if ch == 2 {
		channels = frame.ChannelsLR
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(n),
			SampleRate:    uint32(w.format.SampleRate),
			Channels:      channels,
			BitsPerSample: uint8(w.format.BitsPerSample),
		},
		Subframes: subframes,
	}
	if err := w.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	w.totalFrames += uint64(n)
	return nil
}

func (w *FlacWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	rest := w.pending[:len(w.pending)-len(w.pending)%w.format.Channels]
	err := w.writeFrame(rest)
	w.pending = nil
	// the encoder closes the file itself once the header is rewritten
	if cerr := w.enc.Close(); cerr != nil {
		w.file.Close()
		if err == nil {
			err = cerr
		}
	}
	return err
}

func (w *FlacWriter) Path() string { return w.path }

func (w *FlacWriter) TotalFrames() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalFrames
}

// DecodeFlac reads a FLAC stream into interleaved PCM.
func DecodeFlac(r io.Reader) ([]byte, Format, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, Format{}, fmt.Errorf("flac open: %w", err)
	}
	defer stream.Close()

	f := Format{
		SampleRate:    int(stream.Info.SampleRate),
		Channels:      int(stream.Info.NChannels),
		BitsPerSample: int(stream.Info.BitsPerSample),
	}
	if err := f.Validate(); err != nil {
		return nil, Format{}, err
	}

	width := f.BitsPerSample / 8
	var pcm []byte
	for {
		fr, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Format{}, fmt.Errorf("flac frame: %w", err)
		}
		n := fr.Subframes[0].NSamples
		out := make([]byte, n*f.Channels*width)
		for i := 0; i < n; i++ {
			for c, sf := range fr.Subframes {
				putSample(out[(i*f.Channels+c)*width:], f.BitsPerSample, int(sf.Samples[i]))
			}
		}
		pcm = append(pcm, out...)
	}
	return pcm, f, nil
}
