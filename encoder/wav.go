package encoder

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

const wavPCMFormat = 1

// EncodeWAV wraps raw PCM in a self-contained RIFF/WAVE file.
func EncodeWAV(pcm []byte, f Format) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	pcm = pcm[:len(pcm)-len(pcm)%f.BlockAlign()]
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}

	ws := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(ws, f.SampleRate, f.BitsPerSample, f.Channels, wavPCMFormat)
	if err := enc.Write(intBuffer(pcm, f)); err != nil {
		return nil, fmt.Errorf("wav write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav close: %w", err)
	}
	out, err := io.ReadAll(ws.Reader())
	if err != nil {
		return nil, fmt.Errorf("reading wav into memory: %w", err)
	}
	return out, nil
}

// DecodeWAV returns the PCM payload of a WAV file along with its format.
func DecodeWAV(r io.ReadSeeker) ([]byte, Format, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, Format{}, fmt.Errorf("not a valid wav file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, Format{}, fmt.Errorf("wav decode: %w", err)
	}
	f := Format{
		SampleRate:    int(d.SampleRate),
		Channels:      int(d.NumChans),
		BitsPerSample: int(d.BitDepth),
	}
	if err := f.Validate(); err != nil {
		return nil, Format{}, err
	}
	return intsToPCM(buf.Data, f.BitsPerSample), f, nil
}

// DecodeWAVBytes is DecodeWAV over an in-memory file.
func DecodeWAVBytes(data []byte) ([]byte, Format, error) {
	return DecodeWAV(bytes.NewReader(data))
}

func intBuffer(pcm []byte, f Format) *audio.IntBuffer {
	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: f.Channels,
			SampleRate:  f.SampleRate,
		},
		Data:           pcmToInts(pcm, f.BitsPerSample),
		SourceBitDepth: f.BitsPerSample,
	}
}

// WAVWriter streams captured PCM into a WAV file on disk.
type WAVWriter struct {
	mu          sync.Mutex
	file        *os.File
	enc         *wav.Encoder
	format      Format
	path        string
	pending     []byte
	totalFrames uint64
}

func CreateWAV(path string, f Format) (*WAVWriter, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &WAVWriter{
		file:   file,
		enc:    wav.NewEncoder(file, f.SampleRate, f.BitsPerSample, f.Channels, wavPCMFormat),
		format: f,
		path:   path,
	}, nil
}

func (w *WAVWriter) Write(pcm []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// capture callbacks may split a frame; hold the tail for the next write
	data := append(w.pending, pcm...)
	align := w.format.BlockAlign()
	whole := len(data) - len(data)%align
	w.pending = append([]byte(nil), data[whole:]...)
	if whole == 0 {
		return nil
	}
	if err := w.enc.Write(intBuffer(data[:whole], w.format)); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}
	w.totalFrames += uint64(whole / align)
	return nil
}

func (w *WAVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.enc.Close()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *WAVWriter) Path() string { return w.path }

func (w *WAVWriter) TotalFrames() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalFrames
}
