package encoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

var ErrEmptyAudio = errors.New("no audio data")

// Format describes an interleaved little-endian PCM stream.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

var DefaultFormat = Format{SampleRate: SampleRate, Channels: Channels, BitsPerSample: BitsPerSample}

// BlockAlign is the size in bytes of one frame (one sample per channel).
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.BlockAlign()
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", f.Channels)
	}
	switch f.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", f.BitsPerSample)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitsPerSample)
}

// Archive persists a recording to disk while it is being captured.
type Archive interface {
	Write(pcm []byte) error
	Close() error
	Path() string
	TotalFrames() uint64
}

// NewArchive creates the recording file at path. kind is "wav" or "flac";
// the matching extension replaces whatever path carries.
func NewArchive(path, kind string, f Format) (Archive, error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	switch kind {
	case "", "wav":
		return CreateWAV(base+".wav", f)
	case "flac":
		return CreateFlac(base+".flac", f)
	}
	return nil, fmt.Errorf("unknown archive format %q", kind)
}

func pcmToInts(pcm []byte, bits int) []int {
	width := bits / 8
	out := make([]int, len(pcm)/width)
	for i := range out {
		p := pcm[i*width:]
		switch bits {
		case 8:
			out[i] = int(p[0])
		case 16:
			out[i] = int(int16(binary.LittleEndian.Uint16(p)))
		case 24:
			v := int32(p[0]) | int32(p[1])<<8 | int32(p[2])<<16
			if v&0x800000 != 0 {
				v |= ^0xffffff
			}
			out[i] = int(v)
		case 32:
			out[i] = int(int32(binary.LittleEndian.Uint32(p)))
		}
	}
	return out
}

func putSample(dst []byte, bits int, v int) {
	switch bits {
	case 8:
		dst[0] = byte(v)
	case 16:
		binary.LittleEndian.PutUint16(dst, uint16(int16(v)))
	case 24:
		dst[0] = byte(v)
		dst[1] = byte(v >> 8)
		dst[2] = byte(v >> 16)
	case 32:
		binary.LittleEndian.PutUint32(dst, uint32(int32(v)))
	}
}

func intsToPCM(data []int, bits int) []byte {
	width := bits / 8
	out := make([]byte, len(data)*width)
	for i, v := range data {
		putSample(out[i*width:], bits, v)
	}
	return out
}
