package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aitranscriber/encoder"
)

const (
	// MinFileSize is the smallest file treated as containing audio.
	MinFileSize       = 100
	fileReadyAttempts = 10
)

var fileReadyDelay = 200 * time.Millisecond

var (
	ErrFileBusy  = errors.New("audio file is not accessible yet")
	ErrFileEmpty = errors.New("audio file appears to be empty")
)

// Upload is an audio file ready to send to a transcription provider.
type Upload struct {
	Path     string
	FileName string
	Data     []byte
}

// LoadForUpload waits for path to stop growing, rejects near-empty files and
// converts FLAC to WAV, which every provider accepts.
func LoadForUpload(ctx context.Context, path string) (*Upload, error) {
	if err := waitReady(ctx, path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < MinFileSize {
		return nil, ErrFileEmpty
	}

	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(path), ".flac") {
		pcm, format, err := encoder.DecodeFlac(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		data, err = encoder.EncodeWAV(pcm, format)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", name, err)
		}
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".wav"
	}
	return &Upload{Path: path, FileName: name, Data: data}, nil
}

// waitReady succeeds once two consecutive checks see the same size.
func waitReady(ctx context.Context, path string) error {
	last := int64(-1)
	for attempt := 0; attempt < fileReadyAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f, err := os.Open(path); err == nil {
			info, statErr := f.Stat()
			f.Close()
			if statErr == nil {
				if info.Size() == last {
					return nil
				}
				last = info.Size()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(fileReadyDelay):
		}
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return err
	}
	return ErrFileBusy
}
