package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	crashFile      *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

// Metrics describes one chunk round trip.
type Metrics struct {
	AudioLengthS float64
	DNSTimeMs    float64
	TLSTimeMs    float64
	TTFBMs       float64
	TotalTimeMs  float64
	ConnReused   bool
	RateLimit    string
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absPath(flagPath)
	}

	// Priority 2: AITRANSCRIBER_LOG_PATH environment variable
	if envPath := os.Getenv("AITRANSCRIBER_LOG_PATH"); envPath != "" {
		return absPath(envPath)
	}

	// Priority 3: Default OS-specific location
	return defaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcribePath := filepath.Join(dir, "transcribe_log.txt")
	transcribeFile, err = os.OpenFile(transcribePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

// InitCrashLog routes fatal runtime errors to crash_log.txt in the log
// directory.
func InitCrashLog() error {
	logMu.Lock()
	defer logMu.Unlock()

	f, err := os.OpenFile(filepath.Join(dir, "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	if err := debug.SetCrashOutput(f, debug.CrashOptions{}); err != nil {
		f.Close()
		return err
	}
	crashFile = f
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
	if crashFile != nil {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		crashFile.Close()
		crashFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// TranscriptionText appends a finished session's transcript, with its
// translation on a second indented line.
func TranscriptionText(text, translation string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	if translation = strings.TrimSpace(translation); translation != "" {
		line += "\t" + translation + "\n"
	}
	transcribeFile.WriteString(line)
}

func SessionStart(id, provider, mode string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", id).
		Str("provider", provider).
		Str("mode", mode).
		Msg("session_start")
}

func SessionEnd(id string, chunks, failures int, seconds float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", id).
		Int("chunks", chunks).
		Int("failures", failures).
		Float64("audio_s", seconds).
		Msg("session_end")
}

func ChunkQueued(id string, index, bytes int, final bool) {
	if !logReady {
		return
	}
	diagLog.Debug().
		Str("session", id).
		Int("chunk", index).
		Int("bytes", bytes).
		Bool("final", final).
		Msg("chunk_queued")
}

func ChunkTranscribed(id string, index, bytes int, m Metrics) {
	if !logReady {
		return
	}

	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}

	ev := diagLog.Info().
		Str("session", id).
		Int("chunk", index).
		Int("bytes", bytes).
		Str("conn", connStatus)
	if m.RateLimit != "" {
		ev = ev.Str("rate_limit", m.RateLimit)
	}
	ev.Float64("audio_s", m.AudioLengthS).
		Float64("dns_ms", m.DNSTimeMs).
		Float64("tls_ms", m.TLSTimeMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalTimeMs).
		Msg("chunk_transcribed")
}

func ChunkSkipped(id string, index int, reason string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", id).
		Int("chunk", index).
		Str("reason", reason).
		Msg("chunk_skipped")
}

func ChunkFailed(id string, index int, err error) {
	if !logReady {
		return
	}
	diagLog.Error().
		Str("session", id).
		Int("chunk", index).
		Err(err).
		Msg("chunk_failed")
}

func Translation(ok bool, elapsed time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Bool("ok", ok).
		Float64("ms", float64(elapsed.Microseconds())/1000).
		Msg("translation")
}

func TranscriptSaved(paths ...string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Strs("paths", paths).
		Msg("transcript_saved")
}
