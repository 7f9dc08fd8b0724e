package log

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"flag absolute", "/tmp/mylog", "/tmp/ignored", "/tmp/mylog"},
		{"flag relative", "logs", "", filepath.Join(wd, "logs")},
		{"env", "", "/tmp/aitranscriber-env-log", "/tmp/aitranscriber-env-log"},
		{"env relative", "", "envlogs", filepath.Join(wd, "envlogs")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AITRANSCRIBER_LOG_PATH", tt.env)
			got, err := ResolveDir(tt.flag)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("AITRANSCRIBER_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "aitranscriber") {
		t.Errorf("got %q, want a path under aitranscriber", got)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"diagnostics_log.txt", "transcribe_log.txt"} {
		path := filepath.Join(tmp, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestTranscriptionText(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	TranscriptionText("hello world", "salam donya")
	TranscriptionText("second", "")

	data, err := os.ReadFile(filepath.Join(tmp, "transcribe_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), data)
	}
	// format: "2006-01-02 15:04:05\t[pid]\ttext"
	if !strings.HasSuffix(lines[0], "\thello world") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "\tsalam donya" {
		t.Errorf("line 1 = %q, want translation line", lines[1])
	}
	if !strings.HasSuffix(lines[2], "\tsecond") {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestChunkEvents(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	SessionStart("abc", "openai", "realtime")
	ChunkTranscribed("abc", 1, 3200, Metrics{AudioLengthS: 0.1, TotalTimeMs: 12, RateLimit: "49/50"})
	ChunkSkipped("abc", 2, "no API key")
	ChunkFailed("abc", 3, errors.New("boom"))
	SessionEnd("abc", 3, 1, 0.3)

	data, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"session_start", "chunk_transcribed", "rate_limit=49/50", "chunk_skipped", "chunk_failed", "boom", "session_end", "session=abc"} {
		if !strings.Contains(out, want) {
			t.Errorf("diagnostics log missing %q", want)
		}
	}
}

func TestHelpersBeforeInit(t *testing.T) {
	SetDir(t.TempDir())
	t.Cleanup(func() { SetDir("") })

	// must not panic without open files
	Info("x")
	Warnf("x %d", 1)
	ChunkFailed("id", 1, errors.New("x"))
	TranscriptionText("x", "y")
}

func TestInitCrashLog(t *testing.T) {
	tmp := setupLogDir(t)

	if err := InitCrashLog(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(tmp, "crash_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "=== Session") {
		t.Errorf("crash log header missing, got %q", data)
	}
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
