package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"aitranscriber/config"
)

func TestRunConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	run := func(args ...string) (int, string, string) {
		var out, errOut bytes.Buffer
		code := runConfig(append([]string{"-config", path}, args...), &out, &errOut)
		return code, out.String(), errOut.String()
	}

	if code, out, _ := run("path"); code != 0 || strings.TrimSpace(out) != path {
		t.Errorf("path: code %d, out %q", code, out)
	}
	if code, _, errOut := run("set", "chunk_seconds", "10"); code != 0 {
		t.Fatalf("set: code %d, stderr %q", code, errOut)
	}
	if code, _, _ := run("set", "api_key", "sk-abcdefghijkl"); code != 0 {
		t.Fatalf("set api_key failed")
	}
	if code, _, _ := run("set", "chunk_seconds", "99"); code != 1 {
		t.Errorf("out of range chunk_seconds accepted")
	}
	if code, _, _ := run("set", "bogus", "1"); code != 1 {
		t.Errorf("unknown key accepted")
	}

	store := config.NewStore(path)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	if got := store.Get().ChunkSeconds; got != 10 {
		t.Errorf("chunk_seconds = %d, want 10", got)
	}

	code, out, _ := run("show")
	if code != 0 || !strings.Contains(out, "chunk_seconds: 10") {
		t.Errorf("show: code %d, out %q", code, out)
	}
	if strings.Contains(out, "sk-abcdefghijkl") || !strings.Contains(out, "sk-a*******ijkl") {
		t.Errorf("show did not mask the key: %q", out)
	}

	if code, _, _ := run(); code != 2 {
		t.Errorf("missing command: code %d, want 2", code)
	}
}

func TestMaskKey(t *testing.T) {
	if got := maskKey("short"); got != "*****" {
		t.Errorf("maskKey(short) = %q", got)
	}
}
