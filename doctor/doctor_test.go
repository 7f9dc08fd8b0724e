package doctor

import (
	"bufio"
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aitranscriber/audio"
	"aitranscriber/config"
	"aitranscriber/encoder"
	"aitranscriber/transcriber"
)

func newDoctor(input string, s config.Settings) (*doctor, *bytes.Buffer) {
	var out bytes.Buffer
	return &doctor{out: &out, in: bufio.NewReader(strings.NewReader(input)), settings: s}, &out
}

func TestCheckKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	s := config.Defaults()
	s.Provider = "groq"

	d, out := newDoctor("", s)
	if d.checkKey() {
		t.Fatal("checkKey passed without a key")
	}
	if !strings.Contains(out.String(), "GROQ_API_KEY is not set") {
		t.Errorf("output = %q", out.String())
	}

	t.Setenv("GROQ_API_KEY", "gsk")
	d, _ = newDoctor("", s)
	if !d.checkKey() {
		t.Error("checkKey failed with the env key set")
	}
}

func TestCheckTranscription(t *testing.T) {
	pcm := make([]byte, 3200)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	t.Run("confirmed", func(t *testing.T) {
		d, out := newDoctor("y\n", config.Defaults())
		d.pcm = pcm
		fake := transcriber.NewFake("testing one two", nil)
		if !d.checkTranscription(fake, "k") {
			t.Fatalf("failed: %s", out.String())
		}
		calls := fake.Calls()
		if len(calls) != 1 || calls[0].APIKey != "k" || string(calls[0].Audio[:4]) != "RIFF" {
			t.Errorf("calls = %+v", calls)
		}
		if !strings.Contains(out.String(), "testing one two") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("rejected", func(t *testing.T) {
		d, _ := newDoctor("n\n", config.Defaults())
		d.pcm = pcm
		if d.checkTranscription(transcriber.NewFake("x", nil), "k") {
			t.Error("passed without confirmation")
		}
	})

	t.Run("provider error", func(t *testing.T) {
		d, out := newDoctor("", config.Defaults())
		d.pcm = pcm
		if d.checkTranscription(transcriber.NewFake("", errors.New("401 unauthorized")), "k") {
			t.Error("passed on provider error")
		}
		if !strings.Contains(out.String(), "401 unauthorized") {
			t.Errorf("output = %q", out.String())
		}
	})
}

func TestCheckTranslation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translatedText":"salam"}`))
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		endpoint string
		want     bool
		output   string
	}{
		{"disabled", "", true, "SKIP"},
		{"invalid", "ftp://host", false, "FAIL"},
		{"reachable", srv.URL, true, `answered "salam"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.Defaults()
			s.TranslationEndpoint = tt.endpoint
			d, out := newDoctor("", s)
			if got := d.checkTranslation(); got != tt.want {
				t.Errorf("checkTranslation() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), tt.output) {
				t.Errorf("output = %q, want it to contain %q", out.String(), tt.output)
			}
		})
	}
}

func TestPickDevice(t *testing.T) {
	devices := []audio.DeviceInfo{{ID: "a", Name: "Built-in"}, {ID: "b", Name: "USB"}}

	d, _ := newDoctor("2\n", config.Defaults())
	if dev, ok := d.pickDevice(devices); !ok || dev.ID != "b" {
		t.Errorf("pickDevice = %v, %v", dev, ok)
	}
	d, _ = newDoctor("\n", config.Defaults())
	if dev, ok := d.pickDevice(devices); !ok || dev.ID != "a" {
		t.Errorf("default pick = %v, %v", dev, ok)
	}
	d, _ = newDoctor("9\n", config.Defaults())
	if _, ok := d.pickDevice(devices); ok {
		t.Error("out of range choice accepted")
	}
}

func TestRecordFromFake(t *testing.T) {
	pcm := make([]byte, 4096)
	ctx := audio.NewFakeContextPCM(pcm, encoder.DefaultFormat, false)
	d, _ := newDoctor("", config.Defaults())
	stop := make(chan struct{})
	close(stop)
	got, err := d.record(ctx, nil, stop)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(pcm) {
		t.Errorf("recorded %d bytes, want %d", len(got), len(pcm))
	}
}
