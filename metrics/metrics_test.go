package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(ChunksQueued)
	ChunksQueued.Inc()
	if got := testutil.ToFloat64(ChunksQueued); got != before+1 {
		t.Errorf("got %v, want %v", got, before+1)
	}

	Sessions.WithLabelValues("realtime", "completed").Inc()
	if got := testutil.ToFloat64(Sessions.WithLabelValues("realtime", "completed")); got < 1 {
		t.Errorf("sessions = %v, want >= 1", got)
	}
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- Serve(ctx, addr) }()

	ChunksTranscribed.Inc()
	var body string
	for i := 0; i < 50; i++ {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			time.Sleep(20 * time.Millisecond)
			continue
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		body = string(data)
		break
	}
	if !strings.Contains(body, "aitranscriber_chunks_transcribed_total") {
		t.Errorf("metrics output missing chunk counter")
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
