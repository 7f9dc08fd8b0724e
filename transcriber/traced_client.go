package transcriber

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// TracedClient is an HTTP client that records per-phase timings of every
// request, so chunk logs can tell slow networks from slow providers.
type TracedClient struct {
	client  *http.Client
	warmURL string
}

func NewTracedClient(warmURL string) *TracedClient {
	return &TracedClient{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		warmURL: warmURL,
	}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Status     string
	Header     http.Header
	Metrics    *NetworkMetrics
}

// phases collects the timestamps of one request as httptrace reports them.
type phases struct {
	m NetworkMetrics

	getConn, dns, tcp, tlsStart time.Time
	gotConn, wroteHeaders       time.Time
	wroteRequest, firstByte     time.Time
}

func (p *phases) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn: func(string) { p.getConn = time.Now() },
		GotConn: func(info httptrace.GotConnInfo) {
			p.gotConn = time.Now()
			p.m.ConnWait = p.gotConn.Sub(p.getConn)
			p.m.ConnReused = info.Reused
		},
		DNSStart:          func(httptrace.DNSStartInfo) { p.dns = time.Now() },
		DNSDone:           func(httptrace.DNSDoneInfo) { p.m.DNS = time.Since(p.dns) },
		ConnectStart:      func(_, _ string) { p.tcp = time.Now() },
		ConnectDone:       func(_, _ string, _ error) { p.m.TCP = time.Since(p.tcp) },
		TLSHandshakeStart: func() { p.tlsStart = time.Now() },
		TLSHandshakeDone: func(cs tls.ConnectionState, _ error) {
			p.m.TLS = time.Since(p.tlsStart)
			p.m.TLSProtocol = cs.NegotiatedProtocol
		},
		WroteHeaders: func() {
			p.wroteHeaders = time.Now()
			p.m.ReqHeaders = p.wroteHeaders.Sub(p.gotConn)
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			p.wroteRequest = time.Now()
			p.m.ReqBody = p.wroteRequest.Sub(p.wroteHeaders)
		},
		GotFirstResponseByte: func() {
			p.firstByte = time.Now()
			p.m.TTFB = p.firstByte.Sub(p.wroteRequest)
		},
	}
}

// Do sends req and reads the whole body. Cancellation follows req's context.
func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	p := &phases{}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), p.trace()))
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !p.firstByte.IsZero() {
		p.m.Download = time.Since(p.firstByte)
	}
	p.m.Total = time.Since(start)

	return &TracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Metrics:    &p.m,
	}, nil
}

// Warm opens a connection to the API host ahead of the first upload and
// returns the TLS handshake time. Failures are ignored; the upload retries
// the connection on its own.
func (c *TracedClient) Warm(ctx context.Context) time.Duration {
	if c.warmURL == "" {
		return 0
	}
	p := &phases{}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, p.trace()), http.MethodHead, c.warmURL, nil)
	if err != nil {
		return 0
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return p.m.TLS
}
