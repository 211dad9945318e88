// Package probe checks whether service ports answer.
package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/portal/internal/domain"
)

const (
	DefaultTimeout     = 5 * time.Second
	DefaultConcurrency = 16
)

// Method names the probe that decided a result.
const (
	MethodTCP  = "tcp"
	MethodHTTP = "http"
)

// Observer receives every probe outcome.
type Observer interface {
	ProbeDone(method string, reachable bool, elapsed time.Duration)
}

// Options configures a Prober.
type Options struct {
	// Host is dialed as Host:port. Defaults to 127.0.0.1.
	Host string
	// BaseURL enables the HTTP fallback for targets with a path, e.g.
	// "http://127.0.0.1" (a reverse proxy in front of the services).
	BaseURL     string
	Timeout     time.Duration
	Concurrency int
}

// Prober probes targets with a TCP dial and an optional HTTP fallback.
type Prober struct {
	host        string
	baseURL     string
	timeout     time.Duration
	concurrency int
	client      *http.Client
	observer    Observer
	dialContext func(ctx context.Context, network, addr string) (net.Conn, error)
}

// New creates a prober. observer may be nil.
func New(opts Options, observer Observer) *Prober {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	return &Prober{
		host:        opts.Host,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		client:      newHTTPClient(opts.Timeout),
		observer:    observer,
		dialContext: (&net.Dialer{}).DialContext,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 0,
			}).DialContext,
			TLSHandshakeTimeout: timeout,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			DisableKeepAlives: true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// A redirect is an answer.
			return http.ErrUseLastResponse
		},
	}
}

// Timeout returns the per-probe timeout.
func (p *Prober) Timeout() time.Duration { return p.timeout }

// Probe checks one target. The dial and the HTTP fallback share a single
// timeout. A timeout and a refused connection both yield Reachable=false.
func (p *Prober) Probe(ctx context.Context, t domain.Target) domain.ProbeResult {
	res := domain.ProbeResult{Port: t.Port}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.dial(ctx, t.Port)
	p.observe(MethodTCP, err == nil, start)
	if err == nil {
		res.Reachable = true
		return res
	}

	if t.Path == "" || p.baseURL == "" {
		return res
	}

	start = time.Now()
	err = p.get(ctx, p.baseURL+normalizePath(t.Path))
	p.observe(MethodHTTP, err == nil, start)
	res.Reachable = err == nil
	return res
}

func (p *Prober) dial(ctx context.Context, port int) error {
	conn, err := p.dialContext(ctx, "tcp", net.JoinHostPort(p.host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}

// get succeeds on any HTTP response, whatever its status code.
func (p *Prober) get(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func (p *Prober) observe(method string, ok bool, start time.Time) {
	if p.observer != nil {
		p.observer.ProbeDone(method, ok, time.Since(start))
	}
}

// CheckBatch probes all targets concurrently and returns results in input
// order. Cancelling ctx marks pending targets unreachable.
func (p *Prober) CheckBatch(ctx context.Context, targets []domain.Target) []domain.ProbeResult {
	results := make([]domain.ProbeResult, len(targets))
	if len(targets) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			results[i] = p.Probe(gctx, t)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
