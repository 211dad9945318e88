package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/portal/internal/domain"
)

// listen opens a TCP listener on a free local port and returns the port.
func listen(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

// closedPort returns a port that refuses connections.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) ProbeDone(method string, reachable bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, method+":"+strconv.FormatBool(reachable))
}

func TestProbeTCP(t *testing.T) {
	open, closed := listen(t), closedPort(t)
	rec := &recorder{}
	p := New(Options{Timeout: time.Second}, rec)

	if got := p.Probe(context.Background(), domain.Target{Port: open}); !got.Reachable || got.Port != open {
		t.Errorf("Probe(open) = %+v", got)
	}
	if got := p.Probe(context.Background(), domain.Target{Port: closed}); got.Reachable {
		t.Errorf("Probe(closed) = %+v", got)
	}
	if len(rec.calls) != 2 || rec.calls[0] != "tcp:true" || rec.calls[1] != "tcp:false" {
		t.Errorf("observer calls = %v", rec.calls)
	}
}

func TestProbeHTTPFallback(t *testing.T) {
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		// Any response counts, even an error status.
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	closed := closedPort(t)
	p := New(Options{BaseURL: srv.URL + "/", Timeout: time.Second}, nil)

	got := p.Probe(context.Background(), domain.Target{Port: closed, Path: "builder/"})
	if !got.Reachable {
		t.Error("Probe() with HTTP fallback should be reachable")
	}
	if got := <-paths; got != "/builder/" {
		t.Errorf("fallback requested %q, want /builder/", got)
	}

	// No path: no fallback.
	if got := p.Probe(context.Background(), domain.Target{Port: closed}); got.Reachable {
		t.Error("Probe() without path should not use the fallback")
	}
}

func TestProbeSharesOneTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	const timeout = 400 * time.Millisecond
	p := New(Options{BaseURL: srv.URL, Timeout: timeout}, nil)
	// A dial that hangs for most of the budget before failing.
	p.dialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
		select {
		case <-time.After(300 * time.Millisecond):
			return nil, &net.OpError{Op: "dial", Err: context.DeadlineExceeded}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	start := time.Now()
	got := p.Probe(context.Background(), domain.Target{Port: 8501, Path: "/slow/"})
	elapsed := time.Since(start)

	if got.Reachable {
		t.Error("Probe() against a hanging fallback should be unreachable")
	}
	// Separate budgets would take 300ms + 400ms.
	if elapsed > timeout+200*time.Millisecond {
		t.Errorf("Probe() took %v, want at most about %v", elapsed, timeout)
	}
}

func TestProbeFallbackDisabledWithoutBaseURL(t *testing.T) {
	p := New(Options{Timeout: time.Second}, nil)
	if got := p.Probe(context.Background(), domain.Target{Port: closedPort(t), Path: "/x/"}); got.Reachable {
		t.Error("Probe() should be unreachable without a base URL")
	}
}

func TestCheckBatchKeepsOrder(t *testing.T) {
	open, closed := listen(t), closedPort(t)
	p := New(Options{Timeout: time.Second, Concurrency: 2}, nil)

	targets := []domain.Target{{Port: closed}, {Port: open}, {Port: closed}, {Port: open}}
	results := p.CheckBatch(context.Background(), targets)

	want := []bool{false, true, false, true}
	if len(results) != len(want) {
		t.Fatalf("CheckBatch() returned %d results", len(results))
	}
	for i, r := range results {
		if r.Port != targets[i].Port || r.Reachable != want[i] {
			t.Errorf("result[%d] = %+v, want port %d reachable %v", i, r, targets[i].Port, want[i])
		}
	}
}

func TestCheckBatchEmpty(t *testing.T) {
	p := New(Options{}, nil)
	if got := p.CheckBatch(context.Background(), nil); len(got) != 0 {
		t.Errorf("CheckBatch(nil) = %v", got)
	}
}

func TestCheckBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(Options{Timeout: time.Second}, nil)
	results := p.CheckBatch(ctx, []domain.Target{{Port: listen(t)}})
	if results[0].Reachable {
		t.Error("cancelled batch should report unreachable")
	}
}

func TestNewDefaults(t *testing.T) {
	p := New(Options{}, nil)
	if p.host != "127.0.0.1" || p.Timeout() != DefaultTimeout || p.concurrency != DefaultConcurrency {
		t.Errorf("New() defaults = host %q timeout %v concurrency %d", p.host, p.timeout, p.concurrency)
	}
}
