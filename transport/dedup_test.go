package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/peddler/observe"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// gatedServer counts requests and holds each one until release is closed.
func gatedServer(t *testing.T, release <-chan struct{}) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Echo", string(body))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello:" + string(body)))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func post(ctx context.Context, c *http.Client, url, body string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func TestDeduplicator_CoalescesIdenticalRequests(t *testing.T) {
	release := make(chan struct{})
	srv, hits := gatedServer(t, release)
	client := &http.Client{Transport: NewDeduplicator(http.DefaultTransport)}

	const n = 8
	var wg sync.WaitGroup
	bodies := make([]string, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := post(context.Background(), client, srv.URL, "same")
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			bodies[i] = string(b)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
	for i := range n {
		if errs[i] != nil {
			t.Errorf("request %d error = %v", i, errs[i])
		}
		if bodies[i] != "hello:same" {
			t.Errorf("request %d body = %q, want %q", i, bodies[i], "hello:same")
		}
	}
}

func TestDeduplicator_DifferentBodiesNotCoalesced(t *testing.T) {
	release := make(chan struct{})
	srv, hits := gatedServer(t, release)
	client := &http.Client{Transport: NewDeduplicator(nil)}

	var wg sync.WaitGroup
	for _, body := range []string{"a", "b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := post(context.Background(), client, srv.URL, body)
			if err != nil {
				t.Errorf("post(%q) error = %v", body, err)
				return
			}
			resp.Body.Close()
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestDeduplicator_SequentialRequestsStartFresh(t *testing.T) {
	release := make(chan struct{})
	close(release)
	srv, hits := gatedServer(t, release)
	client := &http.Client{Transport: NewDeduplicator(http.DefaultTransport)}

	for range 3 {
		resp, err := post(context.Background(), client, srv.URL, "x")
		if err != nil {
			t.Fatalf("post() error = %v", err)
		}
		resp.Body.Close()
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("server hits = %d, want 3", got)
	}
}

func TestDeduplicator_IndependentResponses(t *testing.T) {
	release := make(chan struct{})
	trailer := http.Header{"X-Sum": {"42"}}
	next := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		<-release
		return &http.Response{
			Status:     "200 OK",
			StatusCode: http.StatusOK,
			Proto:      "HTTP/1.1",
			ProtoMajor: 1,
			ProtoMinor: 1,
			Header:     http.Header{"Content-Type": {"text/plain"}},
			Trailer:    trailer,
			Body:       io.NopCloser(strings.NewReader("shared")),
			Request:    req,
		}, nil
	})
	d := NewDeduplicator(next)

	results := make(chan *http.Response, 2)
	for range 2 {
		go func() {
			req, _ := http.NewRequest(http.MethodGet, "https://api.test/x", nil)
			resp, err := d.RoundTrip(req)
			if err != nil {
				t.Errorf("RoundTrip() error = %v", err)
			}
			results <- resp
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)

	a, b := <-results, <-results
	if a == nil || b == nil {
		t.Fatal("missing response")
	}

	a.Header.Set("Content-Type", "mutated")
	if got := b.Header.Get("Content-Type"); got != "text/plain" {
		t.Errorf("other header = %q, want %q", got, "text/plain")
	}
	if got := b.Trailer.Get("X-Sum"); got != "42" {
		t.Errorf("Trailer X-Sum = %q, want %q", got, "42")
	}

	ab, _ := io.ReadAll(a.Body)
	bb, _ := io.ReadAll(b.Body)
	if string(ab) != "shared" || string(bb) != "shared" {
		t.Errorf("bodies = %q, %q; want both %q", ab, bb, "shared")
	}
	if a.StatusCode != http.StatusOK || a.Proto != "HTTP/1.1" {
		t.Errorf("status/proto = %d %s, want 200 HTTP/1.1", a.StatusCode, a.Proto)
	}
}

func TestDeduplicator_WaiterCancellation(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	done := make(chan struct{})
	next := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		<-release
		defer close(done)
		if err := req.Context().Err(); err != nil {
			t.Errorf("shared round trip saw ctx error %v", err)
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ok")), Header: http.Header{}}, nil
	})
	d := NewDeduplicator(next)

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.test/x", nil)

	errc := make(chan error, 1)
	go func() {
		_, err := d.RoundTrip(req)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("RoundTrip() error = %v, want context.Canceled", err)
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shared round trip did not complete")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestDeduplicator_TransportErrorShared(t *testing.T) {
	boom := errors.New("connection refused")
	d := NewDeduplicator(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, boom
	}))

	req, _ := http.NewRequest(http.MethodGet, "https://api.test/x", nil)
	if _, err := d.RoundTrip(req); !errors.Is(err, boom) {
		t.Errorf("RoundTrip() error = %v, want %v", err, boom)
	}
}

// flakyBody fails the first n reads, then serves data.
type flakyBody struct {
	fails int
	r     io.Reader
}

func (f *flakyBody) Read(p []byte) (int, error) {
	if f.fails > 0 {
		f.fails--
		return 0, errors.New("connection reset")
	}
	return f.r.Read(p)
}

func (f *flakyBody) Close() error { return nil }

func TestDeduplicator_BufferRetries(t *testing.T) {
	var logs bytes.Buffer
	logger := observe.NewLoggerWithWriter("warn", &logs)

	d := NewDeduplicator(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       &flakyBody{fails: 3, r: strings.NewReader("eventually")},
		}, nil
	}), WithLogger(logger), WithCloneRetries(5, time.Millisecond))

	req, _ := http.NewRequest(http.MethodGet, "https://api.test/x", nil)
	resp, err := d.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	if string(b) != "eventually" {
		t.Errorf("body = %q, want %q", b, "eventually")
	}
	if got := strings.Count(logs.String(), "failed to buffer response, retrying"); got != 3 {
		t.Errorf("retry warnings = %d, want 3", got)
	}
}

func TestDeduplicator_BufferExhausted(t *testing.T) {
	d := NewDeduplicator(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       &flakyBody{fails: 100, r: strings.NewReader("never")},
		}, nil
	}), WithCloneRetries(5, time.Millisecond))

	req, _ := http.NewRequest(http.MethodGet, "https://api.test/x", nil)
	_, err := d.RoundTrip(req)
	if !errors.Is(err, ErrCloneFailed) {
		t.Errorf("RoundTrip() error = %v, want ErrCloneFailed", err)
	}
	if IsRateLimited(err) {
		t.Error("IsRateLimited(clone failure) = true, want false")
	}
}

func TestDeduplicator_NilNext(t *testing.T) {
	d := &Deduplicator{}
	req, _ := http.NewRequest(http.MethodGet, "https://api.test/x", nil)
	if _, err := d.RoundTrip(req); !errors.Is(err, ErrNilTransport) {
		t.Errorf("RoundTrip() error = %v, want ErrNilTransport", err)
	}
}
