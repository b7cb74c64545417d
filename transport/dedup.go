package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/peddler/observe"
	"github.com/jonwraymond/peddler/resilience"
)

// DefaultCloneRetries is how many times buffering a response body is retried
// after the first failed read.
const DefaultCloneRetries = 5

// Deduplicator is an http.RoundTripper that coalesces concurrent identical
// requests.
//
// While a request is in flight, every request with the same Identity waits
// for it instead of reaching the network. The in-flight entry is dropped as
// soon as the round trip completes, before results are handed out, so a
// later identical request always starts fresh work.
//
// The shared round trip runs detached from the first caller's cancellation.
// A caller whose context ends stops waiting and gets ctx.Err(); the round
// trip carries on for the others.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ownership: every caller receives its own *http.Response with its own
// unread body.
type Deduplicator struct {
	next         http.RoundTripper
	group        singleflight.Group
	logger       observe.Logger
	metrics      observe.Metrics
	cloneRetries int
	cloneDelay   time.Duration
}

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithLogger sets the logger. Default: no-op.
func WithLogger(l observe.Logger) Option {
	return func(d *Deduplicator) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(m observe.Metrics) Option {
	return func(d *Deduplicator) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithCloneRetries sets how many times a failed body read is retried.
// Default: DefaultCloneRetries.
func WithCloneRetries(n int, delay time.Duration) Option {
	return func(d *Deduplicator) {
		if n >= 0 {
			d.cloneRetries = n
		}
		if delay > 0 {
			d.cloneDelay = delay
		}
	}
}

// NewDeduplicator wraps next. A nil next uses http.DefaultTransport.
func NewDeduplicator(next http.RoundTripper, opts ...Option) *Deduplicator {
	if next == nil {
		next = http.DefaultTransport
	}
	d := &Deduplicator{
		next:         next,
		logger:       observe.NopLogger(),
		metrics:      observe.NopMetrics(),
		cloneRetries: DefaultCloneRetries,
		cloneDelay:   10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RoundTrip implements http.RoundTripper.
func (d *Deduplicator) RoundTrip(req *http.Request) (*http.Response, error) {
	if d.next == nil {
		return nil, ErrNilTransport
	}

	id, out, err := IdentityOf(req)
	if err != nil {
		return nil, err
	}

	ctx := req.Context()
	out = out.WithContext(context.WithoutCancel(ctx))

	var leader bool
	ch := d.group.DoChan(string(id), func() (any, error) {
		leader = true
		return d.send(out, id)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if !leader {
			d.metrics.RecordCoalesced(ctx, req.Method)
			d.logger.Debug(ctx, "request coalesced",
				observe.F("method", req.Method),
				observe.F("url", req.URL.Redacted()),
				observe.F("identity", id.String()),
			)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot).response(req), nil
	}
}

// send performs the real round trip and buffers the response.
func (d *Deduplicator) send(req *http.Request, id Identity) (*snapshot, error) {
	ctx := req.Context()
	d.logger.Debug(ctx, "sending request",
		observe.F("method", req.Method),
		observe.F("url", req.URL.Redacted()),
		observe.F("identity", id.String()),
	)

	start := time.Now()
	resp, err := d.next.RoundTrip(req)
	if err != nil {
		d.metrics.RecordRequest(ctx, req.Method, 0, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := d.buffer(ctx, resp)
	d.metrics.RecordRequest(ctx, req.Method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, err
	}

	return &snapshot{
		status:     resp.Status,
		statusCode: resp.StatusCode,
		proto:      resp.Proto,
		protoMajor: resp.ProtoMajor,
		protoMinor: resp.ProtoMinor,
		header:     resp.Header.Clone(),
		trailer:    resp.Trailer.Clone(),
		body:       body,
	}, nil
}

// buffer reads the response body to the end. A failed read is retried and
// resumes into the same buffer.
func (d *Deduplicator) buffer(ctx context.Context, resp *http.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, nil
	}

	var buf bytes.Buffer
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  d.cloneRetries + 1,
		InitialDelay: d.cloneDelay,
		Strategy:     resilience.BackoffConstant,
		OnRetry: func(attempt int, err error, _ time.Duration) {
			d.logger.Warn(ctx, "failed to buffer response, retrying",
				observe.F("attempt", attempt),
				observe.F("max_retries", d.cloneRetries),
				observe.F("status", resp.StatusCode),
				observe.F("error", err),
			)
		},
	})

	err := r.Execute(ctx, func(context.Context) error {
		_, err := buf.ReadFrom(resp.Body)
		return err
	})
	if err != nil {
		d.logger.Error(ctx, "giving up buffering response",
			observe.F("status", resp.StatusCode),
			observe.F("error", err),
		)
		return nil, fmt.Errorf("%w: %w", ErrCloneFailed, err)
	}
	return buf.Bytes(), nil
}

// snapshot is a fully buffered response shared by every waiter of one round
// trip. It is never mutated after the round trip completes.
type snapshot struct {
	status     string
	statusCode int
	proto      string
	protoMajor int
	protoMinor int
	header     http.Header
	trailer    http.Header
	body       []byte
}

// response builds an independent *http.Response for req.
func (s *snapshot) response(req *http.Request) *http.Response {
	body := bytes.Clone(s.body)
	return &http.Response{
		Status:        s.status,
		StatusCode:    s.statusCode,
		Proto:         s.proto,
		ProtoMajor:    s.protoMajor,
		ProtoMinor:    s.protoMinor,
		Header:        s.header.Clone(),
		Trailer:       s.trailer.Clone(),
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

var _ http.RoundTripper = (*Deduplicator)(nil)
