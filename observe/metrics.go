package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records client metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one logical API call, retries included.
	RecordCall(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordLoad records one cache load episode.
	RecordLoad(ctx context.Context, cache string, duration time.Duration, err error)

	// RecordRequest records one round trip that reached the network.
	RecordRequest(ctx context.Context, method string, status int, duration time.Duration)

	// RecordCoalesced records a request answered by another caller's round trip.
	RecordCoalesced(ctx context.Context, method string)

	// RecordRateLimited records a rate-limited attempt and the delay before the next one.
	RecordRateLimited(ctx context.Context, delay time.Duration)
}

type metricsImpl struct {
	callCount    metric.Int64Counter
	callErrors   metric.Int64Counter
	callDuration metric.Float64Histogram
	loadCount    metric.Int64Counter
	loadErrors   metric.Int64Counter
	loadDuration metric.Float64Histogram
	requests     metric.Int64Counter
	reqDuration  metric.Float64Histogram
	coalesced    metric.Int64Counter
	rateLimited  metric.Int64Counter
	backoff      metric.Float64Histogram
}

// NewMetrics registers the client instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	if m.callCount, err = meter.Int64Counter("peddler.api.calls",
		metric.WithDescription("Logical API calls"),
		metric.WithUnit("{call}")); err != nil {
		return nil, err
	}
	if m.callErrors, err = meter.Int64Counter("peddler.api.errors",
		metric.WithDescription("Logical API calls that failed"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if m.callDuration, err = meter.Float64Histogram("peddler.api.duration_ms",
		metric.WithDescription("Logical API call duration including rate-limit waits"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.loadCount, err = meter.Int64Counter("peddler.cache.loads",
		metric.WithDescription("Cache load episodes"),
		metric.WithUnit("{load}")); err != nil {
		return nil, err
	}
	if m.loadErrors, err = meter.Int64Counter("peddler.cache.load_errors",
		metric.WithDescription("Cache load episodes that failed"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if m.loadDuration, err = meter.Float64Histogram("peddler.cache.load_duration_ms",
		metric.WithDescription("Cache load episode duration"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.requests, err = meter.Int64Counter("peddler.http.requests",
		metric.WithDescription("HTTP round trips sent to the network"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if m.reqDuration, err = meter.Float64Histogram("peddler.http.duration_ms",
		metric.WithDescription("HTTP round trip duration"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.coalesced, err = meter.Int64Counter("peddler.http.coalesced",
		metric.WithDescription("Requests answered by an identical in-flight request"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if m.rateLimited, err = meter.Int64Counter("peddler.http.rate_limited",
		metric.WithDescription("Attempts rejected with a rate-limit response"),
		metric.WithUnit("{attempt}")); err != nil {
		return nil, err
	}
	if m.backoff, err = meter.Float64Histogram("peddler.http.backoff_ms",
		metric.WithDescription("Delay before retrying a rate-limited attempt"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)
	m.callCount.Add(ctx, 1, opt)
	if err != nil {
		m.callErrors.Add(ctx, 1, opt)
	}
	m.callDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordLoad(ctx context.Context, cache string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("cache.name", cache))
	m.loadCount.Add(ctx, 1, opt)
	if err != nil {
		m.loadErrors.Add(ctx, 1, opt)
	}
	m.loadDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordRequest(ctx context.Context, method string, status int, duration time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.Int("http.response.status_code", status),
	)
	m.requests.Add(ctx, 1, opt)
	m.reqDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCoalesced(ctx context.Context, method string) {
	m.coalesced.Add(ctx, 1, metric.WithAttributes(attribute.String("http.request.method", method)))
}

func (m *metricsImpl) RecordRateLimited(ctx context.Context, delay time.Duration) {
	m.rateLimited.Add(ctx, 1)
	m.backoff.Record(ctx, float64(delay.Milliseconds()))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

type noopMetrics struct{}

func (noopMetrics) RecordCall(context.Context, OpMeta, time.Duration, error) {}
func (noopMetrics) RecordLoad(context.Context, string, time.Duration, error) {}
func (noopMetrics) RecordRequest(context.Context, string, int, time.Duration) {}
func (noopMetrics) RecordCoalesced(context.Context, string) {}
func (noopMetrics) RecordRateLimited(context.Context, time.Duration) {}
