package observe

import (
	"context"
	"time"
)

// CallFunc is one logical API call.
type CallFunc func(ctx context.Context) error

// Middleware wraps logical API calls with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the span context is propagated to the wrapped call.
//   - Errors: errors from the wrapped call are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components are replaced by
// no-op implementations.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) *Middleware {
	return NewMiddleware(NewTracer(obs.Tracer()), obs.Metrics(), obs.Logger())
}

// Call runs fn inside a span named after meta and records its outcome.
func (m *Middleware) Call(ctx context.Context, meta OpMeta, fn CallFunc) error {
	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordCall(ctx, meta, duration, err)

	fields := []Field{
		F("op", meta.SpanName()),
		F("duration_ms", float64(duration.Milliseconds())),
	}
	if err != nil {
		fields = append(fields, F("error", err))
		m.logger.Error(ctx, "api call failed", fields...)
	} else {
		m.logger.Debug(ctx, "api call completed", fields...)
	}

	return err
}

// Logger returns the logger calls are reported to.
func (m *Middleware) Logger() Logger { return m.logger }

// Metrics returns the metrics calls are recorded on.
func (m *Middleware) Metrics() Metrics { return m.metrics }
