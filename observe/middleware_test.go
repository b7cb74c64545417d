package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestMiddleware_Call(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	mw := NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("debug", &buf))

	meta := OpMeta{Component: "agent", Name: "GetMyAgent"}
	var sawSpan bool
	err = mw.Call(context.Background(), meta, func(ctx context.Context) error {
		sawSpan = trace.SpanContextFromContext(ctx).IsValid()
		return nil
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !sawSpan {
		t.Error("wrapped call did not receive span context")
	}

	wantErr := errors.New("server said no")
	if got := mw.Call(context.Background(), meta, func(context.Context) error { return wantErr }); got != wantErr {
		t.Errorf("Call() error = %v, want %v", got, wantErr)
	}

	if n := len(recorder.Ended()); n != 2 {
		t.Errorf("spans = %d, want 2", n)
	}
	rm := collect(t, reader)
	if got := sumOf(t, rm, "peddler.api.calls"); got != 2 {
		t.Errorf("peddler.api.calls = %d, want 2", got)
	}
	if got := sumOf(t, rm, "peddler.api.errors"); got != 1 {
		t.Errorf("peddler.api.errors = %d, want 1", got)
	}
	out := buf.String()
	if !strings.Contains(out, "api call completed") || !strings.Contains(out, "api call failed") {
		t.Errorf("missing call log lines: %s", out)
	}
	if !strings.Contains(out, "trace_id") {
		t.Error("log lines should carry trace_id")
	}
}

func TestMiddleware_NilComponents(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	if err := mw.Call(context.Background(), OpMeta{Name: "x"}, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
}
