package exporters

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestNewTracingExporter(t *testing.T) {
	Stdout = io.Discard
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_JAEGER_ENDPOINT", "")

	for _, name := range []string{"stdout", "none", ""} {
		exp, err := NewTracingExporter(context.Background(), name)
		if err != nil {
			t.Errorf("NewTracingExporter(%q) error = %v", name, err)
			continue
		}
		_ = exp.Shutdown(context.Background())
	}

	for _, name := range []string{"otlp", "jaeger"} {
		if _, err := NewTracingExporter(context.Background(), name); !errors.Is(err, ErrEndpointNotConfigured) {
			t.Errorf("NewTracingExporter(%q) error = %v, want ErrEndpointNotConfigured", name, err)
		}
	}

	if _, err := NewTracingExporter(context.Background(), "zipkin"); !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("NewTracingExporter(zipkin) error = %v, want ErrUnknownExporter", err)
	}
}

func TestNewMetricsReader(t *testing.T) {
	Stdout = io.Discard
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	for _, name := range []string{"stdout", "none", ""} {
		r, err := NewMetricsReader(context.Background(), name)
		if err != nil {
			t.Errorf("NewMetricsReader(%q) error = %v", name, err)
			continue
		}
		_ = r.Shutdown(context.Background())
	}

	if _, err := NewMetricsReader(context.Background(), "otlp"); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("NewMetricsReader(otlp) error = %v, want ErrEndpointNotConfigured", err)
	}
	if _, err := NewMetricsReader(context.Background(), "statsd"); !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("NewMetricsReader(statsd) error = %v, want ErrUnknownExporter", err)
	}
}
