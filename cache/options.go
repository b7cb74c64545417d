package cache

import "github.com/jonwraymond/peddler/observe"

// Option configures a cache.
type Option func(*options)

type options struct {
	name    string
	logger  observe.Logger
	metrics observe.Metrics
}

func newOptions(opts []Option) options {
	o := options{
		name:    "cache",
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(observe.F("cache", o.name))
	return o
}

// WithName names the cache in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger. Default: no-op.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records load episodes. Default: no-op.
func WithMetrics(m observe.Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}
