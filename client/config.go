package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jonwraymond/peddler/observe"
	"github.com/jonwraymond/peddler/resilience"
	"github.com/jonwraymond/peddler/secret"
	"github.com/jonwraymond/peddler/transport"
)

// DefaultBaseURL is the root of the public game API.
const DefaultBaseURL = "https://api.spacetraders.io/v2"

// Config configures a Client.
type Config struct {
	// BaseURL is the API root.
	// Default: DefaultBaseURL
	BaseURL string

	// Token is the agent token. It may name environment variables
	// ("${PEDDLER_TOKEN}") or a secret reference ("secretref:env:PEDDLER_TOKEN").
	// Without a token only public endpoints work.
	Token string

	// PageSize is the page size of paginated listings.
	// Default: api.DefaultPageSize
	PageSize int

	Retry RetryConfig

	// RequestsPerSecond, when positive, paces attempts client-side with a
	// token bucket of Burst tokens.
	RequestsPerSecond float64
	Burst             int

	// MaxConcurrent, when positive, bounds concurrent attempts.
	MaxConcurrent int

	// Observe configures telemetry when Observer is nil.
	// Default: observe.DefaultConfig("peddler")
	Observe observe.Config

	// Observer, when set, is used instead of building one from Observe. The
	// caller keeps ownership and shuts it down.
	Observer observe.Observer

	// Transport performs the network round trips.
	// Default: http.DefaultTransport
	Transport http.RoundTripper
}

// RetryConfig configures rate-limit retries of each logical call.
type RetryConfig struct {
	// FallbackDelay is waited when a 429 carries no usable Retry-After.
	// Default: transport.DefaultFallbackDelay
	FallbackDelay time.Duration

	// MaxAttempts bounds attempts per call. Zero means unlimited.
	MaxAttempts int

	// Timeout bounds each call, waits included. Zero means none.
	Timeout time.Duration

	// AttemptTimeout bounds each round trip of a call. Zero means none.
	AttemptTimeout time.Duration
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("%w: base URL %q", ErrInvalidConfig, c.BaseURL)
		}
	}
	switch {
	case c.PageSize < 0:
		return fmt.Errorf("%w: page size %d", ErrInvalidConfig, c.PageSize)
	case c.Retry.MaxAttempts < 0:
		return fmt.Errorf("%w: max attempts %d", ErrInvalidConfig, c.Retry.MaxAttempts)
	case c.Retry.FallbackDelay < 0 || c.Retry.Timeout < 0 || c.Retry.AttemptTimeout < 0:
		return fmt.Errorf("%w: negative retry duration", ErrInvalidConfig)
	case c.RequestsPerSecond < 0 || c.Burst < 0:
		return fmt.Errorf("%w: negative pacing", ErrInvalidConfig)
	case c.MaxConcurrent < 0:
		return fmt.Errorf("%w: max concurrent %d", ErrInvalidConfig, c.MaxConcurrent)
	}
	if c.Observer == nil && c.Observe.ServiceName != "" {
		if err := c.Observe.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Observe.ServiceName == "" {
		c.Observe = observe.DefaultConfig("peddler")
	}
	if c.Transport == nil {
		c.Transport = http.DefaultTransport
	}
	return c
}

// retryPolicy builds the per-call policy. The pacer waits for a token
// rather than failing, since only 429s are retried.
func (c Config) retryPolicy(logger observe.Logger, metrics observe.Metrics) transport.RetryPolicy {
	p := transport.RetryPolicy{
		FallbackDelay:  c.Retry.FallbackDelay,
		MaxAttempts:    c.Retry.MaxAttempts,
		Timeout:        c.Retry.Timeout,
		AttemptTimeout: c.Retry.AttemptTimeout,
		Logger:         logger,
		Metrics:        metrics,
	}
	if c.RequestsPerSecond > 0 {
		p.Pacer = resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        c.RequestsPerSecond,
			Burst:       c.Burst,
			WaitOnLimit: true,
		})
	}
	if c.MaxConcurrent > 0 {
		p.Bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: c.MaxConcurrent,
			MaxWait:       -1,
		})
	}
	return p
}

// resolveToken expands environment references and secret references in
// the configured token.
func (c Config) resolveToken(ctx context.Context) (string, error) {
	if c.Token == "" {
		return "", nil
	}
	res, err := secret.DefaultRegistry.Resolver(true, nil)
	if err != nil {
		return "", fmt.Errorf("client: secret providers: %w", err)
	}
	defer res.Close()

	token, err := res.ResolveValue(ctx, c.Token)
	if err != nil {
		return "", fmt.Errorf("client: resolve token: %w", err)
	}
	return token, nil
}
