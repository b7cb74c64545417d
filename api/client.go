package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"

	"github.com/jonwraymond/peddler/observe"
	"github.com/jonwraymond/peddler/transport"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Meta is the pagination block of a listing response.
type Meta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type envelope[T any] struct {
	Data T     `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Request describes one logical call.
type Request struct {
	// Op names the call for telemetry. Method and Path are filled in from
	// the request when empty.
	Op     observe.OpMeta
	Method string
	// Path is joined to the client's base URL.
	Path  string
	Query url.Values
	// Body, when non-nil, is sent as JSON.
	Body any
}

// Client performs logical calls.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: every call honors ctx, including rate-limit waits.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	policy  transport.RetryPolicy
	calls   *observe.Middleware
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client attempts are sent with.
// Default: http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetryPolicy sets the rate-limit retry policy.
// Default: transport.DefaultRetryPolicy().
func WithRetryPolicy(p transport.RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithMiddleware sets the middleware every call runs in.
// Default: no-op tracing, metrics and logging.
func WithMiddleware(m *observe.Middleware) Option {
	return func(c *Client) {
		if m != nil {
			c.calls = m
		}
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    http.DefaultClient,
		policy:  transport.DefaultRetryPolicy(),
		calls:   observe.NewMiddleware(nil, nil, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// HTTPClient returns the HTTP client attempts are sent with.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Do performs r and decodes the response's data field into T.
func Do[T any](ctx context.Context, c *Client, r Request) (T, error) {
	env, err := call[T](ctx, c, r)
	return env.Data, err
}

// DoPage performs r and returns the data and pagination metadata.
func DoPage[T any](ctx context.Context, c *Client, r Request) ([]T, Meta, error) {
	env, err := call[[]T](ctx, c, r)
	var meta Meta
	if env.Meta != nil {
		meta = *env.Meta
	}
	return env.Data, meta, err
}

func call[T any](ctx context.Context, c *Client, r Request) (envelope[T], error) {
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	if r.Op.Method == "" {
		r.Op.Method = r.Method
	}
	if r.Op.Path == "" {
		r.Op.Path = r.Path
	}

	var body []byte
	if r.Body != nil {
		var err error
		if body, err = json.Marshal(r.Body); err != nil {
			return envelope[T]{}, fmt.Errorf("api: encode request: %w", err)
		}
	}

	var out envelope[T]
	err := c.calls.Call(ctx, r.Op, func(ctx context.Context) error {
		return c.policy.Do(ctx, func(ctx context.Context) error {
			env, err := attempt[T](ctx, c, r, body)
			if err != nil {
				return err
			}
			out = env
			return nil
		})
	})
	return out, err
}

func attempt[T any](ctx context.Context, c *Client, r Request, body []byte) (envelope[T], error) {
	var env envelope[T]

	u := c.baseURL.JoinPath(r.Path)
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), rd)
	if err != nil {
		return env, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return env, err
	}
	defer resp.Body.Close()

	if rl := transport.RateLimitFromResponse(resp); rl != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return env, rl
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return env, statusError(req, resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		return env, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return env, fmt.Errorf("%w: %s %s: %w", ErrDecode, req.Method, req.URL.Path, err)
	}
	return env, nil
}

func statusError(req *http.Request, resp *http.Response) *StatusError {
	se := &StatusError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return se
	}
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil {
		se.Code = eb.Error.Code
		se.Message = eb.Error.Message
	}
	return se
}

func cloneQuery(q url.Values) url.Values {
	out := make(url.Values, len(q)+2)
	maps.Copy(out, q)
	return out
}
