package transport

import "errors"

// ErrCloneFailed is returned when a response body could not be buffered for
// fan-out after every retry. It is never retried by RetryPolicy.
var ErrCloneFailed = errors.New("transport: failed to buffer response")

// ErrNilTransport is returned by RoundTrip when no underlying transport is set.
var ErrNilTransport = errors.New("transport: nil round tripper")
