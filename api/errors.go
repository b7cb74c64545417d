package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus is wrapped by every *StatusError.
	ErrUnexpectedStatus = errors.New("api: unexpected status")

	// ErrInvalidBaseURL is returned by New for a base URL that is not absolute.
	ErrInvalidBaseURL = errors.New("api: invalid base URL")

	// ErrDecode indicates a response body that is not the expected JSON.
	ErrDecode = errors.New("api: decode response")
)

// StatusError reports a non-2xx response other than 429.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int

	// Code and Message come from the API's error body when it has one.
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s %s: status %d: %s (code %d)", e.Method, e.URL, e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("api: %s %s: status %d", e.Method, e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// IsNotFound reports whether err is a *StatusError for a 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == 404
}
