package client

import "errors"

var (
	// ErrInvalidConfig indicates a Config that failed validation.
	ErrInvalidConfig = errors.New("client: invalid config")

	// ErrNoToken indicates an operation that needs an agent token on a
	// client created without one.
	ErrNoToken = errors.New("client: no agent token")
)
