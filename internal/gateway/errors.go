package gateway

import "errors"

// Domain errors for the gateway package.
var (
	// ErrRetriesExhausted is returned when every retry attempt failed
	// with a transient error. The last attempt's error is wrapped.
	ErrRetriesExhausted = errors.New("gateway: retries exhausted")

	// ErrClosed is returned for submissions after Close.
	ErrClosed = errors.New("gateway: closed")
)
