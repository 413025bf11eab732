package govee

import (
	"errors"
	"fmt"
)

// Domain errors for the govee package.
var (
	// ErrUnauthorized is returned when the API key is rejected.
	// This is permanent; retrying cannot help.
	ErrUnauthorized = errors.New("govee: unauthorized")

	// ErrRateLimited is returned when the cloud responds 429.
	// Transient; the gateway backs off and retries.
	ErrRateLimited = errors.New("govee: rate limited")

	// ErrDeviceNotFound is returned when the cloud does not recognise the
	// device. Permanent for the addressed device.
	ErrDeviceNotFound = errors.New("govee: device not found")

	// ErrUnsupported is returned when the cloud rejects a capability the
	// device does not support. Permanent.
	ErrUnsupported = errors.New("govee: capability not supported")

	// ErrBadEnvelope is returned when a 200 response carries a non-200
	// application code that maps to no specific sentinel.
	ErrBadEnvelope = errors.New("govee: api error")
)

// APIError carries the application-level code and message from a cloud
// response envelope or HTTP failure.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("govee: api error %d: %s", e.Code, e.Message)
}

// Unwrap maps well-known codes onto the package sentinels so callers can
// use errors.Is without inspecting codes.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case 401, 403:
		return ErrUnauthorized
	case 429:
		return ErrRateLimited
	case 404:
		return ErrDeviceNotFound
	case 400:
		return ErrUnsupported
	default:
		return ErrBadEnvelope
	}
}

// IsTransient reports whether err is worth retrying: network failures,
// timeouts, rate limiting, and server-side errors. Authorisation and
// request-shape failures are permanent and return false.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrDeviceNotFound) ||
		errors.Is(err, ErrUnsupported) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	// Anything else (connection reset, timeout, DNS) is transient.
	return true
}
