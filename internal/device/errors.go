package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidCapability is returned when a capability declaration is malformed.
	ErrInvalidCapability = errors.New("device: invalid capability")

	// ErrUnknownInstance is returned when a capability instance is not
	// declared by the target device.
	ErrUnknownInstance = errors.New("device: unknown capability instance")

	// ErrValueOutOfDomain is returned when a value falls outside a
	// capability's declared domain.
	ErrValueOutOfDomain = errors.New("device: value outside capability domain")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")
)
