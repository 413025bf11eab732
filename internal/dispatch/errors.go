package dispatch

import "errors"

var (
	// ErrUnknownCommand means the command ID has no binding in the
	// current layout.
	ErrUnknownCommand = errors.New("dispatch: unknown command")

	// ErrUnmappedButton means the physical button has no mapping in the
	// current layout.
	ErrUnmappedButton = errors.New("dispatch: unmapped button")

	// ErrNoLayout means no layout has been installed yet.
	ErrNoLayout = errors.New("dispatch: no layout installed")
)
