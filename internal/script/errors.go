package script

import "errors"

// Errors for script operations.
var (
	// ErrClosed is returned when operating on a closed engine.
	ErrClosed = errors.New("script engine is closed")

	// ErrNoScript is returned by Reload when no file has been loaded.
	ErrNoScript = errors.New("no script loaded")

	// ErrTimeout is returned when a call exceeds the call timeout.
	ErrTimeout = errors.New("script call timed out")

	// ErrUnknownTarget is returned when a target name does not resolve.
	ErrUnknownTarget = errors.New("unknown message target")

	// ErrUnsupportedValue is returned for values that have no payload type.
	ErrUnsupportedValue = errors.New("unsupported script value")

	// ErrNotFunction is returned by Call when the global is not a function.
	ErrNotFunction = errors.New("not a function")
)
