package driver

import "errors"

// Domain errors for driver selection and driver sessions.
var (
	// ErrUnknownDriver is returned by Lookup for an unregistered name.
	ErrUnknownDriver = errors.New("driver: unknown driver")

	// ErrClosed is returned by drivers when used after Close.
	ErrClosed = errors.New("driver: session closed")
)
