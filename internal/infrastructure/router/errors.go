package router

import "errors"

// Domain-specific errors for router operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrClosed is returned when the socket or its context is closed.
	ErrClosed = errors.New("router: socket closed")

	// ErrBindFailed is returned when the endpoint cannot be bound.
	ErrBindFailed = errors.New("router: bind failed")

	// ErrMalformedMessage is returned for an inbound message that is not
	// [identity, payload] or [identity, "", payload].
	ErrMalformedMessage = errors.New("router: malformed message")

	// ErrSendFailed is returned when a reply cannot be queued, for example
	// because the client has disconnected.
	ErrSendFailed = errors.New("router: send failed")
)
