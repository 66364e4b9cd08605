package service

import (
	"errors"
	"fmt"
)

// Domain errors for the service core.
var (
	// ErrNoConnection is returned by session operations when no session is
	// open. It is answered with NO_CONNECTION and never logged.
	ErrNoConnection = errors.New("service: no active session")

	// ErrExecutorStopped is returned for work reserved after Stop.
	ErrExecutorStopped = errors.New("service: executor stopped")

	// ErrTicketUsed is returned when a ticket is submitted twice or after
	// it was released.
	ErrTicketUsed = errors.New("service: ticket already used")

	// ErrDriverPanic wraps a panic recovered from a driver call.
	ErrDriverPanic = errors.New("service: driver panicked")

	// ErrCloseFailed wraps a driver error from Close. The session is dropped
	// regardless.
	ErrCloseFailed = errors.New("service: closing driver")

	// ErrMalformedPayload is reported when a payload is not UTF-8 JSON.
	ErrMalformedPayload = errors.New("service: payload is not UTF-8 JSON")
)

// ValidationError describes an envelope or field that failed validation.
// It is answered with BAD_FORMAT.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid message: " + e.Reason
	}
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
