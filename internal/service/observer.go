package service

import (
	"context"
	"encoding/json"
	"time"
)

// Logger is the logging interface used by the service core.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// FailureReporter records a failed request with the payload that caused it.
type FailureReporter interface {
	ReportFailure(message string, payload any, err error)
}

// Observer is notified about handled requests and session changes.
// SessionChanged is called on the executor worker in the order the changes
// happen. Implementations must not block.
type Observer interface {
	RequestHandled(command string, status Status, elapsed time.Duration)
	SessionChanged(info SessionInfo)
}

// Observers fans notifications out to several observers.
type Observers []Observer

func (o Observers) RequestHandled(command string, status Status, elapsed time.Duration) {
	for _, obs := range o {
		obs.RequestHandled(command, status, elapsed)
	}
}

func (o Observers) SessionChanged(info SessionInfo) {
	for _, obs := range o {
		obs.SessionChanged(info)
	}
}

// AuditEntry describes one successful mutating command.
type AuditEntry struct {
	RequestID string
	ClientID  string
	Command   Command
	Tags      []string
	Msg       json.RawMessage
	Result    any
}

// Auditor persists audit entries.
type Auditor interface {
	Record(ctx context.Context, entry AuditEntry) error
}

type contextKey int

const (
	clientIDKey contextKey = iota
	requestIDKey
)

// WithClientID attaches the hex-encoded client identity to ctx.
func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey, id)
}

// ClientIDFrom returns the client identity attached to ctx.
func ClientIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey).(string)
	return id
}

// WithRequestID attaches a request ID to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom returns the request ID attached to ctx.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
