package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// DispatcherOptions holds the dependencies for a Dispatcher.
type DispatcherOptions struct {
	// Session is the controller session. Required.
	Session *Session

	// Failures receives every driver or runtime failure. Required.
	Failures FailureReporter

	// Logger is used for audit and diagnostic messages. Required.
	Logger Logger

	// Auditor records successful mutating commands. Optional.
	Auditor Auditor
}

// Dispatcher classifies request envelopes and runs their handlers.
type Dispatcher struct {
	session  *Session
	failures FailureReporter
	logger   Logger
	auditor  Auditor
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.Session == nil {
		return nil, errors.New("session is required")
	}
	if opts.Failures == nil {
		return nil, errors.New("failure reporter is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}

	return &Dispatcher{
		session:  opts.Session,
		failures: opts.Failures,
		logger:   opts.Logger,
		auditor:  opts.Auditor,
	}, nil
}

// Reserve reserves a place in the driver queue for the next request.
// Requests must be reserved in the order they were received.
func (d *Dispatcher) Reserve() *Ticket {
	return d.session.Reserve()
}

// Process handles one request envelope using ticket t, which it always
// releases.
//
// Validation failures, unknown commands and a missing session produce a
// response with a nil error. A driver or runtime failure is reported to the
// failure log and returned as an error; the caller answers it with the
// ERROR envelope.
func (d *Dispatcher) Process(ctx context.Context, t *Ticket, raw []byte) (*Response, error) {
	defer t.Release()

	env, err := decodeEnvelope(raw)
	if err != nil {
		return newResponse(nil, statusRecord(StatusBadFormat), StatusBadFormat), nil
	}
	echo := &env.command

	cmd, ok := ParseCommand(env.command)
	if !ok {
		return newResponse(echo, statusRecord(StatusUnknown), StatusUnknown), nil
	}
	h := d.handler(cmd)
	if h == nil {
		return newResponse(echo, statusRecord(StatusUnknown), StatusUnknown), nil
	}
	if !env.hasMsg {
		return newResponse(echo, statusRecord(StatusBadFormat), StatusBadFormat), nil
	}

	req := &request{
		command: cmd,
		msg:     env.msg,
		payload: json.RawMessage(raw),
		ticket:  t,
	}

	msg, err := h(ctx, req)

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return newResponse(echo, statusRecord(StatusBadFormat), StatusBadFormat), nil
	case errors.Is(err, ErrNoConnection):
		return newResponse(echo, statusRecord(StatusNoConnection), StatusNoConnection), nil
	case err != nil:
		d.failures.ReportFailure(cmd.String()+" failed", req.payload, err)
		return nil, fmt.Errorf("%s: %w", cmd, err)
	}

	resp := newResponse(echo, msg, StatusSuccess)
	d.afterSuccess(ctx, req, resp)
	return resp, nil
}

// afterSuccess records mutating commands.
func (d *Dispatcher) afterSuccess(ctx context.Context, req *request, resp *Response) {
	if d.auditor == nil || !req.command.Mutating() {
		return
	}

	entry := AuditEntry{
		RequestID: RequestIDFrom(ctx),
		ClientID:  ClientIDFrom(ctx),
		Command:   req.command,
		Tags:      req.tags,
		Msg:       req.msg,
		Result:    resp.Msg,
	}
	if err := d.auditor.Record(ctx, entry); err != nil {
		d.logger.Warn("failed to record audit entry",
			"command", req.command.String(),
			"error", err,
		)
	}
}
