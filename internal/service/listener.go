package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// defaultPollInterval bounds how long a reply can wait for the receive loop.
const defaultPollInterval = 10 * time.Millisecond

// Message is one inbound request: the sender's identity and its payload.
type Message struct {
	Identity []byte
	Payload  []byte
}

// Socket is an identity-addressed endpoint. It is only used from the
// goroutine running Listener.Serve.
type Socket interface {
	// Receive waits up to timeout for one message. ok is false on timeout.
	Receive(timeout time.Duration) (msg Message, ok bool, err error)

	// Send delivers payload to the client with the given identity.
	Send(identity, payload []byte) error
}

// ErrSocketClosed is returned by a Socket whose endpoint is gone. Serve
// returns it.
var ErrSocketClosed = errors.New("service: socket closed")

// ListenerOptions holds the dependencies for a Listener.
type ListenerOptions struct {
	Socket     Socket
	Dispatcher *Dispatcher
	Failures   FailureReporter
	Logger     Logger

	// Observer is told about every answered request. Optional.
	Observer Observer

	// PollInterval is the receive timeout per loop iteration.
	// Default: 10ms
	PollInterval time.Duration

	// EchoCommandOnError adds the request's command to the ERROR envelope.
	EchoCommandOnError bool
}

// Listener runs the receive loop.
//
// The loop itself never calls the driver. For each message it checks that
// the payload is UTF-8 JSON, reserves the request's place in the driver
// queue, and starts a goroutine that runs the Dispatcher. Finished replies
// come back to the loop over a channel and are sent from the loop
// goroutine, so the socket is never shared.
type Listener struct {
	socket       Socket
	dispatcher   *Dispatcher
	failures     FailureReporter
	logger       Logger
	observer     Observer
	pollInterval time.Duration
	echoOnError  bool

	replies  chan reply
	inflight sync.WaitGroup
}

type reply struct {
	identity []byte
	payload  []byte
}

// NewListener creates a Listener.
func NewListener(opts ListenerOptions) (*Listener, error) {
	if opts.Socket == nil {
		return nil, errors.New("socket is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if opts.Failures == nil {
		return nil, errors.New("failure reporter is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}

	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	return &Listener{
		socket:       opts.Socket,
		dispatcher:   opts.Dispatcher,
		failures:     opts.Failures,
		logger:       opts.Logger,
		observer:     opts.Observer,
		pollInterval: poll,
		echoOnError:  opts.EchoCommandOnError,
		replies:      make(chan reply, 64),
	}, nil
}

// Serve runs the receive loop until ctx is cancelled or the socket closes.
// On cancellation it stops receiving, waits for in-flight requests to
// finish and sends their replies before returning nil.
func (l *Listener) Serve(ctx context.Context) error {
	l.logger.Info("listener started")

	var serveErr error
	for ctx.Err() == nil {
		l.flush()

		msg, ok, err := l.socket.Receive(l.pollInterval)
		if err != nil {
			if errors.Is(err, ErrSocketClosed) {
				serveErr = err
				break
			}
			l.logger.Warn("receive failed", "error", err)
			continue
		}
		if !ok {
			continue
		}

		l.accept(ctx, msg)
	}

	l.drain()
	l.logger.Info("listener stopped")
	return serveErr
}

// accept validates the payload and hands the request to its own goroutine.
func (l *Listener) accept(ctx context.Context, msg Message) {
	clientID := hex.EncodeToString(msg.Identity)
	requestID := uuid.NewString()

	if !utf8.Valid(msg.Payload) || !json.Valid(msg.Payload) {
		l.failures.ReportFailure("failed in main loop", string(msg.Payload), ErrMalformedPayload)
		l.logger.Debug("malformed payload", "client_id", clientID, "request_id", requestID)
		data, _ := errorResponse(nil).Encode()
		l.send(msg.Identity, data)
		l.observe("", StatusError, 0)
		return
	}

	ticket := l.dispatcher.Reserve()
	reqCtx := WithRequestID(WithClientID(context.WithoutCancel(ctx), clientID), requestID)

	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()

		start := time.Now()
		resp := l.handle(reqCtx, ticket, msg.Payload)
		data, status := l.encode(reqCtx, resp, msg.Payload)
		l.replies <- reply{identity: msg.Identity, payload: data}

		l.observe(resp.CommandName(), status, time.Since(start))
	}()
}

// handle runs the dispatcher and converts failures into the ERROR envelope.
func (l *Listener) handle(ctx context.Context, t *Ticket, payload []byte) (resp *Response) {
	defer t.Release()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			l.failures.ReportFailure("failed in main loop", json.RawMessage(payload), err)
			resp = l.fallback(payload)
		}
	}()

	resp, err := l.dispatcher.Process(ctx, t, payload)
	if err != nil {
		l.logger.Error("failed in main loop",
			"client_id", ClientIDFrom(ctx),
			"request_id", RequestIDFrom(ctx),
			"error", err,
		)
		return l.fallback(payload)
	}

	l.logger.Debug("request handled",
		"client_id", ClientIDFrom(ctx),
		"request_id", RequestIDFrom(ctx),
		"status", resp.Status().Code(),
	)
	return resp
}

// fallback builds the ERROR envelope. It carries the command only when
// echoing is enabled and the command could be read.
func (l *Listener) fallback(payload []byte) *Response {
	resp := errorResponse(nil)
	if env, err := decodeEnvelope(payload); err == nil {
		command := env.command
		if l.echoOnError {
			resp.Command = &command
		}
		// Observers still see which command failed.
		resp.observed = command
	}
	return resp
}

// encode renders resp and returns the status actually sent. A response
// that cannot be rendered is reported and replaced by the ERROR envelope.
func (l *Listener) encode(ctx context.Context, resp *Response, payload []byte) ([]byte, Status) {
	data, err := resp.Encode()
	if err == nil {
		return data, resp.Status()
	}

	l.failures.ReportFailure("failed in main loop", json.RawMessage(payload), fmt.Errorf("encoding response: %w", err))
	l.logger.Error("failed to encode response",
		"client_id", ClientIDFrom(ctx),
		"request_id", RequestIDFrom(ctx),
		"error", err,
	)
	data, _ = l.fallback(payload).Encode()
	return data, StatusError
}

func (l *Listener) send(identity, payload []byte) {
	if err := l.socket.Send(identity, payload); err != nil {
		l.logger.Warn("send failed",
			"client_id", hex.EncodeToString(identity),
			"error", err,
		)
	}
}

// flush sends every reply that is ready without waiting.
func (l *Listener) flush() {
	for {
		select {
		case r := <-l.replies:
			l.send(r.identity, r.payload)
		default:
			return
		}
	}
}

// drain waits for in-flight requests and sends their replies.
func (l *Listener) drain() {
	finished := make(chan struct{})
	go func() {
		l.inflight.Wait()
		close(finished)
	}()

	for {
		select {
		case r := <-l.replies:
			l.send(r.identity, r.payload)
		case <-finished:
			l.flush()
			return
		}
	}
}

func (l *Listener) observe(command string, status Status, elapsed time.Duration) {
	if l.observer != nil {
		l.observer.RequestHandled(command, status, elapsed)
	}
}
