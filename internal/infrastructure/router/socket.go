package router

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"
)

// Config holds ROUTER socket settings.
type Config struct {
	// Endpoint is the bind URL, e.g. tcp://0.0.0.0:5555.
	Endpoint string

	// Linger is how long unsent replies are kept after Close.
	// Default: 1s
	Linger time.Duration

	// HighWaterMark bounds queued messages per peer in each direction.
	// Default: 1000
	HighWaterMark int
}

// Socket is a bound ROUTER socket.
type Socket struct {
	sock     *zmq4.Socket
	poller   *zmq4.Poller
	endpoint string
	closed   bool
}

// Bind creates a ROUTER socket and binds it to cfg.Endpoint.
func Bind(cfg Config) (s *Socket, err error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrBindFailed)
	}
	if cfg.Linger == 0 {
		cfg.Linger = time.Second
	}
	if cfg.HighWaterMark == 0 {
		cfg.HighWaterMark = 1000
	}

	sock, err := zmq4.NewSocket(zmq4.ROUTER)
	if err != nil {
		return nil, fmt.Errorf("creating ROUTER socket: %w", err)
	}

	defer func() {
		if err != nil {
			sock.Close() //nolint:errcheck // best-effort cleanup on failed setup
		}
	}()

	if err = sock.SetLinger(cfg.Linger); err != nil {
		return nil, fmt.Errorf("setting linger: %w", err)
	}
	if err = sock.SetRcvhwm(cfg.HighWaterMark); err != nil {
		return nil, fmt.Errorf("setting receive high water mark: %w", err)
	}
	if err = sock.SetSndhwm(cfg.HighWaterMark); err != nil {
		return nil, fmt.Errorf("setting send high water mark: %w", err)
	}
	// Report unroutable replies instead of dropping them silently.
	if err = sock.SetRouterMandatory(1); err != nil {
		return nil, fmt.Errorf("setting router mandatory: %w", err)
	}

	if err = sock.Bind(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBindFailed, cfg.Endpoint, err)
	}

	poller := zmq4.NewPoller()
	poller.Add(sock, zmq4.POLLIN)

	return &Socket{
		sock:     sock,
		poller:   poller,
		endpoint: cfg.Endpoint,
	}, nil
}

// Endpoint returns the bound endpoint.
func (s *Socket) Endpoint() string {
	return s.endpoint
}

// Receive waits up to timeout for one message. ok is false when nothing
// arrived in time.
func (s *Socket) Receive(timeout time.Duration) (identity, payload []byte, ok bool, err error) {
	if s.closed {
		return nil, nil, false, ErrClosed
	}

	polled, err := s.poller.Poll(timeout)
	if err != nil {
		return nil, nil, false, classify(err)
	}
	if len(polled) == 0 {
		return nil, nil, false, nil
	}

	frames, err := s.sock.RecvMessageBytes(zmq4.DONTWAIT)
	if err != nil {
		if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
			return nil, nil, false, nil
		}
		return nil, nil, false, classify(err)
	}

	identity, payload, err = splitFrames(frames)
	if err != nil {
		return nil, nil, false, err
	}
	return identity, payload, true, nil
}

// Send queues payload for the client with the given identity.
func (s *Socket) Send(identity, payload []byte) error {
	if s.closed {
		return ErrClosed
	}
	if _, err := s.sock.SendMessage(identity, "", payload); err != nil {
		if errors.Is(classify(err), ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// Close closes the socket. Replies still queued are flushed for up to the
// configured linger.
func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sock.Close()
}

// splitFrames accepts [identity, payload] from DEALER peers and
// [identity, "", payload] from REQ peers.
func splitFrames(frames [][]byte) (identity, payload []byte, err error) {
	switch {
	case len(frames) == 2:
		return frames[0], frames[1], nil
	case len(frames) == 3 && len(frames[1]) == 0:
		return frames[0], frames[2], nil
	default:
		return nil, nil, fmt.Errorf("%w: %d frames", ErrMalformedMessage, len(frames))
	}
}

// classify maps context termination to ErrClosed.
func classify(err error) error {
	if zmq4.AsErrno(err) == zmq4.ETERM {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}
