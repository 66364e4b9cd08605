package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/logix-service/internal/driver"
)

// SessionState is the connection state of the controller session.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnected
)

func (s SessionState) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

// SessionInfo is a point-in-time snapshot of the session.
type SessionInfo struct {
	State          SessionState
	IP             string
	Slot           int
	Timeout        time.Duration
	Micro800       bool
	ConnectionSize int
	Since          time.Time
}

// Session owns the single driver handle.
//
// The handle and connection parameters are only read or written by
// functions running on the executor worker. Other goroutines see the
// session through Info.
type Session struct {
	exec     *Executor
	open     driver.Opener
	observer Observer
	now      func() time.Time

	drv    driver.Driver
	params driver.Params

	info atomic.Pointer[SessionInfo]
}

// NewSession creates a disconnected session. open is called on every
// connect to obtain a fresh driver handle.
//
// observer, if not nil, is told about every state change from the executor
// worker, so notifications arrive in the order the changes were made.
func NewSession(exec *Executor, open driver.Opener, observer Observer) *Session {
	s := &Session{
		exec:     exec,
		open:     open,
		observer: observer,
		now:      time.Now,
	}
	s.info.Store(&SessionInfo{State: StateDisconnected, Since: s.now()})
	return s
}

// Reserve reserves the caller's place in the driver queue.
func (s *Session) Reserve() *Ticket {
	return s.exec.Reserve()
}

// Info returns the latest session snapshot.
func (s *Session) Info() SessionInfo {
	return *s.info.Load()
}

// Connected reports whether a session is open.
func (s *Session) Connected() bool {
	return s.Info().State == StateConnected
}

// Connect opens a new driver handle and binds the session to it. An
// existing handle is replaced without being closed.
func (s *Session) Connect(ctx context.Context, t *Ticket, p driver.Params) error {
	_, err := submit(ctx, t, func() (struct{}, error) {
		drv, err := s.open(p)
		if err != nil {
			return struct{}{}, fmt.Errorf("opening driver for %s: %w", p.IP, err)
		}
		s.drv = drv
		s.params = p
		s.snapshot()
		return struct{}{}, nil
	})
	return err
}

// Close releases the driver handle. The session is disconnected even when
// the driver fails to close; that failure is returned wrapped in
// ErrCloseFailed. Closing a disconnected session returns ErrNoConnection.
func (s *Session) Close(ctx context.Context, t *Ticket) error {
	_, err := submit(ctx, t, func() (struct{}, error) {
		if s.drv == nil {
			return struct{}{}, ErrNoConnection
		}
		closeErr := s.drv.Close()
		s.drv = nil
		s.params = driver.Params{}
		s.snapshot()
		if closeErr != nil {
			return struct{}{}, fmt.Errorf("%w: %w", ErrCloseFailed, closeErr)
		}
		return struct{}{}, nil
	})
	return err
}

// SetConnectionSize applies size to the open session.
func (s *Session) SetConnectionSize(ctx context.Context, t *Ticket, size int) error {
	_, err := withDriver(ctx, s, t, func(d driver.Driver) (struct{}, error) {
		if err := d.SetConnectionSize(size); err != nil {
			return struct{}{}, err
		}
		s.snapshot()
		return struct{}{}, nil
	})
	return err
}

// snapshot stores the current state and notifies the observer. Worker
// goroutine only.
func (s *Session) snapshot() {
	info := &SessionInfo{State: StateDisconnected, Since: s.now()}
	if s.drv != nil {
		info.State = StateConnected
		info.IP = s.params.IP
		info.Slot = s.params.Slot
		info.Timeout = s.params.Timeout
		info.Micro800 = s.params.Micro800
		info.ConnectionSize = s.drv.ConnectionSize()
	}
	if prev := s.info.Load(); prev != nil && prev.State == info.State && prev.IP == info.IP {
		info.Since = prev.Since
	}
	s.info.Store(info)

	if s.observer != nil {
		s.observer.SessionChanged(*info)
	}
}

// withDriver runs fn against the open driver on the executor worker.
// It returns ErrNoConnection without calling fn when no session is open.
func withDriver[T any](ctx context.Context, s *Session, t *Ticket, fn func(driver.Driver) (T, error)) (T, error) {
	return submit(ctx, t, func() (T, error) {
		if s.drv == nil {
			var zero T
			return zero, ErrNoConnection
		}
		return fn(s.drv)
	})
}
