package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/logix-service/internal/infrastructure/logging"
	"github.com/nerrad567/logix-service/internal/infrastructure/mqtt"
	"github.com/nerrad567/logix-service/internal/infrastructure/router"
	"github.com/nerrad567/logix-service/internal/service"
)

// frameSocket is the part of *router.Socket the listener needs.
type frameSocket interface {
	Receive(timeout time.Duration) (identity, payload []byte, ok bool, err error)
	Send(identity, payload []byte) error
}

// routerSocket adapts a router socket to service.Socket.
type routerSocket struct {
	sock frameSocket
}

func (s routerSocket) Receive(timeout time.Duration) (service.Message, bool, error) {
	identity, payload, ok, err := s.sock.Receive(timeout)
	if err != nil {
		return service.Message{}, false, translateSocketErr(err)
	}
	if !ok {
		return service.Message{}, false, nil
	}
	return service.Message{Identity: identity, Payload: payload}, true, nil
}

func (s routerSocket) Send(identity, payload []byte) error {
	return translateSocketErr(s.sock.Send(identity, payload))
}

func translateSocketErr(err error) error {
	if errors.Is(err, router.ErrClosed) {
		return fmt.Errorf("%w: %w", service.ErrSocketClosed, err)
	}
	return err
}

// influxWriter is the part of *influxdb.Client the observer uses.
type influxWriter interface {
	WriteRequestMetric(command, status string, elapsed time.Duration)
	WriteSessionEvent(state, ip string, slot, connectionSize int)
}

// influxObserver records request timings and session transitions as points.
// The client batches writes, so neither call blocks.
type influxObserver struct {
	client influxWriter
}

func (o influxObserver) RequestHandled(command string, status service.Status, elapsed time.Duration) {
	o.client.WriteRequestMetric(command, status.Code(), elapsed)
}

func (o influxObserver) SessionChanged(info service.SessionInfo) {
	o.client.WriteSessionEvent(info.State.String(), info.IP, info.Slot, info.ConnectionSize)
}

// retainedPublisher is the part of *mqtt.Client the session publisher uses.
type retainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
	Topics() mqtt.Topics
}

// sessionMessage is the retained payload on the session topic.
type sessionMessage struct {
	State          string `json:"state"`
	IP             string `json:"ip,omitempty"`
	Slot           int    `json:"slot"`
	Micro800       bool   `json:"micro800"`
	ConnectionSize int    `json:"connection_size,omitempty"`
	Since          string `json:"since,omitempty"`
}

func newSessionMessage(info service.SessionInfo) sessionMessage {
	m := sessionMessage{
		State:          info.State.String(),
		IP:             info.IP,
		Slot:           info.Slot,
		Micro800:       info.Micro800,
		ConnectionSize: info.ConnectionSize,
	}
	if !info.Since.IsZero() {
		m.Since = info.Since.UTC().Format(time.RFC3339)
	}
	return m
}

// sessionPublisher mirrors session changes to a retained MQTT topic.
//
// The session calls SessionChanged on the executor worker, in change order,
// so it only stores the latest snapshot. Run publishes from its own
// goroutine; intermediate snapshots may be skipped when changes arrive
// faster than the broker.
type sessionPublisher struct {
	client retainedPublisher
	logger *logging.Logger

	mu      sync.Mutex
	latest  service.SessionInfo
	pending bool
	wake    chan struct{}
}

func newSessionPublisher(client retainedPublisher, logger *logging.Logger) *sessionPublisher {
	return &sessionPublisher{
		client: client,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// RequestHandled is a no-op; only session state is published.
func (p *sessionPublisher) RequestHandled(string, service.Status, time.Duration) {}

func (p *sessionPublisher) SessionChanged(info service.SessionInfo) {
	p.mu.Lock()
	p.latest = info
	p.pending = true
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run publishes snapshots until ctx is done. A snapshot still pending at
// that point is published before returning.
func (p *sessionPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return nil
		case <-p.wake:
			p.flush()
		}
	}
}

func (p *sessionPublisher) flush() {
	p.mu.Lock()
	info, pending := p.latest, p.pending
	p.pending = false
	p.mu.Unlock()

	if !pending {
		return
	}

	payload, err := json.Marshal(newSessionMessage(info))
	if err != nil {
		p.logger.Error("encoding session status", "error", err)
		return
	}
	if err := p.client.PublishRetained(p.client.Topics().Session(), payload); err != nil {
		p.logger.Debug("publishing session status", "error", err)
	}
}
