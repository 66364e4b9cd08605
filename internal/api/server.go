// Package api provides the HTTP admin API for the service.
//
// It exposes read-only views for operators and monitoring: health of the
// service and its optional backends, the current PLC session, the audit
// trail of state-changing requests, and Prometheus metrics. PLC traffic
// never goes through HTTP; the ZeroMQ endpoint is the only request path.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/logix-service/internal/audit"
	"github.com/nerrad567/logix-service/internal/infrastructure/config"
	"github.com/nerrad567/logix-service/internal/infrastructure/logging"
	"github.com/nerrad567/logix-service/internal/service"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SessionSource reports the current PLC session.
type SessionSource interface {
	Info() service.SessionInfo
}

// HealthChecker is implemented by backends that can report their health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Session SessionSource
	Audit   audit.Repository         // optional; /audit returns 503 without it
	Metrics http.Handler             // optional; /metrics is not mounted without it
	Checks  map[string]HealthChecker // optional backends reported by /health
	Version string
}

// Server is the HTTP admin API server.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	session   SessionSource
	auditRepo audit.Repository
	metrics   http.Handler
	checks    map[string]HealthChecker
	version   string
	startTime time.Time
	server    *http.Server
	listener  net.Listener
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Session == nil {
		return nil, fmt.Errorf("session source is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		session:   deps.Session,
		auditRepo: deps.Audit,
		metrics:   deps.Metrics,
		checks:    deps.Checks,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start binds the listener and serves in a background goroutine.
// A bind failure (port in use, etc.) is returned directly.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
