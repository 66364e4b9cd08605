package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds each backend check.
const healthCheckTimeout = 2 * time.Second

// healthResponse is the body of GET /api/v1/health.
type healthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Session       string            `json:"session"`
	Components    map[string]string `json:"components,omitempty"`
}

// handleHealth reports "ok" when every configured backend is healthy and
// "degraded" with 503 otherwise. A disconnected PLC session is not a
// failure: clients connect on demand.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Session:       s.session.Info().State.String(),
	}

	if len(s.checks) > 0 {
		resp.Components = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := check.HealthCheck(ctx)
			cancel()

			if err != nil {
				resp.Components[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Components[name] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
