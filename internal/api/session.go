package api

import (
	"net/http"
	"time"

	"github.com/nerrad567/logix-service/internal/service"
)

// sessionView is the JSON form of a session snapshot.
type sessionView struct {
	State          string  `json:"state"`
	IP             string  `json:"ip,omitempty"`
	Slot           int     `json:"slot"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty"`
	Micro800       bool    `json:"micro800"`
	ConnectionSize int     `json:"connection_size,omitempty"`
	Since          string  `json:"since,omitempty"`
}

func newSessionView(info service.SessionInfo) sessionView {
	v := sessionView{
		State:          info.State.String(),
		IP:             info.IP,
		Slot:           info.Slot,
		TimeoutSeconds: info.Timeout.Seconds(),
		Micro800:       info.Micro800,
		ConnectionSize: info.ConnectionSize,
	}
	if !info.Since.IsZero() {
		v.Since = info.Since.UTC().Format(time.RFC3339)
	}
	return v
}

// handleSession returns the current PLC session.
func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newSessionView(s.session.Info()))
}
