package influxdb

import "time"

// Measurement names.
const (
	measurementRequests = "logix_requests"
	measurementSessions = "logix_sessions"
)

// WriteRequestMetric records one handled request, tagged by command and
// wire status, with the handling time in seconds.
//
//	client.WriteRequestMetric("read", "SUCCESS", 3*time.Millisecond)
func (c *Client) WriteRequestMetric(command, status string, elapsed time.Duration) {
	c.record(measurementRequests,
		map[string]string{"command": command, "status": status},
		map[string]interface{}{"duration_seconds": elapsed.Seconds()},
	)
}

// WriteSessionEvent records a PLC session change. The address and the
// connection size are left out while disconnected.
func (c *Client) WriteSessionEvent(state, ip string, slot, connectionSize int) {
	fields := map[string]interface{}{"slot": slot}
	if ip != "" {
		fields["ip"] = ip
	}
	if connectionSize > 0 {
		fields["connection_size"] = connectionSize
	}
	c.record(measurementSessions, map[string]string{"state": state}, fields)
}
