// Package mqtt publishes service presence and session state to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained online/offline status with Last Will and Testament (LWT)
//   - Retained PLC session snapshots for dashboards and supervisors
//   - Connection health monitoring
//
// MQTT is optional. The ZeroMQ endpoint is the only request path; the broker
// only receives announcements, so a broker outage never blocks a request.
//
// # Topics
//
//	logix/{service_id}/status   online | offline (retained, LWT)
//	logix/{service_id}/session  current PLC session (retained)
//
// # Security Considerations
//
//   - TLS should be enabled outside the control network (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Payloads never contain tag values, only session metadata
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Service.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.PublishRetained(client.Topics().Session(), payload)
package mqtt
