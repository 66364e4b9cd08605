package mqtt

import "fmt"

// TopicPrefix is the root of every topic this service publishes.
const TopicPrefix = "logix"

// Topics builds the topics for one service instance.
//
//	topics := mqtt.Topics{ServiceID: "logix-001"}
//	topics.Status()  // "logix/logix-001/status"
type Topics struct {
	ServiceID string
}

// Status returns the retained presence topic, also used for the LWT.
//
// Example: logix/logix-001/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, t.ServiceID)
}

// Session returns the retained PLC session topic.
//
// Example: logix/logix-001/session
func (t Topics) Session() string {
	return fmt.Sprintf("%s/%s/session", TopicPrefix, t.ServiceID)
}

// All returns a wildcard matching every topic of this service.
//
// Example: logix/logix-001/#
func (t Topics) All() string {
	return fmt.Sprintf("%s/%s/#", TopicPrefix, t.ServiceID)
}
