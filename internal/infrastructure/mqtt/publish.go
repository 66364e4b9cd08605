package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "logix/logix-001/session")
//   - payload: The message payload (typically JSON, max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if retained {
		c.remember(topic, payload)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %w after %v", ErrPublishFailed, ErrTimeout, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishRetained publishes a retained message with the configured default QoS.
//
// The payload is also kept locally and republished after a reconnect, so a
// publish made while the broker is unreachable is not lost.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	err := c.Publish(topic, payload, byte(c.cfg.QoS), true)
	if err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT retained publish failed",
				"topic", topic,
				"error", err,
			)
		}
	}
	return err
}

func (c *Client) remember(topic string, payload []byte) {
	buf := make([]byte, len(payload))
	copy(buf, payload)

	c.retainedMu.Lock()
	c.retained[topic] = buf
	c.retainedMu.Unlock()
}
