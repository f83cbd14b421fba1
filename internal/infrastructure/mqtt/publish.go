package mqtt

import (
	"fmt"
)

// maxPayloadSize caps a single publish at 1MB, in line with common
// broker limits. Screenshots never travel over MQTT; events are small
// JSON documents.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for broker acknowledgment
// up to the publish timeout. Run and step events use QoS 1 and no
// retention; retained state topics go through PublishRetained.
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

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishRetained publishes with the configured default QoS and the
// retained flag set, for state topics (device status) where a late
// subscriber should see the current value immediately.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
