package mqtt

import (
	"fmt"
)

// Subscribe registers a handler for a topic and remembers the
// registration so it survives reconnects. The engine subscribes once,
// to the command topic; wildcards work the usual MQTT way
// ("droidpilot/run/+/failed" for a monitoring consumer).
//
// Handlers run on paho's goroutines and should hand work off rather
// than block.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Remember first so a reconnect racing this call still replays it.
	c.mu.Lock()
	c.subs[topic] = subscription{topic: topic, qos: qos, handler: handler}
	c.mu.Unlock()

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.forget(topic)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		c.forget(topic)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

func (c *Client) forget(topic string) {
	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()
}
