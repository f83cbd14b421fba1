package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/droidpilot/droidpilot/internal/infrastructure/config"
)

// MessageHandler receives one inbound message. Paho invokes handlers
// on its own goroutines; a returned error is logged and the message is
// acknowledged regardless.
type MessageHandler func(topic string, payload []byte) error

// Logger is the slice of the logging interface the client needs for
// handler failures. Satisfied by *logging.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Client is the engine's MQTT endpoint: run and device events out on
// the droidpilot/... topics, fleet commands in on droidpilot/command.
//
// The client remembers its subscriptions so a broker reconnect
// restores the command topic without caller involvement, and it
// announces the engine on the system status topic: a retained online
// message on every (re)connect, a graceful offline message on Close,
// and the LWT for crashes.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	mu        sync.RWMutex
	connected bool
	subs      map[string]subscription

	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// subscription is one remembered topic registration, replayed on
// reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// Connect dials the broker and returns a ready client. The config's
// reconnect policy is handed to paho, so a lost broker is retried in
// the background; the initial dial failing within the connect timeout
// is the only fatal case.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:  cfg,
		subs: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.brokerUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.brokerDown(err) })

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs on paho's goroutine and may not have
	// landed yet; mark connected here so the caller can publish
	// immediately after Connect returns.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

// brokerUp runs on every (re)connect: replay subscriptions, announce
// the engine, then the caller's hook.
func (c *Client) brokerUp() {
	c.mu.Lock()
	c.connected = true
	subs := make([]subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	hook := c.onConnect
	c.mu.Unlock()

	for _, sub := range subs {
		// Failures here surface through the broker's next disconnect.
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}

	c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
		statusPayload(c.cfg.Broker.ClientID, "online", ""))

	if hook != nil {
		hook()
	}
}

// brokerDown runs when the connection drops; paho keeps retrying.
func (c *Client) brokerDown(err error) {
	c.mu.Lock()
	c.connected = false
	hook := c.onDisconnect
	c.mu.Unlock()

	if hook != nil {
		hook(err)
	}
}

// Close announces a graceful shutdown on the status topic (so
// dashboards can tell it from a crash, which the LWT reports) and
// disconnects after a quiesce period for in-flight publishes.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
			statusPayload(c.cfg.Broker.ClientID, "offline", "graceful_shutdown"))
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	return nil
}

// HealthCheck reports whether the broker connection is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// SetOnConnect registers a hook invoked on the initial connect and on
// every reconnect.
func (c *Client) SetOnConnect(hook func()) {
	c.mu.Lock()
	c.onConnect = hook
	c.mu.Unlock()
}

// SetOnDisconnect registers a hook invoked when the connection drops,
// with the reason.
func (c *Client) SetOnDisconnect(hook func(err error)) {
	c.mu.Lock()
	c.onDisconnect = hook
	c.mu.Unlock()
}

// SetLogger enables logging of handler errors and recovered panics.
// Without one, those are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// wrapHandler adapts a MessageHandler to paho's signature, containing
// panics so a bad command payload cannot take the engine down.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("message handler panic recovered",
						"topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("message handler failed",
					"topic", msg.Topic(), "error", err)
			}
		}
	}
}
