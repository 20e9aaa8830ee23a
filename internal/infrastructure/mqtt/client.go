package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-presence/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang for the presence agent.
//
// It provides connection management with automatic reconnection, a last will
// registered at connect time, bounded-timeout publishing, and connection
// event callbacks.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Event callbacks are invoked from paho's goroutines; consumers must
//     serialise their own state (the lifecycle controller funnels them
//     through a single event loop).
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	// connected tracks the last known connection state.
	connected bool
	connMu    sync.RWMutex
}

// Will is the last-will message the broker publishes on our behalf if the
// connection drops without a clean disconnect.
type Will struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// Events are the connection lifecycle callbacks.
//
// They are registered on the paho options at construction, before Connect,
// so the first connect event is never lost to a registration race. Any
// callback may be nil. Callbacks only fire after Connect is called, which
// lets the caller finish wiring consumers between NewClient and Connect.
type Events struct {
	// OnConnect fires on the initial connection and on every reconnection.
	OnConnect func()

	// OnConnectionLost fires when an established connection drops.
	OnConnectionLost func(err error)

	// OnReconnecting fires when the client begins a reconnection attempt.
	OnReconnecting func()
}

// NewClient builds a client ready to connect.
//
// It configures the broker URL, credentials, TLS, keepalive, auto-reconnect
// with capped backoff, the last will for crash-path offline detection, and
// the event callbacks.
func NewClient(cfg config.MQTTConfig, clientID string, will Will, events Events) *Client {
	c := &Client{cfg: cfg}

	opts := buildClientOptions(cfg, clientID)
	opts.SetWill(will.Topic, string(will.Payload), will.QoS, will.Retain)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.setConnected(true)
		if events.OnConnect != nil {
			events.OnConnect()
		}
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.setConnected(false)
		if events.OnConnectionLost != nil {
			events.OnConnectionLost(err)
		}
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if events.OnReconnecting != nil {
			events.OnReconnecting()
		}
	})

	c.client = pahomqtt.NewClient(opts)
	return c
}

// Connect attempts the initial connection with a timeout.
//
// A failure here is a startup failure: the caller is expected to abort the
// process rather than retry, since the paho retry loop has not begun. After
// a successful return, reconnection is automatic and surfaces only through
// the event callbacks.
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler runs asynchronously and may not have executed
	// yet; set the flag here so IsConnected() is true on return.
	c.setConnected(true)

	return nil
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}

// Disconnect cleanly disconnects from the broker, waiting up to the quiesce
// period for in-flight operations to complete.
//
// A clean disconnect tells the broker NOT to publish the last will; callers
// that want observers notified must publish an explicit offline status first.
func (c *Client) Disconnect() {
	if c.client == nil {
		return
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
}

// HealthCheck verifies the MQTT connection is alive.
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

// IsConnected returns the current connection state.
//
// This reflects the last known state as reported by paho; a broken link may
// not be noticed until the keepalive window expires.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}
