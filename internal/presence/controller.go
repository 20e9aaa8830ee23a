package presence

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-presence/internal/infrastructure/logging"
)

// ConnectionState is the controller's logical connection state.
// It transitions only through broker events or a termination signal, and is
// never persisted: after a crash the broker-side last will is the sole
// source of truth until the agent restarts.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnected
	StateShuttingDown
)

// String returns the lowercase state name for logging.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateShuttingDown:
		return "shutting_down"
	}
	return "unknown"
}

// Broker is the slice of the MQTT client the controller drives.
// The connection handle behind it is owned exclusively by the controller;
// no other component publishes or disconnects.
type Broker interface {
	// Publish sends a message and waits for acknowledgment appropriate to
	// the QoS level, bounded by the client's own timeout.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected reports the current link state synchronously.
	IsConnected() bool

	// Disconnect requests a clean disconnect, waiting for in-flight
	// operations up to the client's quiesce period.
	Disconnect()
}

// ControllerConfig carries the controller's fixed parameters.
type ControllerConfig struct {
	StatusTopic    string
	HeartbeatTopic string

	// StatusQoS applies to status publishes and the last will. Heartbeats
	// always go out at QoS 0: they are ephemeral and replaceable, and the
	// retained status message alone carries the durable state.
	StatusQoS    byte
	RetainStatus bool

	HeartbeatInterval time.Duration

	// ShutdownGrace bounds how long shutdown waits for a clean disconnect
	// before giving up. Zero means defaultShutdownGrace.
	ShutdownGrace time.Duration
}

// defaultShutdownGrace is the fallback deadline for a stuck disconnect.
const defaultShutdownGrace = 3 * time.Second

// eventBuffer sizes the controller's event queue. Connection events are
// sparse; the buffer only needs to absorb a burst around a reconnect, plus
// the initial connect event that fires before Run starts draining.
const eventBuffer = 16

type eventKind int

const (
	eventConnect eventKind = iota
	eventConnectionLost
	eventReconnecting
	eventError
)

// String returns the event name for logging.
func (k eventKind) String() string {
	switch k {
	case eventConnect:
		return "connect"
	case eventConnectionLost:
		return "connection_lost"
	case eventReconnecting:
		return "reconnecting"
	case eventError:
		return "error"
	}
	return "unknown"
}

type event struct {
	kind eventKind
	err  error
}

// Controller owns the node's lifecycle: Disconnected, Connected,
// ShuttingDown, and the side effects of each transition (status publication,
// heartbeat scheduling, graceful shutdown).
//
// All state lives behind a single event loop (Run). Broker callbacks, timer
// ticks, and the termination signal are serialised through that loop, so the
// transition handlers never run concurrently and need no locks.
type Controller struct {
	broker  Broker
	builder *PayloadBuilder
	cfg     ControllerConfig
	log     *logging.Logger

	events chan event

	// state is written only by the Run goroutine; atomic so observers
	// (logs, tests) can read it from outside the loop.
	state atomic.Int32
}

// NewController creates a controller. Run must be called for it to do
// anything; events arriving before Run starts are buffered.
func NewController(broker Broker, builder *PayloadBuilder, cfg ControllerConfig, log *logging.Logger) *Controller {
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = defaultShutdownGrace
	}
	return &Controller{
		broker:  broker,
		builder: builder,
		cfg:     cfg,
		log:     log.With("component", "lifecycle"),
		events:  make(chan event, eventBuffer),
	}
}

// State returns the controller's current connection state.
func (c *Controller) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// OnConnect is the broker callback for initial connection and every
// reconnection. Safe to call from any goroutine.
func (c *Controller) OnConnect() {
	c.enqueue(event{kind: eventConnect})
}

// OnConnectionLost is the broker callback for a dropped connection.
func (c *Controller) OnConnectionLost(err error) {
	c.enqueue(event{kind: eventConnectionLost, err: err})
}

// OnReconnecting is the broker callback for a reconnection attempt.
func (c *Controller) OnReconnecting() {
	c.enqueue(event{kind: eventReconnecting})
}

// OnError reports a transport error. Logged only; never changes state.
func (c *Controller) OnError(err error) {
	c.enqueue(event{kind: eventError, err: err})
}

// enqueue delivers an event without blocking the broker's callback
// goroutine. Connection events are level-like (the broker re-reports state
// on the next transition), so dropping on a full queue is safe.
func (c *Controller) enqueue(ev event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("event queue full, dropping event", "kind", ev.kind.String())
	}
}

// Run drives the lifecycle until ctx is cancelled by a termination signal,
// then executes the shutdown sequence and returns.
//
// The heartbeat ticker exists only while Connected; it is destroyed on every
// path out of that state, before any further publish is attempted, so a
// lingering tick can never publish into a closing connection.
func (c *Controller) Run(ctx context.Context) error {
	var ticker *time.Ticker
	var tick <-chan time.Time

	stopHeartbeat := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tick = nil
		}
	}
	defer stopHeartbeat()

	c.log.Info("lifecycle controller running",
		"status_topic", c.cfg.StatusTopic,
		"heartbeat_topic", c.cfg.HeartbeatTopic,
		"heartbeat_interval", c.cfg.HeartbeatInterval,
	)

	for {
		select {
		case <-ctx.Done():
			stopHeartbeat()
			c.shutdown()
			return nil

		case ev := <-c.events:
			switch ev.kind {
			case eventConnect:
				stopHeartbeat()
				c.handleConnect()
				ticker = time.NewTicker(c.cfg.HeartbeatInterval)
				tick = ticker.C

			case eventConnectionLost:
				stopHeartbeat()
				c.state.Store(int32(StateDisconnected))
				c.log.Warn("broker connection lost", "error", ev.err)

			case eventReconnecting:
				c.log.Info("reconnecting to broker")

			case eventError:
				c.log.Error("broker error", "error", ev.err)
			}

		case <-tick:
			c.publishHeartbeat()
		}
	}
}

// handleConnect publishes the retained online status and marks the state
// Connected. The caller starts the heartbeat ticker immediately after, so
// heartbeats never begin before the online publish has been issued. A failed
// publish is logged but does not hold the heartbeat back: the broker client
// reconnects on its own and will re-fire this path.
func (c *Controller) handleConnect() {
	c.state.Store(int32(StateConnected))

	payload, err := c.builder.StatusJSON(StatusOnline)
	if err != nil {
		c.log.Error("building online status", "error", err)
		return
	}

	if err := c.broker.Publish(c.cfg.StatusTopic, payload, c.cfg.StatusQoS, c.cfg.RetainStatus); err != nil {
		c.log.Error("publishing online status", "error", err)
		return
	}

	c.log.Info("online status published", "topic", c.cfg.StatusTopic)
}

// publishHeartbeat publishes one heartbeat if the broker currently reports
// connected. The connectivity check guards against a tick landing in the gap
// between a disconnect event and ticker teardown. Failures are logged and
// swallowed; the next tick tries again.
func (c *Controller) publishHeartbeat() {
	if !c.broker.IsConnected() {
		c.log.Debug("skipping heartbeat, not connected")
		return
	}

	payload, err := c.builder.HeartbeatJSON()
	if err != nil {
		c.log.Error("building heartbeat", "error", err)
		return
	}

	// Fire and forget: QoS 0, never retained.
	if err := c.broker.Publish(c.cfg.HeartbeatTopic, payload, 0, false); err != nil {
		c.log.Warn("heartbeat publish failed", "error", err)
		return
	}

	c.log.Debug("heartbeat published", "topic", c.cfg.HeartbeatTopic)
}

// shutdown executes the ordered shutdown sequence:
//
//  1. Mark ShuttingDown (idempotency guard for repeat signals)
//  2. Heartbeat ticker is already stopped by the caller
//  3. If still connected, publish the retained offline status and wait for
//     its acknowledgment, so observers see a deliberate offline rather than
//     the last-will path the broker takes on a crash
//  4. Request a clean disconnect
//  5. Return once the disconnect completes or the grace deadline elapses
//
// Every step is best-effort: a failure is logged and the sequence continues.
func (c *Controller) shutdown() {
	if ConnectionState(c.state.Swap(int32(StateShuttingDown))) == StateShuttingDown {
		return
	}

	c.log.Info("shutting down")

	if c.broker.IsConnected() {
		payload, err := c.builder.StatusJSON(StatusOffline)
		if err != nil {
			c.log.Error("building offline status", "error", err)
		} else if err := c.broker.Publish(c.cfg.StatusTopic, payload, c.cfg.StatusQoS, c.cfg.RetainStatus); err != nil {
			c.log.Error("publishing offline status", "error", err)
		} else {
			c.log.Info("offline status published", "topic", c.cfg.StatusTopic)
		}
	}

	done := make(chan struct{})
	go func() {
		c.broker.Disconnect()
		close(done)
	}()

	deadline := time.NewTimer(c.cfg.ShutdownGrace)
	defer deadline.Stop()

	select {
	case <-done:
		c.log.Info("disconnected cleanly")
	case <-deadline.C:
		// Exit anyway: shutdown intent was honoured, the broker's
		// keepalive will reap the connection and fire the last will.
		c.log.Warn("clean disconnect did not complete before grace deadline",
			"grace", c.cfg.ShutdownGrace,
		)
	}
}
