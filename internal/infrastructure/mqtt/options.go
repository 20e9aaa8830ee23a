package mqtt

import (
	"crypto/tls"
	"net/url"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-presence/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions creates paho MQTT options from agent config.
//
// This configures:
//   - Broker URL (tcp://, ssl://, ws:// or wss://)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Auto-reconnect with capped backoff
//   - Keepalive from config
//   - TLS configuration for secure schemes
//   - Clean session mode
func buildClientOptions(cfg config.MQTTConfig, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(clientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session - the agent carries no subscriptions worth resuming,
	// and a stale broker session under a reused client ID would be wrong.
	opts.SetCleanSession(true)

	// Auto-reconnect with capped backoff. Reconnection after a drop is
	// entirely the client's job; the lifecycle controller only reacts to
	// the resulting connect/lost events.
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)

	// Keepalive - the broker detects a dead connection within roughly
	// 1.5x this interval and then publishes the last will.
	opts.SetKeepAlive(time.Duration(cfg.KeepAlive) * time.Second)

	if isSecureScheme(cfg.BrokerURL) {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts
}

// isSecureScheme reports whether the broker URL uses a TLS scheme.
func isSecureScheme(brokerURL string) bool {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "ssl", "tls", "wss":
		return true
	}
	return false
}
