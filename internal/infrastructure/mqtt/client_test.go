package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-presence/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		BrokerURL:    "tcp://127.0.0.1:1883",
		QoS:          1,
		RetainStatus: true,
		KeepAlive:    60,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Option Building Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "svc"
	cfg.Auth.Password = "secret"
	cfg.KeepAlive = 45

	opts := buildClientOptions(cfg, "presence-node-1-abc123")

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "presence-node-1-abc123" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "presence-node-1-abc123")
	}
	if opts.Username != "svc" || opts.Password != "secret" {
		t.Error("credentials not applied to options")
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
	if !opts.ConnectRetry {
		t.Error("ConnectRetry = false, want true")
	}
	if opts.ConnectRetryInterval != time.Second {
		t.Errorf("ConnectRetryInterval = %v, want 1s", opts.ConnectRetryInterval)
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}
	if opts.KeepAlive != 45 {
		t.Errorf("KeepAlive = %d, want 45", opts.KeepAlive)
	}
	if opts.TLSConfig != nil {
		t.Error("TLSConfig set for tcp:// broker, want nil")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.BrokerURL = "ssl://broker.example.com:8883"

	opts := buildClientOptions(cfg, "presence-test")

	if opts.TLSConfig == nil {
		t.Fatal("TLSConfig = nil for ssl:// broker")
	}
	if opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Errorf("TLSConfig.MinVersion = %d, want %d", opts.TLSConfig.MinVersion, tlsMinVersion)
	}
}

func TestIsSecureScheme(t *testing.T) {
	tests := []struct {
		url    string
		secure bool
	}{
		{"tcp://localhost:1883", false},
		{"ws://localhost:8080", false},
		{"ssl://localhost:8883", true},
		{"tls://localhost:8883", true},
		{"wss://localhost:8443", true},
		{"SSL://localhost:8883", true},
		{"://bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := isSecureScheme(tt.url); got != tt.secure {
				t.Errorf("isSecureScheme(%q) = %v, want %v", tt.url, got, tt.secure)
			}
		})
	}
}

// =============================================================================
// Publish Validation Tests
// =============================================================================

func TestPublishEmptyTopic(t *testing.T) {
	client := &Client{}

	err := client.Publish("", []byte("test"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	client := &Client{}

	err := client.Publish("test/topic", []byte("test"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublishOversizedPayload(t *testing.T) {
	client := &Client{}

	err := client.Publish("test/topic", make([]byte, maxPayloadSize+1), 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestPublishDisconnected(t *testing.T) {
	client := &Client{}

	err := client.Publish("test/topic", []byte("test"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Connection State Tests
// =============================================================================

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestDisconnectNil(t *testing.T) {
	client := &Client{}
	client.Disconnect() // must not panic
}

func TestHealthCheckCancelled(t *testing.T) {
	client := &Client{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := &Client{}

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "graylogic/nodes", NodeID: "rack-7"}

	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{"Status", topics.Status, "graylogic/nodes/rack-7/status"},
		{"Heartbeat", topics.Heartbeat, "graylogic/nodes/rack-7/heartbeat"},
		{"AllStatuses", topics.AllStatuses, "graylogic/nodes/+/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.builder(); got != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}
