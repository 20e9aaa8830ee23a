package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the presence agent.
// All configuration can come from a YAML file, from environment variables,
// or both; environment variables win.
type Config struct {
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Node    NodeConfig    `yaml:"node"`
	Logging LoggingConfig `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	// BrokerURL is the full broker address including scheme,
	// e.g. "tcp://localhost:1883" or "ssl://broker.example.com:8883".
	BrokerURL string `yaml:"broker_url"`

	Auth MQTTAuthConfig `yaml:"auth"`

	// QoS is the delivery guarantee for status publishes and the last will
	// (0 = at most once, 1 = at least once, 2 = exactly once).
	QoS int `yaml:"qos"`

	// RetainStatus controls whether status messages are published retained.
	RetainStatus bool `yaml:"retain_status"`

	// KeepAlive is the MQTT keepalive interval in seconds.
	KeepAlive int `yaml:"keepalive"`

	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection backoff settings.
// Reconnection itself is handled by the paho client; these only bound
// the retry interval.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// NodeConfig contains the node's identity and heartbeat settings.
type NodeConfig struct {
	// ID identifies this node on the bus. Defaults to the host name.
	// Two live nodes must never share an ID under the same topic prefix,
	// or their retained status messages collide.
	ID string `yaml:"id"`

	// TopicPrefix is the namespace all presence topics live under.
	TopicPrefix string `yaml:"topic_prefix"`

	// ClientIDPrefix is prepended to the generated MQTT client ID.
	ClientIDPrefix string `yaml:"client_id_prefix"`

	// HeartbeatInterval is the heartbeat period in seconds.
	HeartbeatInterval float64 `yaml:"heartbeat_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ConfigError describes a configuration value that failed validation.
// It always names the offending key and the raw value so operators can
// correct it without reading source code.
type ConfigError struct {
	Key    string
	Value  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: invalid value for %s: %q (%s)", e.Key, e.Value, e.Reason)
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// The file is optional: a missing file is not an error, since deployments
// commonly configure the agent entirely through the environment. Any other
// read failure, a parse failure, or a validation failure aborts startup.
//
// Environment variables follow the pattern PRESENCE_KEY, for example
// PRESENCE_BROKER_URL and PRESENCE_HEARTBEAT_INTERVAL.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
		// Environment-only configuration.
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
// The node ID defaults to the host name; if that cannot be determined it is
// left empty and validation reports it as missing.
func defaultConfig() *Config {
	hostname, _ := os.Hostname()

	return &Config{
		MQTT: MQTTConfig{
			QoS:          1,
			RetainStatus: true,
			KeepAlive:    60,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Node: NodeConfig{
			ID:                hostname,
			TopicPrefix:       "graylogic/nodes",
			ClientIDPrefix:    "presence",
			HeartbeatInterval: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Malformed values return a *ConfigError immediately; the
// process must not start with a value it cannot interpret.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PRESENCE_BROKER_URL"); v != "" {
		cfg.MQTT.BrokerURL = v
	}
	if v := os.Getenv("PRESENCE_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PRESENCE_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("PRESENCE_NODE_ID"); v != "" {
		cfg.Node.ID = v
	}
	if v := os.Getenv("PRESENCE_TOPIC_PREFIX"); v != "" {
		cfg.Node.TopicPrefix = v
	}
	if v := os.Getenv("PRESENCE_CLIENT_ID_PREFIX"); v != "" {
		cfg.Node.ClientIDPrefix = v
	}
	if v := os.Getenv("PRESENCE_HEARTBEAT_INTERVAL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &ConfigError{Key: "PRESENCE_HEARTBEAT_INTERVAL", Value: v, Reason: "must be a number of seconds"}
		}
		cfg.Node.HeartbeatInterval = f
	}
	if v := os.Getenv("PRESENCE_QOS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Key: "PRESENCE_QOS", Value: v, Reason: "must be 0, 1, or 2"}
		}
		cfg.MQTT.QoS = n
	}
	if v := os.Getenv("PRESENCE_RETAIN_STATUS"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return &ConfigError{Key: "PRESENCE_RETAIN_STATUS", Value: v, Reason: "must be a boolean"}
		}
		cfg.MQTT.RetainStatus = b
	}
	if v := os.Getenv("PRESENCE_KEEPALIVE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Key: "PRESENCE_KEEPALIVE", Value: v, Reason: "must be a number of seconds"}
		}
		cfg.MQTT.KeepAlive = n
	}
	if v := os.Getenv("PRESENCE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PRESENCE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("PRESENCE_LOG_OUTPUT"); v != "" {
		cfg.Logging.Output = v
	}

	return nil
}

// parseBool interprets the common truthy and falsy spellings,
// case-insensitively.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("unrecognised boolean %q", s)
}

// maxHeartbeatSeconds bounds the heartbeat interval so its nanosecond
// conversion in HeartbeatInterval() cannot overflow a time.Duration.
const maxHeartbeatSeconds = float64(math.MaxInt64 / time.Second)

// validLogLevels are the accepted log verbosity levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// brokerSchemes are the URL schemes the paho client accepts.
var brokerSchemes = map[string]bool{
	"tcp": true,
	"ssl": true,
	"tls": true,
	"ws":  true,
	"wss": true,
}

// Validate checks the configuration for errors.
//
// The first failing key is reported as a *ConfigError; the process must not
// proceed past this stage with an invalid configuration.
func (c *Config) Validate() error {
	if c.MQTT.BrokerURL == "" {
		return &ConfigError{Key: "mqtt.broker_url", Value: "", Reason: "required"}
	}
	u, err := url.Parse(c.MQTT.BrokerURL)
	if err != nil || u.Host == "" {
		return &ConfigError{Key: "mqtt.broker_url", Value: c.MQTT.BrokerURL, Reason: "must be a URL like tcp://host:1883"}
	}
	if !brokerSchemes[u.Scheme] {
		return &ConfigError{Key: "mqtt.broker_url", Value: c.MQTT.BrokerURL, Reason: "scheme must be tcp, ssl, tls, ws, or wss"}
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return &ConfigError{Key: "mqtt.qos", Value: strconv.Itoa(c.MQTT.QoS), Reason: "must be 0, 1, or 2"}
	}
	if c.MQTT.KeepAlive <= 0 {
		return &ConfigError{Key: "mqtt.keepalive", Value: strconv.Itoa(c.MQTT.KeepAlive), Reason: "must be greater than zero"}
	}

	if c.Node.ID == "" {
		return &ConfigError{Key: "node.id", Value: "", Reason: "required (host name could not be determined)"}
	}
	if strings.ContainsAny(c.Node.ID, "/+#") {
		return &ConfigError{Key: "node.id", Value: c.Node.ID, Reason: "must not contain MQTT topic separators or wildcards"}
	}
	if c.Node.TopicPrefix == "" {
		return &ConfigError{Key: "node.topic_prefix", Value: "", Reason: "required"}
	}
	if strings.ContainsAny(c.Node.TopicPrefix, "+#") || strings.HasSuffix(c.Node.TopicPrefix, "/") {
		return &ConfigError{Key: "node.topic_prefix", Value: c.Node.TopicPrefix, Reason: "must not contain wildcards or end with a slash"}
	}
	if c.Node.ClientIDPrefix == "" {
		return &ConfigError{Key: "node.client_id_prefix", Value: "", Reason: "required"}
	}

	hb := c.Node.HeartbeatInterval
	if hb <= 0 || math.IsInf(hb, 0) || math.IsNaN(hb) {
		return &ConfigError{
			Key:    "node.heartbeat_interval",
			Value:  strconv.FormatFloat(hb, 'g', -1, 64),
			Reason: "must be a finite number of seconds greater than zero",
		}
	}
	if hb > maxHeartbeatSeconds {
		return &ConfigError{
			Key:    "node.heartbeat_interval",
			Value:  strconv.FormatFloat(hb, 'g', -1, 64),
			Reason: "too large to represent as a duration",
		}
	}

	lvl := strings.ToLower(c.Logging.Level)
	if !validLogLevels[lvl] {
		return &ConfigError{Key: "logging.level", Value: c.Logging.Level, Reason: "must be debug, info, warn, or error"}
	}

	return nil
}

// HeartbeatInterval returns the heartbeat period as a Duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Node.HeartbeatInterval * float64(time.Second))
}

// KeepAlive returns the MQTT keepalive interval as a Duration.
func (c *Config) KeepAlive() time.Duration {
	return time.Duration(c.MQTT.KeepAlive) * time.Second
}
