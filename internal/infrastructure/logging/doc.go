// Package logging provides structured logging for the presence agent.
//
// This package wraps Go's standard log/slog package to provide consistent,
// structured logging across the agent.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig section:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("connected to broker", "broker", cfg.MQTT.BrokerURL)
//	logger.Warn("heartbeat publish failed", "error", err)
//
// Never log broker credentials or other secrets.
package logging
