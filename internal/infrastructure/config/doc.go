// Package config handles loading and validating presence agent configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with PRESENCE_* environment variables
//   - Per-key validation with fail-fast errors
//   - Default value handling (node ID defaults to the host name)
//
// Validation failures surface as *ConfigError values that name the offending
// key and the raw value. The agent refuses to start on any validation error;
// a supervising process manager is expected to restart it once the
// configuration is corrected.
//
// Security Considerations:
//   - Broker credentials should be set via environment variables
//     (PRESENCE_USERNAME, PRESENCE_PASSWORD) rather than the config file
//   - The config file, if used, should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Node.ID)
package config
