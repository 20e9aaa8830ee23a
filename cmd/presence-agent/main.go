// Presence Agent - node presence and heartbeat publisher
//
// The agent maintains a persistent connection to the MQTT broker, announces
// this node's online/offline state on a retained status topic backed by a
// broker-enforced last will, and publishes a periodic liveness heartbeat.
// Other systems on the bus learn in near real time whether this node is
// alive, without polling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-presence/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-presence/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-presence/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-presence/internal/presence"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path. The file is optional; environment-only
// deployments simply leave it absent.
const defaultConfigPath = "configs/config.yaml"

func main() {
	// SIGINT and SIGTERM both cancel the context. Repeat signals while the
	// shutdown sequence runs are absorbed by the registration, so shutdown
	// executes exactly once.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean signal-triggered shutdown; any error is an
// unrecoverable startup failure and maps to a non-zero exit code.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting presence agent",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	identity := presence.NewNodeIdentity(cfg.Node.ID, cfg.Node.ClientIDPrefix, version)
	topics := mqtt.Topics{Prefix: cfg.Node.TopicPrefix, NodeID: identity.NodeID}
	builder := presence.NewPayloadBuilder(identity)

	log.Info("node identity resolved",
		"node_id", identity.NodeID,
		"client_id", identity.ClientID,
		"status_topic", topics.Status(),
	)

	// The last will carries the same offline status an orderly shutdown
	// publishes, so observers see one payload shape on both paths.
	will, err := builder.StatusJSON(presence.StatusOffline)
	if err != nil {
		return fmt.Errorf("building last will: %w", err)
	}

	// The controller is wired before Connect so the initial connect event
	// cannot slip past it; its event queue buffers until Run drains.
	var ctrl *presence.Controller
	client := mqtt.NewClient(cfg.MQTT, identity.ClientID,
		mqtt.Will{
			Topic:   topics.Status(),
			Payload: will,
			QoS:     byte(cfg.MQTT.QoS),
			Retain:  cfg.MQTT.RetainStatus,
		},
		mqtt.Events{
			OnConnect:        func() { ctrl.OnConnect() },
			OnConnectionLost: func(err error) { ctrl.OnConnectionLost(err) },
			OnReconnecting:   func() { ctrl.OnReconnecting() },
		},
	)

	ctrl = presence.NewController(client, builder, presence.ControllerConfig{
		StatusTopic:       topics.Status(),
		HeartbeatTopic:    topics.Heartbeat(),
		StatusQoS:         byte(cfg.MQTT.QoS),
		RetainStatus:      cfg.MQTT.RetainStatus,
		HeartbeatInterval: cfg.HeartbeatInterval(),
	}, log)

	if err := client.Connect(); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	log.Info("connected to broker",
		"broker", cfg.MQTT.BrokerURL,
		"heartbeat_interval", cfg.HeartbeatInterval(),
	)

	// Blocks until a termination signal, then executes the shutdown
	// sequence (stop heartbeat, retained offline status, clean disconnect)
	// before returning.
	if err := ctrl.Run(ctx); err != nil {
		return fmt.Errorf("lifecycle controller: %w", err)
	}

	log.Info("presence agent stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses the PRESENCE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PRESENCE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
