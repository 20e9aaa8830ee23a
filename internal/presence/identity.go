package presence

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeIdentity identifies this agent instance on the bus.
// It is immutable for the process lifetime.
type NodeIdentity struct {
	// NodeID names the node in topic paths. Stable across restarts.
	NodeID string

	// ClientID is the MQTT client identifier. Unique per process instance:
	// a random suffix prevents broker session collisions when the agent
	// restarts while the broker still holds the previous connection.
	ClientID string

	// Version is the agent build version, reported in heartbeats.
	Version string
}

// NewNodeIdentity derives an identity from the configured node ID and client
// ID prefix. The random suffix is computed once here, at construction; there
// is no package-level state.
func NewNodeIdentity(nodeID, clientIDPrefix, version string) NodeIdentity {
	suffix := uuid.NewString()[:8]
	return NodeIdentity{
		NodeID:   nodeID,
		ClientID: fmt.Sprintf("%s-%s-%s", clientIDPrefix, nodeID, suffix),
		Version:  version,
	}
}
