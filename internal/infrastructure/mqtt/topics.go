package mqtt

import "fmt"

// Topics builds the presence topics for one node under a shared prefix.
//
// Both topics are unique per node within the prefix namespace: no two live
// nodes may share a node ID under the same prefix, or their retained status
// messages collide.
//
//	topics := mqtt.Topics{Prefix: "graylogic/nodes", NodeID: "rack-7"}
//	topics.Status()    // "graylogic/nodes/rack-7/status"
//	topics.Heartbeat() // "graylogic/nodes/rack-7/heartbeat"
type Topics struct {
	Prefix string
	NodeID string
}

// Status returns the retained status topic for the node.
//
// Example: graylogic/nodes/rack-7/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/%s/status", t.Prefix, t.NodeID)
}

// Heartbeat returns the non-retained heartbeat topic for the node.
//
// Example: graylogic/nodes/rack-7/heartbeat
func (t Topics) Heartbeat() string {
	return fmt.Sprintf("%s/%s/heartbeat", t.Prefix, t.NodeID)
}

// AllStatuses returns a pattern matching every node's status under the prefix.
//
// Pattern: graylogic/nodes/+/status
//
// The agent never subscribes; this exists for operators and tests.
func (t Topics) AllStatuses() string {
	return fmt.Sprintf("%s/+/status", t.Prefix)
}
