package presence

import (
	"encoding/json"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Status states published on the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// StatusPayload is the retained message on the status topic. The broker
// serves the most recent one to any new subscriber immediately.
type StatusPayload struct {
	State     string `json:"state"`
	Timestamp string `json:"ts"`
}

// HeartbeatPayload is the periodic liveness message. Published non-retained:
// a late subscriber only sees status until the next live heartbeat arrives.
type HeartbeatPayload struct {
	Timestamp string     `json:"ts"`
	NodeID    string     `json:"nodeId"`
	UptimeSec float64    `json:"uptimeSec"`
	LoadAvg   [3]float64 `json:"loadAvg"`
	Mem       MemInfo    `json:"mem"`
	PID       int        `json:"pid"`
	Version   string     `json:"version"`
}

// MemInfo holds host memory totals in bytes.
type MemInfo struct {
	TotalBytes uint64 `json:"total"`
	FreeBytes  uint64 `json:"free"`
}

// PayloadBuilder produces status and heartbeat payloads for one node.
//
// Building a payload has no side effects. Heartbeats sample host metrics at
// call time; nothing is cached, so every payload reflects the instant it
// was built. Uptime is the agent's own process uptime, measured from builder
// construction.
type PayloadBuilder struct {
	identity  NodeIdentity
	startedAt time.Time

	// now is the clock; replaced in tests.
	now func() time.Time
}

// NewPayloadBuilder creates a builder for the given identity, anchoring the
// uptime clock to the current instant.
func NewPayloadBuilder(identity NodeIdentity) *PayloadBuilder {
	return &PayloadBuilder{
		identity:  identity,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// Status builds a status payload stamped with the current wall-clock time.
func (b *PayloadBuilder) Status(state string) StatusPayload {
	return StatusPayload{
		State:     state,
		Timestamp: b.now().UTC().Format(time.RFC3339),
	}
}

// StatusJSON builds and serialises a status payload.
func (b *PayloadBuilder) StatusJSON(state string) ([]byte, error) {
	return json.Marshal(b.Status(state))
}

// Heartbeat builds a heartbeat payload, sampling load average and memory at
// call time. On platforms where a metric is unavailable the corresponding
// fields stay zero rather than failing the heartbeat.
func (b *PayloadBuilder) Heartbeat() HeartbeatPayload {
	now := b.now()

	hb := HeartbeatPayload{
		Timestamp: now.UTC().Format(time.RFC3339),
		NodeID:    b.identity.NodeID,
		UptimeSec: now.Sub(b.startedAt).Seconds(),
		PID:       os.Getpid(),
		Version:   b.identity.Version,
	}

	if avg, err := load.Avg(); err == nil {
		hb.LoadAvg = [3]float64{avg.Load1, avg.Load5, avg.Load15}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		hb.Mem = MemInfo{TotalBytes: vm.Total, FreeBytes: vm.Free}
	}

	return hb
}

// HeartbeatJSON builds and serialises a heartbeat payload.
func (b *PayloadBuilder) HeartbeatJSON() ([]byte, error) {
	return json.Marshal(b.Heartbeat())
}
