// Package presence implements the node's presence lifecycle: the connection
// state machine, the retained online/offline status, and the periodic
// heartbeat.
//
// # State machine
//
// The Controller owns one of three states:
//
//	Disconnected → Connected → Disconnected → … ; any → ShuttingDown (terminal)
//
// Broker connect events publish a retained "online" status and start the
// heartbeat ticker; connection-lost events stop the ticker; a termination
// signal runs the ordered shutdown sequence (stop ticker, publish retained
// "offline", clean disconnect, bounded by a grace deadline).
//
// External observers therefore see "offline" either promptly (clean exit)
// or as soon as the broker detects the dead connection and fires the last
// will (crash, kill -9), never an indefinitely stale "online".
//
// # Concurrency
//
// Broker callbacks, heartbeat ticks, and the termination signal are all
// serialised through one event loop goroutine (Controller.Run). No handler
// runs concurrently with another, so the controller holds no locks; the only
// atomics exist so the current state can be observed from outside the loop.
//
// # Payloads
//
// PayloadBuilder produces both wire payloads as JSON. Status carries
// {state, ts}; heartbeat carries {ts, nodeId, uptimeSec, loadAvg, mem, pid,
// version}, with load average and memory sampled via gopsutil at build time.
package presence
