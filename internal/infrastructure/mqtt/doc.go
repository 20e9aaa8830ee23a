// Package mqtt provides MQTT broker connectivity for the presence agent.
//
// This package manages:
//   - Connection to the broker with auto-reconnect and capped backoff
//   - Last Will and Testament (LWT) registered at connect time, so the
//     broker announces "offline" if the agent dies without a clean disconnect
//   - Message publishing with QoS guarantees and bounded timeouts
//   - Connection event callbacks (connect, connection lost, reconnecting)
//
// # Architecture
//
// The agent is publish-only: it announces its own status and heartbeat and
// never subscribes. The lifecycle controller in internal/presence consumes
// this package through a narrow interface (publish, connection state, clean
// disconnect) and reacts to the Events callbacks; reconnection itself is
// entirely paho's job.
//
// Event callbacks are registered on the client options at construction,
// before the initial connect, so the very first connect event reliably
// reaches the controller; the controller's online-status publish hangs off
// that event.
//
// # Usage
//
//	client := mqtt.NewClient(cfg.MQTT, clientID,
//	    mqtt.Will{Topic: topics.Status(), Payload: offline, QoS: 1, Retain: true},
//	    mqtt.Events{OnConnect: ctrl.OnConnect, OnConnectionLost: ctrl.OnConnectionLost},
//	)
//	if err := client.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect()
package mqtt
