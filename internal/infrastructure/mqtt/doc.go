// Package mqtt provides MQTT client connectivity for DroidPilot.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// DroidPilot publishes run lifecycle events (started, completed, failed)
// and device connectivity status so external dashboards and chat bridges
// can observe the fleet without polling the HTTP API. An optional command
// subscription lets a remote operator pause, resume, and stop workers.
//
//	DroidPilot Engine ↔ MQTT Broker ↔ Dashboards / Chat bridges
//
// All traffic is best-effort: a broker outage never blocks or fails an
// automation run.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.RunCompleted("emulator-5554")
//	client.Publish(topic, payload, 1, false)
package mqtt
