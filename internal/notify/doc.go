// Package notify fans run lifecycle events out to the configured
// sinks: MQTT topics for external automation, InfluxDB for metrics
// and the websocket hub for connected UIs.
//
// The notifier sits behind the orchestrator's RunObserver interface.
// All sinks are optional and all delivery is best-effort; a sink
// failure is logged and never propagates back into a run.
package notify
