// Package api provides the HTTP REST API and WebSocket event stream
// for the fleet engine.
//
// It exposes per-device and fleet-wide run control, configuration
// management, run history queries and a WebSocket feed of run events
// to operator UIs.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
