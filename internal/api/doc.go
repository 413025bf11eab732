// Package api provides the HTTP REST API and WebSocket server for the
// Govee remote driver.
//
// It exposes the device registry, the synthesized UI pages, and command
// dispatch to the remote (or any other HTTP client), plus real-time
// updates over WebSocket: layout regenerations, command outcomes, and
// device state changes.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Authentication is a single bearer token from the configuration. An
// empty token disables auth entirely, which is only sensible on a
// trusted network.
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
