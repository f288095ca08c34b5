// Package api provides the HTTP REST API for Argus Core.
//
// It exposes the authentication endpoints (login, logout, password
// reset), the user and role management surface, the activity feed, and a
// WebSocket stream of activity events for the dashboard.
//
// Every inbound request passes the authorization gate before any handler
// runs: routes are classified as public, authenticated, or role-required
// by a pure classification function, and a single decision procedure
// turns the classification plus the resolved session identity into an
// allow or deny. Handlers never re-check session validity.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
