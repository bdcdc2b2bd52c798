// Package api implements the HTTP REST API and WebSocket server for the
// Blink bridge.
//
// This package provides:
//   - REST endpoints to list, arm and disarm Blink networks by index
//   - An explicit refresh of the home-screen snapshot
//   - Read access to the audit trail and bridge metrics
//   - WebSocket hub for real-time network.state and network.command events
//   - JWT bearer authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// Operator tokens are minted offline (blinkbridge -mint-token) and carry a
// role. Viewers may read; operators may also arm, disarm and refresh.
// WebSocket connections use single-use tickets to keep tokens out of URLs.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
