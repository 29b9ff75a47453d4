// Package api implements the HTTP REST API and WebSocket server for the
// Lumen bridge mirror.
//
// This package provides:
//   - REST endpoints for the mirrored resource graph (read-only)
//   - Mirror status and notification-history endpoints
//   - WebSocket hub for real-time resource update broadcasts
//   - Middleware stack (request ID, logging, recovery, body limit)
//
// # Architecture
//
// The API server sits between consumers (dashboards, integrations) and
// the mirror node. All resource reads are served from the in-memory
// store, never from the bridge; updates flow from the mirror's
// notification bus to WebSocket clients subscribed to the matching
// channels.
//
// # Graceful Degradation
//
// The server operates while the bridge is unreachable. Reads serve the
// last mirrored state and the status endpoint reports the connection
// state; only live updates pause until the mirror reconnects.
package api
