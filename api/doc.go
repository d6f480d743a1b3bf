// Package api provides the HTTP surface of the game relay server.
//
// The api package implements:
//   - The operational status endpoint
//   - Read-only game and room directory listings
//   - Server-originated event injection into rooms
//   - WebSocket upgrade handling
//   - Static file serving for a demo page
//
// Endpoints:
//
// Operational:
//   - GET /api/status - uptime, player counts, message counters
//
// Directory:
//   - GET /api/games - active game categories with room/player counts
//   - GET /api/games/{gameId}/rooms - one game's room listing
//   - GET /api/games/{gameId}/rooms/{roomId} - one room's snapshot
//
// Events:
//   - POST /api/games/{gameId}/rooms/{roomId}/events - inject a
//     server-originated gameEvent, fanned out to every room member
//
// Transport:
//   - GET /ws - WebSocket upgrade; all gameplay traffic flows here
//
// Request/Response Format:
//
// All endpoints return JSON. Errors are returned as JSON with appropriate
// HTTP status codes:
//
//	{
//	  "error": "error message"
//	}
//
// Joining and state publishing happen exclusively over the WebSocket
// protocol (see game/protocol); the event-injection endpoint is the HTTP
// surface's only mutation and never touches stored snapshots.
package api
