// Package mcp provides a Model Context Protocol surface for the game relay.
//
// The mcp package implements:
//   - MCP server for AI agent and tooling integration
//   - Tool definitions over the relay's REST API
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//
// The package exposes the following tools:
//   - server_status: Operational status (uptime, players, messages)
//   - list_games: Active game categories with room and player counts
//   - list_rooms: One game's rooms with member counts and activity
//   - room_info: One room's member snapshots and activity timestamps
//   - broadcast_event: Inject a server-originated gameEvent into a room
//   - relay_instructions: The wire protocol a client must speak
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: Direct stdio communication for local MCP clients
//   - HTTP: POST /mcp endpoint on the relay's HTTP server
//
// The client is a thin proxy: every tool call is served by the relay's REST
// API. The listing and status tools are read-only; broadcast_event is the
// one mutation, delivering a gameEvent to a room's members without touching
// its stored snapshots.
package mcp
