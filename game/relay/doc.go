// Package relay is the message-routing engine of the game relay server.
//
// The relay package implements:
//   - Join handling with ack, member notification, and member backfill
//   - State-update fan-out (never echoed to the sender)
//   - Game-event fan-out (echoed to the sender as delivery confirmation)
//   - Disconnect cascades through the session directory
//   - The periodic activity monitor (idle players and idle rooms)
//   - The pre-close serverShutdown announcement
//
// Error Handling:
//
// Malformed or out-of-context messages (a stateUpdate from a connection
// with no recorded room, a join without a gameId) are dropped silently.
// No handler returns an error to the wire and none can crash the process.
//
// Delivery Semantics:
//
// All fan-out is fire-and-forget, at most once per currently subscribed
// member. Queueing onto a connection never blocks; a member with a full
// queue misses the message rather than stalling the room.
package relay
