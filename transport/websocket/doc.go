// Package websocket is the relay's connection gateway.
//
// The websocket package implements:
//   - WebSocket upgrades with an opaque uuid identity per connection
//   - Read/write pumps with a ping/pong heartbeat
//   - Non-blocking outbound queues (directory.Sender)
//   - The transport end of the disconnect cascade
//
// Connection Lifecycle:
//
//  1. Client connects to /ws and is assigned a fresh identity
//  2. The relay registers an ActivePlayer for the connection
//  3. Inbound JSON envelopes are dispatched to the relay engine
//  4. Transport close or a failed heartbeat runs the disconnect cascade
//
// Framing:
//
// Outbound messages queued while a write is in flight are flushed into the
// same WebSocket frame separated by '\n'. Consumers must treat a frame as
// newline-delimited JSON. The client package does this transparently.
//
// Concurrency:
//
// Each connection owns exactly two goroutines (read and write). Enqueue
// never blocks: a connection that cannot keep up misses broadcasts instead
// of stalling the room that is broadcasting.
package websocket
