// Package protocol defines the JSON wire messages exchanged between relay
// clients and the server.
//
// Every message is a single JSON object with a "type" discriminator field.
// Client-to-server envelopes decode into Inbound; server-to-client messages
// are the typed structs in this package.
//
// Message Flow:
//
//	client → server: joinGame, stateUpdate, gameEvent
//	server → client: roomJoined, playerJoined, playerLeft, stateUpdate,
//	                 gameEvent, roomClosed, serverShutdown
//
// Timestamps are Unix milliseconds. Player state and event payloads are
// schemaless maps owned entirely by the host game; the relay never inspects
// them beyond shallow merging.
package protocol
