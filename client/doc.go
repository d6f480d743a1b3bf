// Package client connects a local game to a relay room.
//
// The client package implements:
//   - WebSocket connection and room join handshake
//   - Periodic local-state sampling with change suppression
//   - Peer state delivery through a host-supplied render callback
//   - Named event subscription for all server message types
//   - Game event broadcasting
//
// Adapters:
//
// The host game supplies two callbacks. StateAdapter returns the local
// state to publish; it is polled on a fixed interval and a stateUpdate is
// sent only when the returned state differs structurally from the last
// state actually sent. The comparison covers the whole state, so a single
// changing field (a timestamp, a frame counter) triggers a full send.
// RenderAdapter receives every peer stateUpdate as (peerId, state); the
// host owns merging peers into its own view.
//
// Events:
//
// On(event, handler) subscribes to named events. The client emits:
//   - connected, disconnected: local connection lifecycle
//   - roomJoined: the server's join ack, carrying roomId and playerId
//   - playerJoined, playerLeft: room membership changes
//   - stateUpdate: a peer's published state
//   - gameEvent: any broadcast event; also emitted under the event's own
//     eventType name
//   - roomClosed, serverShutdown: server-side session teardown
//   - error: local transport or decode failures, never broadcast
//
// Usage:
//
//	c := client.New(client.Config{
//		ServerURL:  "ws://localhost:8989/ws",
//		GameID:     "asteroids",
//		PlayerData: map[string]any{"name": "alice"},
//		StateAdapter: func() map[string]any {
//			return map[string]any{"x": ship.X, "y": ship.Y}
//		},
//		RenderAdapter: func(peerID string, state map[string]any) {
//			peers[peerID] = state
//		},
//	})
//	c.On("roomJoined", func(msg map[string]any) {
//		fmt.Println("share:", c.ShareableURL())
//	})
//	if err := c.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer c.Disconnect()
package client
