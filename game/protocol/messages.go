package protocol

// Message type discriminators used in the "type" field of every envelope.
const (
	// Client to server
	TypeJoinGame    = "joinGame"
	TypeStateUpdate = "stateUpdate"
	TypeGameEvent   = "gameEvent"

	// Server to client
	TypeRoomJoined     = "roomJoined"
	TypePlayerJoined   = "playerJoined"
	TypePlayerLeft     = "playerLeft"
	TypeRoomClosed     = "roomClosed"
	TypeServerShutdown = "serverShutdown"
)

// Inbound is the decoded form of any client-to-server envelope. Fields that
// do not apply to the message type are left at their zero value.
type Inbound struct {
	Type       string         `json:"type"`
	GameID     string         `json:"gameId,omitempty"`
	RoomID     string         `json:"roomId,omitempty"`
	PlayerData map[string]any `json:"playerData,omitempty"`
	State      map[string]any `json:"state,omitempty"`
	EventType  string         `json:"eventType,omitempty"`
	EventData  any            `json:"eventData,omitempty"`
}

// RoomJoined acknowledges a join to the joiner only.
type RoomJoined struct {
	Type        string `json:"type"`
	RoomID      string `json:"roomId"`
	GameID      string `json:"gameId"`
	PlayerID    string `json:"playerId"`
	PlayerCount int    `json:"playerCount"`
}

// PlayerJoined announces a new member to the rest of a room, and is also
// used to backfill the joiner with one message per pre-existing member.
type PlayerJoined struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	PlayerData map[string]any `json:"playerData"`
}

// PlayerLeft announces a departed member to the remaining room members.
type PlayerLeft struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// StateUpdate carries one peer's merged state delta to the other members.
// It is never echoed back to the originating connection.
type StateUpdate struct {
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	State     map[string]any `json:"state"`
	Timestamp int64          `json:"timestamp"`
}

// GameEvent is an arbitrary application event fanned out to every member of
// the room, including the sender (the echo doubles as delivery confirmation).
type GameEvent struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	EventType string `json:"eventType"`
	EventData any    `json:"eventData"`
	Timestamp int64  `json:"timestamp"`
}

// RoomClosed tells remaining members their room was removed by the server.
type RoomClosed struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	RoomID string `json:"roomId"`
}

// ServerShutdown is the pre-close notice sent to every open connection.
type ServerShutdown struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
