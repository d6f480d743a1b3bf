package directory

import (
	"crypto/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Sender is the outbound side of one connection. Enqueue must never block:
// it reports false when the message was dropped (queue full or connection
// closing). ForceClose tears the transport down so the normal disconnect
// cascade runs through the gateway.
type Sender interface {
	Enqueue(message []byte) bool
	ForceClose()
}

// ActivePlayer is the per-connection liveness and membership record. One
// exists for every live connection, whether or not it has joined a room.
type ActivePlayer struct {
	ID       string
	GameID   string
	RoomID   string
	JoinedAt time.Time

	sender       Sender
	lastActivity atomic.Int64 // unix nanos, bumped on every inbound message
}

func (p *ActivePlayer) touch(now time.Time) {
	p.lastActivity.Store(now.UnixNano())
}

// LastActivity reports when the connection last sent any message.
func (p *ActivePlayer) LastActivity() time.Time {
	return time.Unix(0, p.lastActivity.Load())
}

// Room is one bounded session of players under a (gameID, roomID) pair.
// players holds the merged last-write-wins snapshot per member; subscribers
// is the room's broadcast group.
type Room struct {
	ID        string
	GameID    string
	CreatedAt time.Time

	mu           sync.Mutex
	players      map[string]map[string]any
	subscribers  map[string]Sender
	lastActivity time.Time
}

func newRoom(gameID, roomID string, now time.Time) *Room {
	return &Room{
		ID:           roomID,
		GameID:       gameID,
		CreatedAt:    now,
		players:      make(map[string]map[string]any),
		subscribers:  make(map[string]Sender),
		lastActivity: now,
	}
}

// category is the set of all rooms sharing a gameID. It exists only while it
// has at least one room.
type category struct {
	id    string
	rooms map[string]*Room
}

// Member pairs a player ID with a copy of its current snapshot.
type Member struct {
	ID   string
	Data map[string]any
}

// JoinResult reports everything the relay needs to emit the join effects:
// the ack, the notification to current members, and the per-member backfill.
type JoinResult struct {
	RoomID      string
	GameID      string
	PlayerCount int
	Self        map[string]any // the joiner's merged snapshot, copied
	Existing    []Member       // pre-existing members, snapshot copies
	Peers       []Sender       // pre-existing members' connections
}

// LeaveResult reports the cascade outcome of removing a connection.
type LeaveResult struct {
	RoomID          string
	GameID          string
	Remaining       []Sender
	RoomDeleted     bool
	CategoryDeleted bool
}

// ClosedRoom is one room removed by the inactivity sweep, with the
// subscribers that still need the roomClosed notice.
type ClosedRoom struct {
	GameID      string
	RoomID      string
	Subscribers []Sender
}

const roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRoomID returns a fresh 6-character uppercase base-36 token.
// Uniqueness within a game is assumed, not verified: a collision silently
// lands the joiner in the existing room, matching the documented behavior.
func GenerateRoomID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		// Fall back to the clock; good enough for a low-volume relay.
		seed := time.Now().UnixNano()
		for i := range b {
			b[i] = roomIDAlphabet[int(seed>>(uint(i)*8))&0xff%len(roomIDAlphabet)]
		}
		return string(b)
	}
	for i := range b {
		b[i] = roomIDAlphabet[int(b[i])%len(roomIDAlphabet)]
	}
	return string(b)
}

func copySnapshot(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
