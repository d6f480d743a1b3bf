package relay

import (
	"encoding/json"
	"log"
	"time"

	"github.com/wricardo/game-relay/game/directory"
	"github.com/wricardo/game-relay/game/protocol"
	"github.com/wricardo/game-relay/game/stats"
)

// Relay routes inbound messages to the correct broadcast group and owns the
// join/disconnect cascades. It is safe for concurrent use: every connection
// goroutine calls into the same Relay.
type Relay struct {
	dir   *directory.Directory
	stats *stats.Stats
}

// New creates a Relay over the given directory and stats counters.
func New(dir *directory.Directory, st *stats.Stats) *Relay {
	return &Relay{dir: dir, stats: st}
}

// Directory exposes the underlying session directory for read-side callers
// (API listings, tests).
func (r *Relay) Directory() *directory.Directory {
	return r.dir
}

// HandleConnect registers a freshly accepted connection under its identity.
func (r *Relay) HandleConnect(id string, sender directory.Sender) {
	r.dir.Register(id, sender, time.Now())
	r.stats.ConnectionOpened()
	log.Printf("connection opened id=%s", id)
}

// HandleDisconnect runs the disconnect cascade for a closed connection:
// remove the ActivePlayer, drop room membership, notify the remaining
// members, and cascade empty-room and empty-category deletion. Safe to call
// for identities that were never registered.
func (r *Relay) HandleDisconnect(id string) {
	res, ok := r.dir.Remove(id, time.Now())
	if !ok {
		return
	}
	r.stats.ConnectionClosed()

	if res.RoomID == "" {
		log.Printf("connection closed id=%s", id)
		return
	}
	r.broadcast(res.Remaining, protocol.PlayerLeft{
		Type:      protocol.TypePlayerLeft,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
	log.Printf("connection closed id=%s game=%s room=%s roomDeleted=%t", id, res.GameID, res.RoomID, res.RoomDeleted)
}

// HandleMessage decodes one inbound envelope and dispatches it. Malformed
// or out-of-context messages are dropped without any reply to the sender;
// nothing in here is allowed to take the process down.
func (r *Relay) HandleMessage(id string, raw []byte) {
	r.stats.MessageReceived()

	var msg protocol.Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("dropping malformed message id=%s: %v", id, err)
		return
	}

	now := time.Now()
	r.dir.Touch(id, now)

	switch msg.Type {
	case protocol.TypeJoinGame:
		r.join(id, &msg, now)
	case protocol.TypeStateUpdate:
		r.stateUpdate(id, &msg, now)
	case protocol.TypeGameEvent:
		r.gameEvent(id, &msg, now)
	default:
		log.Printf("dropping message with unknown type %q id=%s", msg.Type, id)
	}
}

// join runs the three join effects in order: ack the joiner, announce the
// joiner to current members, then backfill the joiner with exactly one
// playerJoined per pre-existing member.
func (r *Relay) join(id string, msg *protocol.Inbound, now time.Time) {
	res, err := r.dir.Join(id, msg.GameID, msg.RoomID, msg.PlayerData, now)
	if err != nil {
		log.Printf("dropping join id=%s: %v", id, err)
		return
	}

	self, ok := r.dir.SenderOf(id)
	if !ok {
		// Connection raced away mid-join; peers were still notified.
		return
	}
	r.send(self, protocol.RoomJoined{
		Type:        protocol.TypeRoomJoined,
		RoomID:      res.RoomID,
		GameID:      res.GameID,
		PlayerID:    id,
		PlayerCount: res.PlayerCount,
	})

	r.broadcast(res.Peers, protocol.PlayerJoined{
		Type:       protocol.TypePlayerJoined,
		ID:         id,
		PlayerData: res.Self,
	})

	for _, m := range res.Existing {
		r.send(self, protocol.PlayerJoined{
			Type:       protocol.TypePlayerJoined,
			ID:         m.ID,
			PlayerData: m.Data,
		})
	}

	log.Printf("player joined id=%s game=%s room=%s players=%d", id, res.GameID, res.RoomID, res.PlayerCount)
}

// stateUpdate merges the payload into the sender's stored snapshot and
// relays it to every other member of the addressed room. Never echoed to
// the sender. Drops silently when the sender has no recorded room or the
// addressed room does not exist.
func (r *Relay) stateUpdate(id string, msg *protocol.Inbound, now time.Time) {
	targets, ok := r.dir.MergeState(id, msg.RoomID, msg.State, now)
	if !ok {
		return
	}
	r.broadcast(targets, protocol.StateUpdate{
		Type:      protocol.TypeStateUpdate,
		ID:        id,
		State:     msg.State,
		Timestamp: now.UnixMilli(),
	})
}

// gameEvent fans the event out to all members of the addressed room,
// including the sender. At-most-once, fire-and-forget: a member that
// disconnects mid-broadcast simply does not receive it.
func (r *Relay) gameEvent(id string, msg *protocol.Inbound, now time.Time) {
	targets, ok := r.dir.EventTargets(id, msg.RoomID, now)
	if !ok {
		return
	}
	r.broadcast(targets, protocol.GameEvent{
		Type:      protocol.TypeGameEvent,
		ID:        id,
		EventType: msg.EventType,
		EventData: msg.EventData,
		Timestamp: now.UnixMilli(),
	})
}

// ServerEventID is the origin id carried by events injected through the
// operational API rather than by a room member.
const ServerEventID = "server"

// BroadcastEvent injects a server-originated gameEvent into a room,
// fanning it out to every member. It reports how many members the event was
// queued for, and false when the room does not exist. The room's idle
// clock is not refreshed: only inbound client messages count as activity.
func (r *Relay) BroadcastEvent(gameID, roomID, eventType string, eventData any) (int, bool) {
	targets, ok := r.dir.Subscribers(gameID, roomID)
	if !ok {
		return 0, false
	}
	delivered := r.broadcast(targets, protocol.GameEvent{
		Type:      protocol.TypeGameEvent,
		ID:        ServerEventID,
		EventType: eventType,
		EventData: eventData,
		Timestamp: time.Now().UnixMilli(),
	})
	log.Printf("server event game=%s room=%s type=%s delivered=%d", gameID, roomID, eventType, delivered)
	return delivered, true
}

// AnnounceShutdown sends the serverShutdown notice to every open
// connection. Delivery is best-effort; the caller closes the transport
// after the grace period regardless.
func (r *Relay) AnnounceShutdown(message string) {
	r.broadcast(r.dir.AllSenders(), protocol.ServerShutdown{
		Type:    protocol.TypeServerShutdown,
		Message: message,
	})
}

// send marshals and queues one message for one connection.
func (r *Relay) send(s directory.Sender, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("marshal outbound message: %v", err)
		return
	}
	if s.Enqueue(data) {
		r.stats.MessagesSent(1)
	}
}

// broadcast marshals once and queues the message for every target,
// returning how many it was actually queued for. Targets with a full queue
// are skipped, never waited on.
func (r *Relay) broadcast(targets []directory.Sender, v any) int {
	if len(targets) == 0 {
		return 0
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("marshal broadcast message: %v", err)
		return 0
	}
	delivered := 0
	for _, s := range targets {
		if s.Enqueue(data) {
			delivered++
		}
	}
	r.stats.MessagesSent(delivered)
	return delivered
}
