package directory

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrGameIDRequired    = errors.New("gameId is required")
	ErrUnknownConnection = errors.New("unknown connection")
)

// Directory is the single source of truth for membership: which connections
// exist, which room each one belongs to, and each room's merged player
// snapshots.
//
// Locking: the directory mutex guards the category/room/player maps and all
// create/delete cascades; each Room carries its own mutex for snapshot
// merges and subscriber iteration. Lock order is always directory before
// room. Broadcast targets are collected under the locks but actual delivery
// is a non-blocking queue handoff, so no network I/O ever happens while a
// lock is held.
type Directory struct {
	mu      sync.RWMutex
	games   map[string]*category
	players map[string]*ActivePlayer
}

// New creates an empty Directory.
func New() *Directory {
	return &Directory{
		games:   make(map[string]*category),
		players: make(map[string]*ActivePlayer),
	}
}

// Register inserts the ActivePlayer record for a freshly accepted
// connection. The identity must be unique for the connection's lifetime.
func (d *Directory) Register(id string, sender Sender, now time.Time) *ActivePlayer {
	p := &ActivePlayer{
		ID:       id,
		JoinedAt: now,
		sender:   sender,
	}
	p.touch(now)

	d.mu.Lock()
	d.players[id] = p
	d.mu.Unlock()
	return p
}

// Touch refreshes the connection's activity clock. Called for every inbound
// message, including ones that end up dropped.
func (d *Directory) Touch(id string, now time.Time) {
	d.mu.RLock()
	p := d.players[id]
	d.mu.RUnlock()
	if p != nil {
		p.touch(now)
	}
}

// Join places the connection into (gameID, roomID), lazily creating the
// category and room. When roomID is empty a fresh token is generated.
// playerData is shallow-merged into the room snapshot for this identity.
//
// Nothing prevents a connection from joining twice; the new membership
// simply overwrites the record, and the directory does not clean up the old
// room.
func (d *Directory) Join(id, gameID, roomID string, playerData map[string]any, now time.Time) (*JoinResult, error) {
	if gameID == "" {
		return nil, ErrGameIDRequired
	}
	if roomID == "" {
		roomID = GenerateRoomID()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.players[id]
	if !ok {
		return nil, ErrUnknownConnection
	}

	cat := d.games[gameID]
	if cat == nil {
		cat = &category{id: gameID, rooms: make(map[string]*Room)}
		d.games[gameID] = cat
	}
	room := cat.rooms[roomID]
	if room == nil {
		room = newRoom(gameID, roomID, now)
		cat.rooms[roomID] = room
	}

	room.mu.Lock()
	existing := make([]Member, 0, len(room.players))
	peers := make([]Sender, 0, len(room.subscribers))
	for pid, snap := range room.players {
		if pid == id {
			continue
		}
		existing = append(existing, Member{ID: pid, Data: copySnapshot(snap)})
	}
	for pid, s := range room.subscribers {
		if pid == id {
			continue
		}
		peers = append(peers, s)
	}

	snap := room.players[id]
	if snap == nil {
		snap = make(map[string]any, len(playerData))
		room.players[id] = snap
	}
	for k, v := range playerData {
		snap[k] = v
	}
	room.subscribers[id] = p.sender
	room.lastActivity = now
	playerCount := len(room.players)
	self := copySnapshot(snap)
	room.mu.Unlock()

	p.GameID = gameID
	p.RoomID = roomID
	p.touch(now)

	return &JoinResult{
		RoomID:      roomID,
		GameID:      gameID,
		PlayerCount: playerCount,
		Self:        self,
		Existing:    existing,
		Peers:       peers,
	}, nil
}

// SenderOf returns the connection behind an identity, if registered.
func (d *Directory) SenderOf(id string) (Sender, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.players[id]
	if !ok {
		return nil, false
	}
	return p.sender, true
}

// Remove deletes the connection's ActivePlayer and, when it held a room
// membership, runs the leave cascade: drop the snapshot and subscription,
// delete the room if now empty, delete the category if now roomless. The
// second return is false when the identity was not registered.
func (d *Directory) Remove(id string, now time.Time) (*LeaveResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.players[id]
	if !ok {
		return nil, false
	}
	delete(d.players, id)

	if p.RoomID == "" {
		return &LeaveResult{}, true
	}

	res := &LeaveResult{RoomID: p.RoomID, GameID: p.GameID}
	cat := d.games[p.GameID]
	if cat == nil {
		return res, true
	}
	room := cat.rooms[p.RoomID]
	if room == nil {
		return res, true
	}

	room.mu.Lock()
	delete(room.players, id)
	delete(room.subscribers, id)
	res.Remaining = make([]Sender, 0, len(room.subscribers))
	for _, s := range room.subscribers {
		res.Remaining = append(res.Remaining, s)
	}
	// A departure is not inbound activity; the room's idle clock is not
	// refreshed, so a room kept alive only by members leaving still sweeps.
	empty := len(room.players) == 0
	room.mu.Unlock()

	if empty {
		delete(cat.rooms, p.RoomID)
		res.RoomDeleted = true
		if len(cat.rooms) == 0 {
			delete(d.games, p.GameID)
			res.CategoryDeleted = true
		}
	}
	return res, true
}

// MergeState shallow-merges state into the sender's snapshot in the
// addressed room and returns the other members' connections for broadcast.
//
// The precondition is that the sender's ActivePlayer records *some* room;
// the supplied roomID is trusted as the broadcast target within the
// sender's recorded game and is not cross-checked against that membership.
// Returns ok=false, with no
// state change, when the sender has no recorded room or the addressed room
// does not exist.
func (d *Directory) MergeState(id, roomID string, state map[string]any, now time.Time) ([]Sender, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, room := d.resolveLocked(id, roomID)
	if room == nil {
		return nil, false
	}

	room.mu.Lock()
	snap := room.players[id]
	if snap == nil {
		snap = make(map[string]any, len(state))
		room.players[id] = snap
	}
	for k, v := range state {
		snap[k] = v
	}
	room.lastActivity = now
	targets := make([]Sender, 0, len(room.subscribers))
	for pid, s := range room.subscribers {
		if pid == id {
			continue
		}
		targets = append(targets, s)
	}
	room.mu.Unlock()

	p.touch(now)
	return targets, true
}

// EventTargets returns every subscriber of the addressed room, including
// the sender, for a gameEvent fan-out. Same precondition and roomID
// trust as MergeState; no snapshot is modified.
func (d *Directory) EventTargets(id, roomID string, now time.Time) ([]Sender, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, room := d.resolveLocked(id, roomID)
	if room == nil {
		return nil, false
	}

	room.mu.Lock()
	room.lastActivity = now
	targets := make([]Sender, 0, len(room.subscribers))
	for _, s := range room.subscribers {
		targets = append(targets, s)
	}
	room.mu.Unlock()

	p.touch(now)
	return targets, true
}

// resolveLocked looks up the sender's ActivePlayer and the addressed room.
// Caller must hold at least the read lock.
func (d *Directory) resolveLocked(id, roomID string) (*ActivePlayer, *Room) {
	p := d.players[id]
	if p == nil || p.RoomID == "" {
		return nil, nil
	}
	cat := d.games[p.GameID]
	if cat == nil {
		return nil, nil
	}
	return p, cat.rooms[roomID]
}

// IdlePlayers returns the connections of every ActivePlayer whose last
// inbound activity is older than timeout. The caller force-closes them so
// cleanup runs through the normal disconnect cascade.
func (d *Directory) IdlePlayers(now time.Time, timeout time.Duration) []Sender {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var idle []Sender
	for _, p := range d.players {
		if now.Sub(p.LastActivity()) > timeout {
			idle = append(idle, p.sender)
		}
	}
	return idle
}

// SweepRooms removes every room idle longer than timeout and cascades
// category deletion. Members still subscribed are returned so the caller
// can send them the roomClosed notice. Their ActivePlayer records keep the
// stale room reference; later messages addressed to the dead room drop
// silently and the player sweep eventually evicts them.
func (d *Directory) SweepRooms(now time.Time, timeout time.Duration) []ClosedRoom {
	d.mu.Lock()
	defer d.mu.Unlock()

	var closed []ClosedRoom
	for gameID, cat := range d.games {
		for roomID, room := range cat.rooms {
			room.mu.Lock()
			idle := now.Sub(room.lastActivity) > timeout
			var subs []Sender
			if idle {
				subs = make([]Sender, 0, len(room.subscribers))
				for _, s := range room.subscribers {
					subs = append(subs, s)
				}
			}
			room.mu.Unlock()

			if idle {
				delete(cat.rooms, roomID)
				closed = append(closed, ClosedRoom{GameID: gameID, RoomID: roomID, Subscribers: subs})
			}
		}
		if len(cat.rooms) == 0 {
			delete(d.games, gameID)
		}
	}
	return closed
}

// AllSenders returns every live connection, joined or not. Used for the
// shutdown announcement.
func (d *Directory) AllSenders() []Sender {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Sender, 0, len(d.players))
	for _, p := range d.players {
		out = append(out, p.sender)
	}
	return out
}

// Counts reports the number of game categories and rooms currently tracked.
func (d *Directory) Counts() (games, rooms int) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	games = len(d.games)
	for _, cat := range d.games {
		rooms += len(cat.rooms)
	}
	return games, rooms
}

// GameSummary describes one game category for the listing endpoints.
type GameSummary struct {
	GameID  string `json:"gameId"`
	Rooms   int    `json:"rooms"`
	Players int    `json:"players"`
}

// GameSummaries lists every category with room and player counts.
func (d *Directory) GameSummaries() []GameSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]GameSummary, 0, len(d.games))
	for gameID, cat := range d.games {
		sum := GameSummary{GameID: gameID, Rooms: len(cat.rooms)}
		for _, room := range cat.rooms {
			room.mu.Lock()
			sum.Players += len(room.players)
			room.mu.Unlock()
		}
		out = append(out, sum)
	}
	return out
}

// RoomSummary describes one room in a per-game listing.
type RoomSummary struct {
	RoomID       string    `json:"roomId"`
	PlayerCount  int       `json:"playerCount"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Rooms lists every room of one game category, or false if the category
// does not exist.
func (d *Directory) Rooms(gameID string) ([]RoomSummary, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	cat := d.games[gameID]
	if cat == nil {
		return nil, false
	}

	out := make([]RoomSummary, 0, len(cat.rooms))
	for _, room := range cat.rooms {
		room.mu.Lock()
		out = append(out, RoomSummary{
			RoomID:       room.ID,
			PlayerCount:  len(room.players),
			CreatedAt:    room.CreatedAt,
			LastActivity: room.lastActivity,
		})
		room.mu.Unlock()
	}
	return out, true
}

// Subscribers returns one room's broadcast group, or false if the room does
// not exist. The room's activity clock is left alone: only inbound client
// messages refresh it.
func (d *Directory) Subscribers(gameID, roomID string) ([]Sender, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	cat := d.games[gameID]
	if cat == nil {
		return nil, false
	}
	room := cat.rooms[roomID]
	if room == nil {
		return nil, false
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	out := make([]Sender, 0, len(room.subscribers))
	for _, s := range room.subscribers {
		out = append(out, s)
	}
	return out, true
}

// RoomView is the read-only room description served by the API.
type RoomView struct {
	RoomID       string                    `json:"roomId"`
	GameID       string                    `json:"gameId"`
	PlayerCount  int                       `json:"playerCount"`
	Players      map[string]map[string]any `json:"players"`
	CreatedAt    time.Time                 `json:"createdAt"`
	LastActivity time.Time                 `json:"lastActivity"`
}

// RoomInfo returns a snapshot copy of one room, or false if it does not
// exist.
func (d *Directory) RoomInfo(gameID, roomID string) (*RoomView, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	cat := d.games[gameID]
	if cat == nil {
		return nil, false
	}
	room := cat.rooms[roomID]
	if room == nil {
		return nil, false
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	view := &RoomView{
		RoomID:       room.ID,
		GameID:       room.GameID,
		PlayerCount:  len(room.players),
		Players:      make(map[string]map[string]any, len(room.players)),
		CreatedAt:    room.CreatedAt,
		LastActivity: room.lastActivity,
	}
	for pid, snap := range room.players {
		view.Players[pid] = copySnapshot(snap)
	}
	return view, true
}
