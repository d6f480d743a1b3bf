package relay

import "github.com/wricardo/game-relay/game/directory"

// PlayerCounts is the players section of a status report.
type PlayerCounts struct {
	Active int64 `json:"active"`
	Total  int64 `json:"total"`
	Peak   int64 `json:"peak"`
}

// MessageCounts is the messages section of a status report.
type MessageCounts struct {
	Sent     int64 `json:"sent"`
	Received int64 `json:"received"`
}

// StatusReport is the payload of the operational status endpoint.
type StatusReport struct {
	Status        string        `json:"status"`
	UptimeSeconds int64         `json:"uptime"`
	Players       PlayerCounts  `json:"players"`
	Games         int           `json:"games"`
	Rooms         int           `json:"rooms"`
	Messages      MessageCounts `json:"messages"`
}

// Status assembles the current operational snapshot.
func (r *Relay) Status() StatusReport {
	snap := r.stats.Snapshot()
	games, rooms := r.dir.Counts()
	return StatusReport{
		Status:        "ok",
		UptimeSeconds: int64(snap.Uptime.Seconds()),
		Players: PlayerCounts{
			Active: snap.ActiveConnections,
			Total:  snap.TotalConnections,
			Peak:   snap.PeakConnections,
		},
		Games:    games,
		Rooms:    rooms,
		Messages: MessageCounts{
			Sent:     snap.MessagesSent,
			Received: snap.MessagesReceived,
		},
	}
}

// ListGames lists every active game category with room and player counts.
func (r *Relay) ListGames() []directory.GameSummary {
	return r.dir.GameSummaries()
}

// ListRooms lists one game category's rooms, or false if the category does
// not exist.
func (r *Relay) ListRooms(gameID string) ([]directory.RoomSummary, bool) {
	return r.dir.Rooms(gameID)
}

// RoomInfo returns a snapshot of one room, or false if it does not exist.
func (r *Relay) RoomInfo(gameID, roomID string) (*directory.RoomView, bool) {
	return r.dir.RoomInfo(gameID, roomID)
}
