package relay

import (
	"context"
	"log"
	"time"

	"github.com/wricardo/game-relay/game/protocol"
)

// Sweep runs one pass of the activity monitor. Two independent passes:
// idle connections are force-closed so their cleanup runs through the
// normal disconnect cascade, and idle rooms are announced as closed and
// deleted (cascading to category deletion).
func (r *Relay) Sweep(now time.Time, timeout time.Duration) {
	idle := r.dir.IdlePlayers(now, timeout)
	for _, s := range idle {
		s.ForceClose()
	}
	if len(idle) > 0 {
		log.Printf("sweep: force-closed %d idle connections", len(idle))
	}

	for _, closed := range r.dir.SweepRooms(now, timeout) {
		r.broadcast(closed.Subscribers, protocol.RoomClosed{
			Type:   protocol.TypeRoomClosed,
			Reason: "inactivity",
			RoomID: closed.RoomID,
		})
		log.Printf("sweep: closed idle room game=%s room=%s", closed.GameID, closed.RoomID)
	}
}

// RunSweeper runs Sweep on a fixed period until the context is cancelled.
func (r *Relay) RunSweeper(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now, timeout)
		}
	}
}
