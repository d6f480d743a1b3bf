package relay

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/wricardo/game-relay/game/directory"
	"github.com/wricardo/game-relay/game/stats"
)

type fakeSender struct {
	messages [][]byte
	closed   bool
}

func (f *fakeSender) Enqueue(message []byte) bool {
	f.messages = append(f.messages, message)
	return true
}

func (f *fakeSender) ForceClose() {
	f.closed = true
}

func (f *fakeSender) decoded(t *testing.T) []map[string]any {
	t.Helper()
	out := make([]map[string]any, 0, len(f.messages))
	for _, raw := range f.messages {
		var msg map[string]any
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("undecodable outbound message %q: %v", raw, err)
		}
		out = append(out, msg)
	}
	return out
}

func (f *fakeSender) typesSeen(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, msg := range f.decoded(t) {
		types = append(types, msg["type"].(string))
	}
	return types
}

func newTestRelay() *Relay {
	return New(directory.New(), stats.New())
}

func connect(r *Relay, id string) *fakeSender {
	s := &fakeSender{}
	r.HandleConnect(id, s)
	return s
}

func join(t *testing.T, r *Relay, id, gameID, roomID string) {
	t.Helper()
	msg := map[string]any{"type": "joinGame", "gameId": gameID}
	if roomID != "" {
		msg["roomId"] = roomID
	}
	raw, _ := json.Marshal(msg)
	r.HandleMessage(id, raw)
}

func roomOf(t *testing.T, s *fakeSender) string {
	t.Helper()
	for _, msg := range s.decoded(t) {
		if msg["type"] == "roomJoined" {
			return msg["roomId"].(string)
		}
	}
	t.Fatal("no roomJoined received")
	return ""
}

func TestJoinEffects(t *testing.T) {
	r := newTestRelay()
	a := connect(r, "a")
	b := connect(r, "b")

	raw, _ := json.Marshal(map[string]any{
		"type": "joinGame", "gameId": "demo",
		"playerData": map[string]any{"name": "alice"},
	})
	r.HandleMessage("a", raw)
	room := roomOf(t, a)

	raw, _ = json.Marshal(map[string]any{
		"type": "joinGame", "gameId": "demo", "roomId": room,
		"playerData": map[string]any{"name": "bob"},
	})
	r.HandleMessage("b", raw)

	// a: its own ack, then the announcement for b
	aTypes := a.typesSeen(t)
	if len(aTypes) != 2 || aTypes[0] != "roomJoined" || aTypes[1] != "playerJoined" {
		t.Fatalf("unexpected messages at a: %v", aTypes)
	}

	// b: its ack, then exactly one backfill for a
	bMsgs := b.decoded(t)
	if len(bMsgs) != 2 {
		t.Fatalf("expected ack + one backfill at b, got %v", b.typesSeen(t))
	}
	if bMsgs[0]["type"] != "roomJoined" {
		t.Fatalf("expected roomJoined first, got %v", bMsgs[0])
	}
	if got := bMsgs[0]["playerCount"].(float64); got != 2 {
		t.Errorf("expected playerCount 2, got %v", got)
	}
	if bMsgs[1]["type"] != "playerJoined" || bMsgs[1]["id"] != "a" {
		t.Fatalf("expected backfill for a, got %v", bMsgs[1])
	}
	data := bMsgs[1]["playerData"].(map[string]any)
	if data["name"] != "alice" {
		t.Errorf("expected backfilled playerData for a, got %v", data)
	}
}

func TestJoinWithoutGameIDDropsSilently(t *testing.T) {
	r := newTestRelay()
	a := connect(r, "a")

	raw, _ := json.Marshal(map[string]any{"type": "joinGame"})
	r.HandleMessage("a", raw)

	if len(a.messages) != 0 {
		t.Fatalf("expected no reply, got %v", a.typesSeen(t))
	}
}

func TestStateUpdateNeverEchoed(t *testing.T) {
	r := newTestRelay()
	a := connect(r, "a")
	b := connect(r, "b")

	join(t, r, "a", "demo", "")
	room := roomOf(t, a)
	join(t, r, "b", "demo", room)

	before := len(a.messages)
	raw, _ := json.Marshal(map[string]any{
		"type": "stateUpdate", "roomId": room,
		"state": map[string]any{"x": 1},
	})
	r.HandleMessage("a", raw)

	if len(a.messages) != before {
		t.Fatalf("stateUpdate echoed to sender: %v", a.typesSeen(t))
	}

	bMsgs := b.decoded(t)
	last := bMsgs[len(bMsgs)-1]
	if last["type"] != "stateUpdate" || last["id"] != "a" {
		t.Fatalf("expected stateUpdate from a at b, got %v", last)
	}
	state := last["state"].(map[string]any)
	if state["x"].(float64) != 1 {
		t.Errorf("unexpected state payload: %v", state)
	}
	if _, ok := last["timestamp"].(float64); !ok {
		t.Errorf("expected numeric timestamp, got %v", last["timestamp"])
	}
}

func TestGameEventEchoedToAll(t *testing.T) {
	r := newTestRelay()
	a := connect(r, "a")
	b := connect(r, "b")

	join(t, r, "a", "demo", "")
	room := roomOf(t, a)
	join(t, r, "b", "demo", room)

	raw, _ := json.Marshal(map[string]any{
		"type": "gameEvent", "roomId": room,
		"eventType": "fire", "eventData": map[string]any{"power": 3},
	})
	r.HandleMessage("a", raw)

	for name, s := range map[string]*fakeSender{"a": a, "b": b} {
		msgs := s.decoded(t)
		last := msgs[len(msgs)-1]
		if last["type"] != "gameEvent" || last["eventType"] != "fire" || last["id"] != "a" {
			t.Errorf("expected gameEvent at %s, got %v", name, last)
		}
	}
}

func TestOutOfContextMessagesDropSilently(t *testing.T) {
	r := newTestRelay()
	a := connect(r, "a")

	for _, raw := range []string{
		`{"type":"stateUpdate","roomId":"ABC123","state":{"x":1}}`,
		`{"type":"gameEvent","roomId":"ABC123","eventType":"fire"}`,
		`{"type":"noSuchType"}`,
		`not json at all`,
	} {
		r.HandleMessage("a", []byte(raw))
	}

	if len(a.messages) != 0 {
		t.Fatalf("expected silent drops, got %v", a.typesSeen(t))
	}
}

func TestDisconnectNotifiesRemaining(t *testing.T) {
	r := newTestRelay()
	a := connect(r, "a")
	_ = connect(r, "b")

	join(t, r, "a", "demo", "")
	room := roomOf(t, a)
	join(t, r, "b", "demo", room)

	r.HandleDisconnect("b")

	aMsgs := a.decoded(t)
	last := aMsgs[len(aMsgs)-1]
	if last["type"] != "playerLeft" || last["id"] != "b" {
		t.Fatalf("expected playerLeft for b, got %v", last)
	}

	// room survives with a still in it
	if _, ok := r.Directory().RoomInfo("demo", room); !ok {
		t.Fatal("room should survive while a member remains")
	}

	r.HandleDisconnect("a")
	if _, ok := r.Directory().RoomInfo("demo", room); ok {
		t.Fatal("room should be deleted after the last member leaves")
	}

	// never registered, never joined: both are no-ops
	r.HandleDisconnect("a")
	r.HandleDisconnect("ghost")
}

func TestSweepForceClosesIdlePlayers(t *testing.T) {
	r := newTestRelay()
	a := connect(r, "a")

	join(t, r, "a", "demo", "")

	r.Sweep(time.Now().Add(6*time.Minute), 5*time.Minute)

	if !a.closed {
		t.Fatal("idle connection should be force-closed")
	}
}

func TestSweepClosesIdleRooms(t *testing.T) {
	r := newTestRelay()
	a := connect(r, "a")

	join(t, r, "a", "demo", "")
	room := roomOf(t, a)

	// keep the player fresh but let the room go idle: the player sweep
	// skips it, the room sweep still evicts the room
	r.Directory().Touch("a", time.Now().Add(10*time.Minute))
	r.Sweep(time.Now().Add(6*time.Minute), 5*time.Minute)

	if a.closed {
		t.Fatal("fresh connection should not be closed")
	}

	msgs := a.decoded(t)
	last := msgs[len(msgs)-1]
	if last["type"] != "roomClosed" || last["reason"] != "inactivity" || last["roomId"] != room {
		t.Fatalf("expected roomClosed notice, got %v", last)
	}

	if _, ok := r.Directory().RoomInfo("demo", room); ok {
		t.Fatal("idle room should be deleted")
	}
}

func TestAnnounceShutdown(t *testing.T) {
	r := newTestRelay()
	senders := make([]*fakeSender, 3)
	for i := range senders {
		senders[i] = connect(r, fmt.Sprintf("p%d", i))
	}
	// only one of them ever joined a room
	join(t, r, "p0", "demo", "")

	r.AnnounceShutdown("going down")

	for i, s := range senders {
		msgs := s.decoded(t)
		last := msgs[len(msgs)-1]
		if last["type"] != "serverShutdown" || last["message"] != "going down" {
			t.Errorf("sender %d missing shutdown notice, got %v", i, last)
		}
	}
}

func TestStatusCounters(t *testing.T) {
	r := newTestRelay()
	connect(r, "a")
	connect(r, "b")

	join(t, r, "a", "demo", "")

	report := r.Status()
	if report.Status != "ok" {
		t.Errorf("expected status ok, got %s", report.Status)
	}
	if report.Players.Active != 2 || report.Players.Total != 2 {
		t.Errorf("unexpected player counts: %+v", report.Players)
	}
	if report.Games != 1 || report.Rooms != 1 {
		t.Errorf("unexpected game/room counts: %d/%d", report.Games, report.Rooms)
	}
	if report.Messages.Received != 1 {
		t.Errorf("expected 1 received message, got %d", report.Messages.Received)
	}
	// the join ack is the only outbound so far
	if report.Messages.Sent != 1 {
		t.Errorf("expected 1 sent message, got %d", report.Messages.Sent)
	}

	r.HandleDisconnect("a")
	report = r.Status()
	if report.Players.Active != 1 || report.Players.Total != 2 {
		t.Errorf("unexpected counts after disconnect: %+v", report.Players)
	}
}
