package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/game-relay/game/directory"
	"github.com/wricardo/game-relay/game/relay"
	"github.com/wricardo/game-relay/game/stats"
	ws "github.com/wricardo/game-relay/transport/websocket"
)

type queueSender struct{}

func (queueSender) Enqueue([]byte) bool { return true }
func (queueSender) ForceClose()         {}

type recordingSender struct {
	messages [][]byte
}

func (r *recordingSender) Enqueue(message []byte) bool {
	r.messages = append(r.messages, message)
	return true
}

func (r *recordingSender) ForceClose() {}

func newTestServer(t *testing.T) (*Server, *relay.Relay) {
	t.Helper()
	r := relay.New(directory.New(), stats.New())
	return NewServer(r, ws.NewGateway(r)), r
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestHandleStatus(t *testing.T) {
	s, r := newTestServer(t)

	r.HandleConnect("p1", queueSender{})
	r.HandleMessage("p1", []byte(`{"type":"joinGame","gameId":"demo"}`))

	w := doGet(t, s, "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %s", ct)
	}

	var report relay.StatusReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}

	if report.Status != "ok" {
		t.Errorf("expected status ok, got %s", report.Status)
	}
	if report.Players.Active != 1 || report.Players.Total != 1 || report.Players.Peak != 1 {
		t.Errorf("unexpected player counts: %+v", report.Players)
	}
	if report.Games != 1 || report.Rooms != 1 {
		t.Errorf("unexpected game/room counts: %d/%d", report.Games, report.Rooms)
	}
	if report.Messages.Received != 1 {
		t.Errorf("expected 1 received, got %d", report.Messages.Received)
	}
}

func TestHandleStatus_UptimeShape(t *testing.T) {
	s, _ := newTestServer(t)

	w := doGet(t, s, "/api/status")

	// the wire field is "uptime" in whole seconds
	var raw map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	uptime, ok := raw["uptime"].(float64)
	if !ok {
		t.Fatalf("expected numeric uptime, got %v", raw["uptime"])
	}
	if uptime < 0 || uptime > 60 {
		t.Errorf("implausible uptime for a fresh server: %v", uptime)
	}
	for _, key := range []string{"players", "games", "rooms", "messages"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("status payload missing %q", key)
		}
	}
}

func TestHandleListGames(t *testing.T) {
	s, r := newTestServer(t)

	w := doGet(t, s, "/api/games")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Count int                     `json:"count"`
		Games []directory.GameSummary `json:"games"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("expected empty listing, got %d", resp.Count)
	}

	r.HandleConnect("p1", queueSender{})
	r.HandleMessage("p1", []byte(`{"type":"joinGame","gameId":"demo","roomId":"ABC123"}`))

	w = doGet(t, s, "/api/games")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	if resp.Count != 1 || resp.Games[0].GameID != "demo" || resp.Games[0].Players != 1 {
		t.Errorf("unexpected listing: %+v", resp)
	}
}

func TestHandleListRooms(t *testing.T) {
	s, r := newTestServer(t)

	w := doGet(t, s, "/api/games/demo/rooms")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game, got %d", w.Code)
	}

	r.HandleConnect("p1", queueSender{})
	r.HandleMessage("p1", []byte(`{"type":"joinGame","gameId":"demo","roomId":"ABC123"}`))
	r.HandleConnect("p2", queueSender{})
	r.HandleMessage("p2", []byte(`{"type":"joinGame","gameId":"demo","roomId":"DEF456"}`))

	w = doGet(t, s, "/api/games/demo/rooms")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Count int                     `json:"count"`
		Rooms []directory.RoomSummary `json:"rooms"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	if resp.Count != 2 || len(resp.Rooms) != 2 {
		t.Fatalf("unexpected listing: %+v", resp)
	}
	seen := map[string]int{}
	for _, room := range resp.Rooms {
		seen[room.RoomID] = room.PlayerCount
	}
	if seen["ABC123"] != 1 || seen["DEF456"] != 1 {
		t.Errorf("unexpected rooms: %v", seen)
	}
}

func TestHandleBroadcastEvent(t *testing.T) {
	s, r := newTestServer(t)

	sender := &recordingSender{}
	r.HandleConnect("p1", sender)
	r.HandleMessage("p1", []byte(`{"type":"joinGame","gameId":"demo","roomId":"ABC123"}`))
	joined := len(sender.messages)

	body := strings.NewReader(`{"eventType":"announcement","eventData":{"text":"maintenance in 5"}}`)
	req := httptest.NewRequest("POST", "/api/games/demo/rooms/ABC123/events", body)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Delivered int `json:"delivered"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Delivered != 1 {
		t.Errorf("expected 1 delivery, got %d", resp.Delivered)
	}

	if len(sender.messages) != joined+1 {
		t.Fatalf("expected one injected message, got %d", len(sender.messages)-joined)
	}
	var event struct {
		Type      string         `json:"type"`
		ID        string         `json:"id"`
		EventType string         `json:"eventType"`
		EventData map[string]any `json:"eventData"`
	}
	if err := json.Unmarshal(sender.messages[joined], &event); err != nil {
		t.Fatalf("failed to decode injected event: %v", err)
	}
	if event.Type != "gameEvent" || event.ID != "server" {
		t.Errorf("unexpected event envelope: %+v", event)
	}
	if event.EventType != "announcement" || event.EventData["text"] != "maintenance in 5" {
		t.Errorf("unexpected event payload: %+v", event)
	}
}

func TestHandleBroadcastEvent_Rejections(t *testing.T) {
	s, r := newTestServer(t)

	r.HandleConnect("p1", queueSender{})
	r.HandleMessage("p1", []byte(`{"type":"joinGame","gameId":"demo","roomId":"ABC123"}`))

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", path, strings.NewReader(body))
		w := httptest.NewRecorder()
		s.ServeHTTP(w, req)
		return w
	}

	if w := post("/api/games/demo/rooms/ABC123/events", `{not json`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", w.Code)
	}
	if w := post("/api/games/demo/rooms/ABC123/events", `{"eventData":{}}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing eventType, got %d", w.Code)
	}
	if w := post("/api/games/demo/rooms/ZZZZZZ/events", `{"eventType":"announcement"}`); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown room, got %d", w.Code)
	}
}

func TestHandleGetRoom(t *testing.T) {
	s, r := newTestServer(t)

	r.HandleConnect("p1", queueSender{})
	r.HandleMessage("p1", []byte(`{"type":"joinGame","gameId":"demo","roomId":"ABC123","playerData":{"name":"alice"}}`))

	w := doGet(t, s, "/api/games/demo/rooms/ABC123")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var view directory.RoomView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode room view: %v", err)
	}
	if view.RoomID != "ABC123" || view.GameID != "demo" || view.PlayerCount != 1 {
		t.Errorf("unexpected room view: %+v", view)
	}
	if view.Players["p1"]["name"] != "alice" {
		t.Errorf("expected snapshot for p1, got %v", view.Players)
	}
	if view.CreatedAt.IsZero() || time.Since(view.CreatedAt) > time.Minute {
		t.Errorf("implausible createdAt: %v", view.CreatedAt)
	}
}

func TestHandleGetRoom_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	w := doGet(t, s, "/api/games/demo/rooms/ZZZZZZ")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp["error"] == "" {
		t.Error("expected an error message in the body")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/status", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST /api/status, got %d", w.Code)
	}
}
