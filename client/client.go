package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/game-relay/game/protocol"
)

const defaultSampleInterval = 100 * time.Millisecond

// Handler is an event callback. The payload is the decoded server message.
type Handler func(payload map[string]any)

// Config describes how a client connects and what it publishes.
type Config struct {
	// ServerURL is the relay's WebSocket endpoint, e.g. ws://localhost:8989/ws
	ServerURL string

	// GameID is the game category to join
	GameID string

	// RoomID is optional; when empty the server generates one
	RoomID string

	// PlayerData is sent with the join and shown to other players
	PlayerData map[string]any

	// StateAdapter returns the local state to publish. It must return a
	// fresh map each call; the client keeps the last returned value for
	// change detection.
	StateAdapter func() map[string]any

	// RenderAdapter receives every peer state update
	RenderAdapter func(peerID string, state map[string]any)

	// SampleInterval is how often StateAdapter is polled (default 100ms)
	SampleInterval time.Duration
}

// RoomInfo is the client's view of its current room membership.
type RoomInfo struct {
	GameID      string `json:"gameId"`
	RoomID      string `json:"roomId"`
	PlayerID    string `json:"playerId"`
	PlayerCount int    `json:"playerCount"`
}

// Client connects a local game to a relay room.
type Client struct {
	config Config

	mu       sync.Mutex
	conn     *websocket.Conn
	writeMu  sync.Mutex
	handlers map[string][]Handler
	info     RoomInfo
	lastSent map[string]any
	done     chan struct{}
	closed   bool
}

// New creates a client from the given configuration.
func New(config Config) *Client {
	if config.SampleInterval <= 0 {
		config.SampleInterval = defaultSampleInterval
	}
	return &Client{
		config:   config,
		handlers: make(map[string][]Handler),
	}
}

// On registers a handler for a named event. Multiple handlers per event
// are allowed and run in registration order.
//
// Events emitted by the client: connected, disconnected, roomJoined,
// playerJoined, playerLeft, stateUpdate, gameEvent, roomClosed,
// serverShutdown, error. Game events are additionally emitted under
// their own eventType name.
func (c *Client) On(event string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

// Connect dials the relay, joins the configured room, and starts the
// read and state-sampling loops. It returns once the dial and join send
// have completed; the roomJoined event signals the server's ack.
func (c *Client) Connect(ctx context.Context) error {
	if c.config.ServerURL == "" {
		return fmt.Errorf("server URL is required")
	}
	if c.config.GameID == "" {
		return fmt.Errorf("game ID is required")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.config.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.config.ServerURL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.done = make(chan struct{})
	c.closed = false
	c.info = RoomInfo{GameID: c.config.GameID, RoomID: c.config.RoomID}
	c.lastSent = nil
	c.mu.Unlock()

	c.emit("connected", map[string]any{"serverUrl": c.config.ServerURL})

	join := map[string]any{
		"type":   protocol.TypeJoinGame,
		"gameId": c.config.GameID,
	}
	if c.config.RoomID != "" {
		join["roomId"] = c.config.RoomID
	}
	if c.config.PlayerData != nil {
		join["playerData"] = c.config.PlayerData
	}
	if err := c.write(join); err != nil {
		conn.Close()
		return fmt.Errorf("send join: %w", err)
	}

	go c.readLoop(conn)
	if c.config.StateAdapter != nil {
		go c.sampleLoop()
	}

	return nil
}

// Disconnect closes the connection and stops the background loops.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed || c.conn == nil {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	close(c.done)
	c.mu.Unlock()

	c.writeMu.Lock()
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	conn.Close()

	c.emit("disconnected", map[string]any{})
}

// SendGameEvent broadcasts an event to everyone in the room, including
// this client.
func (c *Client) SendGameEvent(eventType string, eventData map[string]any) error {
	c.mu.Lock()
	roomID := c.info.RoomID
	c.mu.Unlock()
	if roomID == "" {
		return fmt.Errorf("not in a room")
	}

	return c.write(map[string]any{
		"type":      protocol.TypeGameEvent,
		"roomId":    roomID,
		"eventType": eventType,
		"eventData": eventData,
	})
}

// SendState publishes the given state immediately, bypassing the
// sampling loop's change detection.
func (c *Client) SendState(state map[string]any) error {
	c.mu.Lock()
	roomID := c.info.RoomID
	c.mu.Unlock()
	if roomID == "" {
		return fmt.Errorf("not in a room")
	}

	if err := c.write(map[string]any{
		"type":   protocol.TypeStateUpdate,
		"roomId": roomID,
		"state":  state,
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.lastSent = state
	c.mu.Unlock()
	return nil
}

// RoomInfo returns the current room membership as acked by the server.
func (c *Client) RoomInfo() RoomInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// ShareableURL returns an HTTP URL carrying the game and room so another
// player can join the same session.
func (c *Client) ShareableURL() string {
	c.mu.Lock()
	info := c.info
	c.mu.Unlock()

	u, err := url.Parse(c.config.ServerURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = "/"
	q := url.Values{}
	q.Set("game", info.GameID)
	if info.RoomID != "" {
		q.Set("room", info.RoomID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// sampleLoop polls StateAdapter and publishes the state whenever it
// differs from the last state actually sent. Comparison is whole-state
// structural equality: any changed field triggers a full send.
func (c *Client) sampleLoop() {
	ticker := time.NewTicker(c.config.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			roomID := c.info.RoomID
			last := c.lastSent
			c.mu.Unlock()
			if roomID == "" {
				continue
			}

			state := c.config.StateAdapter()
			if state == nil || reflect.DeepEqual(state, last) {
				continue
			}

			if err := c.write(map[string]any{
				"type":   protocol.TypeStateUpdate,
				"roomId": roomID,
				"state":  state,
			}); err != nil {
				c.emit("error", map[string]any{"error": err.Error()})
				continue
			}

			c.mu.Lock()
			c.lastSent = state
			c.mu.Unlock()
		}
	}
}

// readLoop decodes server frames and dispatches them to handlers. The
// server batches queued messages into a single frame separated by
// newlines, so each frame is split before decoding.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.Disconnect()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			wasClosed := c.closed
			c.mu.Unlock()
			if !wasClosed {
				c.emit("error", map[string]any{"error": err.Error()})
			}
			return
		}

		for _, line := range bytes.Split(data, []byte{'\n'}) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var msg map[string]any
			if err := json.Unmarshal(line, &msg); err != nil {
				c.emit("error", map[string]any{"error": err.Error()})
				continue
			}
			c.dispatch(msg)
		}
	}
}

func (c *Client) dispatch(msg map[string]any) {
	msgType, _ := msg["type"].(string)

	switch msgType {
	case protocol.TypeRoomJoined:
		c.mu.Lock()
		c.info.RoomID = stringField(msg, "roomId")
		c.info.GameID = stringField(msg, "gameId")
		c.info.PlayerID = stringField(msg, "playerId")
		c.info.PlayerCount = intField(msg, "playerCount")
		c.mu.Unlock()

	case protocol.TypeStateUpdate:
		if c.config.RenderAdapter != nil {
			peerID := stringField(msg, "id")
			state, _ := msg["state"].(map[string]any)
			c.config.RenderAdapter(peerID, state)
		}

	case protocol.TypeGameEvent:
		if name := stringField(msg, "eventType"); name != "" {
			c.emit(name, msg)
		}
	}

	if msgType != "" {
		c.emit(msgType, msg)
	}
}

func (c *Client) emit(event string, payload map[string]any) {
	c.mu.Lock()
	handlers := make([]Handler, len(c.handlers[event]))
	copy(handlers, c.handlers[event])
	c.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}

func (c *Client) write(v any) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()
	if conn == nil || closed {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func stringField(msg map[string]any, key string) string {
	s, _ := msg[key].(string)
	return strings.TrimSpace(s)
}

func intField(msg map[string]any, key string) int {
	f, _ := msg[key].(float64)
	return int(f)
}
