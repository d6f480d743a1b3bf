package websocket

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wricardo/game-relay/game/relay"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. State payloads are
	// schemaless, so this is generous compared to a fixed protocol.
	maxMessageSize = 64 * 1024

	// Per-connection outbound queue. A connection that falls this far
	// behind starts missing broadcasts instead of blocking the room.
	sendQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The relay carries no credentials; any origin may connect.
		return true
	},
}

// Gateway accepts WebSocket connections, assigns each an opaque identity,
// and pumps messages between the transport and the relay engine.
type Gateway struct {
	relay *relay.Relay
}

// NewGateway creates a Gateway over the given relay.
func NewGateway(r *relay.Relay) *Gateway {
	return &Gateway{relay: r}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and registers
// it with the relay under a fresh identity.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		gateway: g,
		conn:    conn,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		id:      uuid.NewString(),
	}

	g.relay.HandleConnect(client.id, client)

	go client.writePump()
	go client.readPump()
}

// Client is one live WebSocket connection. It implements directory.Sender:
// Enqueue is a non-blocking queue handoff and ForceClose tears the
// transport down, which drives the normal disconnect cascade through
// readPump's cleanup.
type Client struct {
	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	id      string

	closeOnce sync.Once
}

// ID returns the connection's opaque identity.
func (c *Client) ID() string {
	return c.id
}

// Enqueue queues one outbound message. It never blocks: false means the
// message was dropped because the queue is full or the connection is
// closing.
func (c *Client) Enqueue(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// ForceClose tears the connection down. The read pump observes the closed
// transport and runs the disconnect cascade exactly once.
func (c *Client) ForceClose() {
	c.close()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump pumps messages from the WebSocket connection into the relay.
// Transport errors are logged locally and never broadcast; the deferred
// cleanup is the single entry point of the disconnect cascade.
func (c *Client) readPump() {
	defer func() {
		c.close()
		c.gateway.relay.HandleDisconnect(c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error id=%s: %v", c.id, err)
			}
			break
		}
		if messageType == websocket.TextMessage {
			c.gateway.relay.HandleMessage(c.id, message)
		}
	}
}

// writePump pumps queued messages to the WebSocket connection and keeps the
// ping/pong heartbeat alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
