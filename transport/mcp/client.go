package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/game-relay/game/directory"
	"github.com/wricardo/game-relay/game/relay"
)

// Client is a thin MCP client that proxies to the relay's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL.
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Game Relay",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Game Relay - MCP Interface

This is a thin client that proxies all requests to the relay's REST API.

The relay hosts many independent real-time game sessions: clients join a
room under a game category, publish their local state, and receive the
merged state of their peers plus arbitrary broadcast events.

AVAILABLE TOOLS:
- server_status: Uptime, connection counts, message counters
- list_games: Active game categories with room and player counts
- list_rooms: One game's rooms with member counts and activity
- room_info: One room's member snapshots and activity timestamps
- broadcast_event: Inject a server-originated gameEvent into a room
- relay_instructions: The WebSocket wire protocol clients must speak

Gameplay traffic flows over the relay's WebSocket endpoint; the only
mutation this surface offers is broadcast_event.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_status",
		Description: "Get the relay's operational status: uptime, player counts, message counters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List all active game categories with room and player counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListGames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List one game category's rooms with member counts and activity timestamps",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game category to list rooms for",
				},
			},
			Required: []string{"game_id"},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "room_info",
		Description: "Get one room's member snapshots and activity timestamps",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game category the room belongs to",
				},
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room identifier (6-character token)",
				},
			},
			Required: []string{"game_id", "room_id"},
		},
	}, c.handleRoomInfo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "broadcast_event",
		Description: "Inject a server-originated gameEvent into a room, fanned out to every member",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game category the room belongs to",
				},
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room identifier (6-character token)",
				},
				"event_type": map[string]interface{}{
					"type":        "string",
					"description": "Event name delivered to the room members",
				},
				"event_data": map[string]interface{}{
					"type":        "object",
					"description": "Optional event payload",
				},
			},
			Required: []string{"game_id", "room_id", "event_type"},
		},
	}, c.handleBroadcastEvent)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "relay_instructions",
		Description: "Get the WebSocket wire protocol a relay client must speak",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleRelayInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

func (c *Client) handleServerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status relay.StatusReport
	if err := c.apiCall("GET", "/api/status", nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf(`Relay Status: %s
Uptime: %ds
Players: %d active / %d total / %d peak
Games: %d, Rooms: %d
Messages: %d sent / %d received`,
		status.Status, status.UptimeSeconds,
		status.Players.Active, status.Players.Total, status.Players.Peak,
		status.Games, status.Rooms,
		status.Messages.Sent, status.Messages.Received)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count int                     `json:"count"`
		Games []directory.GameSummary `json:"games"`
	}
	if err := c.apiCall("GET", "/api/games", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if resp.Count == 0 {
		return mcp.NewToolResultText("No active games."), nil
	}
	result := fmt.Sprintf("Active games (%d):\n\n", resp.Count)
	for _, g := range resp.Games {
		result += fmt.Sprintf("• %s: %d rooms, %d players\n", g.GameID, g.Rooms, g.Players)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	gameID, _ := args["game_id"].(string)

	var resp struct {
		Count int                     `json:"count"`
		Rooms []directory.RoomSummary `json:"rooms"`
	}
	if err := c.apiCall("GET", fmt.Sprintf("/api/games/%s/rooms", gameID), nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if resp.Count == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No rooms in game %s.", gameID)), nil
	}
	result := fmt.Sprintf("Rooms in %s (%d):\n\n", gameID, resp.Count)
	for _, room := range resp.Rooms {
		result += fmt.Sprintf("• %s: %d players, last activity %s\n",
			room.RoomID, room.PlayerCount, room.LastActivity.Format(time.RFC3339))
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleBroadcastEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	gameID, _ := args["game_id"].(string)
	roomID, _ := args["room_id"].(string)
	eventType, _ := args["event_type"].(string)

	body := map[string]interface{}{
		"eventType": eventType,
	}
	if data, ok := args["event_data"]; ok {
		body["eventData"] = data
	}

	var resp struct {
		Delivered int `json:"delivered"`
	}
	path := fmt.Sprintf("/api/games/%s/rooms/%s/events", gameID, roomID)
	if err := c.apiCall("POST", path, body, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Event %s delivered to %d members of room %s.",
		eventType, resp.Delivered, roomID)), nil
}

func (c *Client) handleRoomInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	gameID, _ := args["game_id"].(string)
	roomID, _ := args["room_id"].(string)

	var view directory.RoomView
	if err := c.apiCall("GET", fmt.Sprintf("/api/games/%s/rooms/%s", gameID, roomID), nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Room %s (game %s)\nPlayers: %d\nCreated: %s\nLast activity: %s\n",
		view.RoomID, view.GameID, view.PlayerCount,
		view.CreatedAt.Format(time.RFC3339), view.LastActivity.Format(time.RFC3339))
	for pid, snap := range view.Players {
		data, _ := json.Marshal(snap)
		result += fmt.Sprintf("• %s: %s\n", pid, data)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRelayInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Game Relay - Wire Protocol

Connect to ws://<host>:<port>/ws and exchange JSON envelopes with a "type"
field.

CLIENT TO SERVER:
• {"type":"joinGame","gameId":"demo","roomId":"ABC123","playerData":{...}}
  roomId omitted => the server generates a 6-character token
• {"type":"stateUpdate","roomId":"ABC123","state":{...}}
  shallow-merged into your snapshot, relayed to the other room members
• {"type":"gameEvent","roomId":"ABC123","eventType":"fire","eventData":{...}}
  fanned out to every room member including you

SERVER TO CLIENT:
• roomJoined {roomId, gameId, playerId, playerCount} - join ack
• playerJoined {id, playerData} - new member, or backfill after joining
• playerLeft {id, timestamp}
• stateUpdate {id, state, timestamp} - a peer's state (never your own echo)
• gameEvent {id, eventType, eventData, timestamp}
• roomClosed {reason, roomId} - e.g. the inactivity sweep
• serverShutdown {message} - sent before the relay exits

Messages from a connection that has not joined a room are dropped
silently. Activity on a connection or room is refreshed by any inbound
message; idle connections and rooms are evicted by a periodic sweep.`
	return mcp.NewToolResultText(instructions), nil
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}
