// Command relaycli is a terminal client for a running relay. It can query
// the operational endpoints, watch a room's traffic live, and fire one-off
// game events, which is handy when debugging a game without a browser.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/game-relay/client"
	"github.com/wricardo/game-relay/game/directory"
	"github.com/wricardo/game-relay/game/relay"
)

func main() {
	cmd := &cli.Command{
		Name:  "relaycli",
		Usage: "inspect and exercise a game relay from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Value: "http://localhost:8989",
				Usage: "relay base URL",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "print the relay's status counters",
				Action: runStatus,
			},
			{
				Name:   "games",
				Usage:  "list active game categories",
				Action: runGames,
			},
			{
				Name:      "room",
				Usage:     "show one room's members and snapshots",
				ArgsUsage: "<gameId> <roomId>",
				Action:    runRoom,
			},
			{
				Name:  "watch",
				Usage: "join a room and print every message until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "game", Required: true, Usage: "game category to join"},
					&cli.StringFlag{Name: "room", Usage: "room to join (omit to create one)"},
					&cli.StringFlag{Name: "name", Value: "relaycli", Usage: "player name to announce"},
				},
				Action: runWatch,
			},
			{
				Name:      "event",
				Usage:     "join a room, fire one game event, and leave",
				ArgsUsage: "<eventType> [JSON eventData]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "game", Required: true, Usage: "game category to join"},
					&cli.StringFlag{Name: "room", Required: true, Usage: "room to target"},
				},
				Action: runEvent,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	var status relay.StatusReport
	if err := getJSON(cmd.String("server")+"/api/status", &status); err != nil {
		return err
	}

	fmt.Printf("status:   %s\n", status.Status)
	fmt.Printf("uptime:   %s\n", (time.Duration(status.UptimeSeconds) * time.Second).String())
	fmt.Printf("players:  %d active, %d total, %d peak\n",
		status.Players.Active, status.Players.Total, status.Players.Peak)
	fmt.Printf("games:    %d (%d rooms)\n", status.Games, status.Rooms)
	fmt.Printf("messages: %d sent, %d received\n", status.Messages.Sent, status.Messages.Received)
	return nil
}

func runGames(ctx context.Context, cmd *cli.Command) error {
	var resp struct {
		Count int                     `json:"count"`
		Games []directory.GameSummary `json:"games"`
	}
	if err := getJSON(cmd.String("server")+"/api/games", &resp); err != nil {
		return err
	}

	if resp.Count == 0 {
		fmt.Println("no active games")
		return nil
	}
	for _, g := range resp.Games {
		fmt.Printf("%-20s %d rooms, %d players\n", g.GameID, g.Rooms, g.Players)
	}
	return nil
}

func runRoom(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: relaycli room <gameId> <roomId>")
	}
	gameID, roomID := cmd.Args().Get(0), cmd.Args().Get(1)

	var view directory.RoomView
	url := fmt.Sprintf("%s/api/games/%s/rooms/%s", cmd.String("server"), gameID, roomID)
	if err := getJSON(url, &view); err != nil {
		return err
	}

	fmt.Printf("room %s (game %s), %d players\n", view.RoomID, view.GameID, view.PlayerCount)
	fmt.Printf("created %s, last activity %s\n",
		view.CreatedAt.Format(time.RFC3339), view.LastActivity.Format(time.RFC3339))
	for id, snap := range view.Players {
		data, _ := json.Marshal(snap)
		fmt.Printf("  %s %s\n", id, data)
	}
	return nil
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	c := client.New(client.Config{
		ServerURL:  wsEndpoint(cmd.String("server")),
		GameID:     cmd.String("game"),
		RoomID:     cmd.String("room"),
		PlayerData: map[string]any{"name": cmd.String("name")},
		RenderAdapter: func(peerID string, state map[string]any) {
			data, _ := json.Marshal(state)
			fmt.Printf("state   %s %s\n", peerID, data)
		},
	})

	for _, event := range []string{"roomJoined", "playerJoined", "playerLeft",
		"gameEvent", "roomClosed", "serverShutdown", "error"} {
		event := event
		c.On(event, func(msg map[string]any) {
			data, _ := json.Marshal(msg)
			fmt.Printf("%-7s %s\n", event, data)
		})
	}

	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Disconnect()

	done := make(chan struct{}, 1)
	c.On("disconnected", func(map[string]any) {
		select {
		case done <- struct{}{}:
		default:
		}
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-done:
	case <-ctx.Done():
	}
	return nil
}

func runEvent(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("usage: relaycli event <eventType> [JSON eventData]")
	}
	eventType := cmd.Args().Get(0)

	eventData := map[string]any{}
	if raw := cmd.Args().Get(1); raw != "" {
		if err := json.Unmarshal([]byte(raw), &eventData); err != nil {
			return fmt.Errorf("parse event data: %w", err)
		}
	}

	c := client.New(client.Config{
		ServerURL: wsEndpoint(cmd.String("server")),
		GameID:    cmd.String("game"),
		RoomID:    cmd.String("room"),
	})

	joined := make(chan struct{}, 1)
	c.On("roomJoined", func(map[string]any) {
		select {
		case joined <- struct{}{}:
		default:
		}
	})

	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Disconnect()

	select {
	case <-joined:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timed out joining room %s", cmd.String("room"))
	}

	if err := c.SendGameEvent(eventType, eventData); err != nil {
		return err
	}
	fmt.Printf("sent %s to room %s\n", eventType, c.RoomInfo().RoomID)
	return nil
}

// wsEndpoint turns a base HTTP URL into the relay's WebSocket endpoint.
func wsEndpoint(base string) string {
	ws := strings.TrimSuffix(base, "/")
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return ws + "/ws"
}

func getJSON(url string, result any) error {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Get(url)
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
	return json.NewDecoder(resp.Body).Decode(result)
}
