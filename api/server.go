package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wricardo/game-relay/game/relay"
	ws "github.com/wricardo/game-relay/transport/websocket"
)

// Server is the REST and WebSocket HTTP surface of the relay.
type Server struct {
	relay   *relay.Relay
	gateway *ws.Gateway
	router  *mux.Router
}

// NewServer creates the API server over a relay and its gateway.
func NewServer(r *relay.Relay, gateway *ws.Gateway) *Server {
	s := &Server{
		relay:   r,
		gateway: gateway,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Operational status
	api.HandleFunc("/status", s.handleStatus).Methods("GET")

	// Directory listings
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{gameId}/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/games/{gameId}/rooms/{roomId}", s.handleGetRoom).Methods("GET")

	// Server-originated event injection
	api.HandleFunc("/games/{gameId}/rooms/{roomId}/events", s.handleBroadcastEvent).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Static files (demo page, if deployed alongside the relay)
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static/")))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.relay.Status())
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games := s.relay.ListGames()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(games),
		"games": games,
	})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rooms, ok := s.relay.ListRooms(vars["gameId"])
	if !ok {
		respondError(w, http.StatusNotFound, "game not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleBroadcastEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		EventType string `json:"eventType"`
		EventData any    `json:"eventData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.EventType == "" {
		respondError(w, http.StatusBadRequest, "eventType is required")
		return
	}

	delivered, ok := s.relay.BroadcastEvent(vars["gameId"], vars["roomId"], req.EventType, req.EventData)
	if !ok {
		respondError(w, http.StatusNotFound, "room not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"delivered": delivered,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, ok := s.relay.RoomInfo(vars["gameId"], vars["roomId"])
	if !ok {
		respondError(w, http.StatusNotFound, "room not found")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.gateway.ServeWS(w, r)
}
