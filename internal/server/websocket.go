package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// roomHub tracks the sockets attached to each room, tagged with the player
// identity behind them so broadcasts can be personalized and excluded.
type roomHub struct {
	mu    sync.Mutex
	rooms map[string]map[*websocket.Conn]string
}

// lobbyHub tracks the sockets watching the room list.
type lobbyHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newRoomHub() *roomHub {
	return &roomHub{rooms: make(map[string]map[*websocket.Conn]string)}
}

func newLobbyHub() *lobbyHub {
	return &lobbyHub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *roomHub) Add(roomID string, conn *websocket.Conn, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[roomID]
	if group == nil {
		group = make(map[*websocket.Conn]string)
		h.rooms[roomID] = group
	}
	group[conn] = playerID
}

func (h *roomHub) Remove(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[roomID]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.rooms, roomID)
	}
}

// Members snapshots the room's connections so sends happen outside the hub
// lock.
func (h *roomHub) Members(roomID string) map[*websocket.Conn]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[roomID]
	out := make(map[*websocket.Conn]string, len(group))
	for conn, playerID := range group {
		out[conn] = playerID
	}
	return out
}

func (h *roomHub) Send(conn *websocket.Conn, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *lobbyHub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *lobbyHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	_ = conn.Close()
}

func (h *lobbyHub) Broadcast(payload any) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(conn)
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleRoomWebsocket(w http.ResponseWriter, r *http.Request) {
	gameType, roomID, _, ok := parseRoomPath(r.URL.Path, "/ws/")
	if !ok || roomID == "" {
		http.NotFound(w, r)
		return
	}
	game, found := s.game(gameType)
	if !found || !game.HasRoom(roomID) {
		http.NotFound(w, r)
		return
	}
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "playerId is required")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected game=%s room_id=%s player_id=%s remote=%s", gameType, roomID, playerID, r.RemoteAddr)
	s.ws.Add(roomID, conn, playerID)
	if state, ok := game.StateFor(roomID, playerID); ok {
		_ = s.ws.Send(conn, map[string]any{"type": "state", "state": state})
	}
	go s.readRoomWS(game, roomID, playerID, conn)
}

// readRoomWS drains the socket until it drops; the engine treats the drop as
// a disconnect, keeping the seat reserved for a reconnect.
func (s *Server) readRoomWS(game gameBackend, roomID, playerID string, conn *websocket.Conn) {
	defer func() {
		s.ws.Remove(roomID, conn)
		game.Remove(roomID, playerID)
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected room_id=%s player_id=%s error=%v", roomID, playerID, err)
			return
		}
	}
}

func (s *Server) handleLobbyWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected lobby remote=%s", r.RemoteAddr)
	s.lobbyWS.Add(conn)
	data, err := json.Marshal(map[string]any{"type": "rooms", "rooms": s.roomSummaries()})
	if err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	go s.readLobbyWS(conn)
}

func (s *Server) readLobbyWS(conn *websocket.Conn) {
	defer s.lobbyWS.Remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("lobby ws disconnected error=%v", err)
			return
		}
	}
}

func (s *Server) broadcastLobbyUpdate() {
	if s.lobbyWS == nil {
		return
	}
	s.lobbyWS.Broadcast(map[string]any{"type": "rooms", "rooms": s.roomSummaries()})
}
