package server

import (
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type createRoomRequest struct {
	Name     string          `json:"name"`
	HostName string          `json:"hostName"`
	Avatar   string          `json:"avatar"`
	Settings jsonRawSettings `json:"settings"`
}

// jsonRawSettings defers settings decoding to the game backend, which knows
// its own settings shape.
type jsonRawSettings []byte

func (r *jsonRawSettings) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

type joinRequest struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

type playerRequest struct {
	PlayerID string `json:"playerId"`
}

type promoteRequest struct {
	PlayerID string `json:"playerId"`
	TargetID string `json:"targetId"`
}

func (s *Server) handleCreateRoom(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		game := s.backends[kind]
		var req createRoomRequest
		if err := readJSON(r.Body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.HostName) == "" {
			writeError(w, http.StatusBadRequest, "hostName is required")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			req.Name = req.HostName + "'s room"
		}
		hostID := uuid.NewString()
		roomID, err := game.Create(req.Name, hostID, req.HostName, req.Avatar, req.Settings)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("room created game=%s room_id=%s host=%s", kind, roomID, req.HostName)
		state, _ := game.StateFor(roomID, hostID)
		writeJSON(w, http.StatusCreated, map[string]any{
			"roomId":   roomID,
			"playerId": hostID,
			"state":    state,
		})
		s.broadcastLobbyUpdate()
	}
}

func (s *Server) handleListRooms(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		joinable := r.URL.Query().Get("joinable") == "true"
		writeJSON(w, http.StatusOK, map[string]any{
			"rooms": s.backends[kind].Summaries(joinable),
		})
	}
}

func (s *Server) handleAllRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": s.roomSummaries()})
}

func (s *Server) handleLeaderboard(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"entries": s.backends[kind].Leaderboard(s.cfg.LeaderboardSize),
		})
	}
}

func (s *Server) handleRoomSubroutes(w http.ResponseWriter, r *http.Request) {
	kind, roomID, action, ok := parseAPIRoomPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	game, found := s.game(kind)
	if !found {
		http.NotFound(w, r)
		return
	}
	if r.Method == http.MethodGet {
		if action != "" && action != "state" {
			http.NotFound(w, r)
			return
		}
		state, ok := game.StateFor(roomID, r.URL.Query().Get("playerId"))
		if !ok {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeJSON(w, http.StatusOK, state)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch action {
	case "join":
		s.handleJoin(w, game, roomID, body)
	case "leave":
		s.handleLeave(w, game, roomID, body)
	case "start":
		s.handleStart(w, game, roomID, body)
	case "promote":
		s.handlePromote(w, game, roomID, body)
	default:
		resp, err := game.Action(roomID, action, body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleJoin(w http.ResponseWriter, game gameBackend, roomID string, body []byte) {
	var req joinRequest
	if err := unmarshalBody(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	playerID := req.PlayerID
	if playerID == "" {
		playerID = uuid.NewString()
	}
	isPlayer, err := game.Join(roomID, playerID, req.Name, req.Avatar)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Printf("room joined game=%s room_id=%s player_id=%s spectator=%v", game.Kind(), roomID, playerID, !isPlayer)
	state, _ := game.StateFor(roomID, playerID)
	writeJSON(w, http.StatusOK, map[string]any{
		"playerId":  playerID,
		"spectator": !isPlayer,
		"state":     state,
	})
	s.broadcastLobbyUpdate()
}

func (s *Server) handleLeave(w http.ResponseWriter, game gameBackend, roomID string, body []byte) {
	var req playerRequest
	if err := unmarshalBody(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	game.Remove(roomID, req.PlayerID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
	s.broadcastLobbyUpdate()
}

func (s *Server) handleStart(w http.ResponseWriter, game gameBackend, roomID string, body []byte) {
	var req playerRequest
	if err := unmarshalBody(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := game.Start(roomID, req.PlayerID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Printf("game started game=%s room_id=%s", game.Kind(), roomID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handlePromote(w http.ResponseWriter, game gameBackend, roomID string, body []byte) {
	var req promoteRequest
	if err := unmarshalBody(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := game.Promote(roomID, req.PlayerID, req.TargetID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
