package server

import (
	"net/http"
	"time"

	"game-night/internal/config"
	"game-night/internal/drawguess"
	"game-night/internal/shed"
	"game-night/internal/stats"
	"game-night/internal/timeline"

	"gorm.io/gorm"
)

// Server is the transport layer over the three game managers: HTTP routes
// for actions, websockets for state pushes, and the Postgres match archive.
type Server struct {
	cfg      config.Config
	db       *gorm.DB
	ws       *roomHub
	lobbyWS  *lobbyHub
	archive  *archiver
	draw     *drawguess.Manager
	timeline *timeline.Manager
	shed     *shed.Manager
	backends map[string]gameBackend
}

func New(conn *gorm.DB, cfg config.Config, draw *drawguess.Manager, tl *timeline.Manager, cards *shed.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		db:       conn,
		ws:       newRoomHub(),
		lobbyWS:  newLobbyHub(),
		archive:  newArchiver(conn),
		draw:     draw,
		timeline: tl,
		shed:     cards,
	}
	s.backends = map[string]gameBackend{
		"draw":     &drawBackend{s: s, m: draw},
		"timeline": &timelineBackend{s: s, m: tl},
		"shed":     &shedBackend{s: s, m: cards},
	}
	draw.SetBroadcast(drawguess.BroadcastFunc(s.pushFunc("draw")))
	tl.SetBroadcast(timeline.BroadcastFunc(s.pushFunc("timeline")))
	cards.SetBroadcast(shed.BroadcastFunc(s.pushFunc("shed")))
	return s
}

func (s *Server) game(kind string) (gameBackend, bool) {
	game, ok := s.backends[kind]
	return game, ok
}

// pushFunc builds the broadcast callback injected into one manager: archive
// the event, fan personalized state out to the room's sockets, and refresh
// the lobby when the room list changed shape.
func (s *Server) pushFunc(kind string) func(roomID, event string, payload map[string]any, excludeID string) {
	return func(roomID, event string, payload map[string]any, excludeID string) {
		game := s.backends[kind]
		s.archive.Observe(kind, roomID, event, payload, func() (string, map[string]any) {
			state, _ := game.StateFor(roomID, "")
			name, _ := state["name"].(string)
			return name, state
		})
		for conn, playerID := range s.ws.Members(roomID) {
			if excludeID != "" && playerID == excludeID {
				continue
			}
			state, ok := game.StateFor(roomID, playerID)
			if !ok {
				continue
			}
			envelope := map[string]any{"type": event, "payload": payload, "state": state}
			if err := s.ws.Send(conn, envelope); err != nil {
				s.ws.Remove(roomID, conn)
			}
		}
		switch event {
		case "player_joined", "player_left", "game_started", "game_ended", "room_reset", "host_changed":
			s.broadcastLobbyUpdate()
		}
	}
}

func (s *Server) roomSummaries() []map[string]any {
	summaries := make([]map[string]any, 0)
	for _, kind := range []string{"draw", "timeline", "shed"} {
		summaries = append(summaries, s.backends[kind].Summaries(false)...)
	}
	return summaries
}

// StartSweeps launches the idle-room sweepers on every manager.
func (s *Server) StartSweeps() {
	interval := time.Duration(s.cfg.SweepIntervalSeconds) * time.Second
	s.draw.StartSweep(interval)
	s.timeline.StartSweep(interval)
	s.shed.StartSweep(interval)
}

// Close stops the sweepers and flushes pending stats writes.
func (s *Server) Close() {
	s.draw.Close()
	s.timeline.Close()
	s.shed.Close()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for kind := range s.backends {
		mux.HandleFunc("POST /api/"+kind+"/rooms", s.handleCreateRoom(kind))
		mux.HandleFunc("GET /api/"+kind+"/rooms", s.handleListRooms(kind))
		mux.HandleFunc("GET /api/"+kind+"/rooms/", s.handleRoomSubroutes)
		mux.HandleFunc("POST /api/"+kind+"/rooms/", s.handleRoomSubroutes)
		mux.HandleFunc("GET /api/"+kind+"/leaderboard", s.handleLeaderboard(kind))
		mux.HandleFunc("GET /ws/"+kind+"/", s.handleRoomWebsocket)
	}
	mux.HandleFunc("GET /ws/lobby", s.handleLobbyWebsocket)
	mux.HandleFunc("GET /api/rooms", s.handleAllRooms)
	return mux
}

// gameBackend is the per-game adapter the transport dispatches through: the
// shared room lifecycle plus a string-keyed action surface for the
// game-specific moves.
type gameBackend interface {
	Kind() string
	HasRoom(id string) bool
	Create(name, hostID, hostName, avatar string, raw []byte) (string, error)
	Join(roomID, playerID, name, avatar string) (bool, error)
	Remove(roomID, playerID string)
	Start(roomID, playerID string) error
	Promote(roomID, hostID, targetID string) error
	StateFor(roomID, playerID string) (map[string]any, bool)
	Summaries(joinableOnly bool) []map[string]any
	Leaderboard(topN int) []stats.Entry
	Action(roomID, action string, body []byte) (map[string]any, error)
}
