package server

import (
	"encoding/json"
	"errors"

	"game-night/internal/drawguess"
	"game-night/internal/shed"
	"game-night/internal/stats"
	"game-night/internal/timeline"
)

func summaryFrom(kind string, state map[string]any) map[string]any {
	players, _ := state["players"].([]map[string]any)
	return map[string]any{
		"game":       kind,
		"roomId":     state["roomId"],
		"name":       state["name"],
		"state":      state["state"],
		"players":    len(players),
		"maxPlayers": state["maxPlayers"],
	}
}

// --- draw-and-guess ---

type drawBackend struct {
	s *Server
	m *drawguess.Manager
}

type drawSettingsRequest struct {
	MinPlayers       int      `json:"minPlayers"`
	MaxPlayers       int      `json:"maxPlayers"`
	Rounds           int      `json:"rounds"`
	DrawSeconds      int      `json:"drawSeconds"`
	Language         string   `json:"language"`
	Difficulty       string   `json:"difficulty"`
	CustomWords      []string `json:"customWords"`
	CustomWordChance float64  `json:"customWordChance"`
}

type wordRequest struct {
	PlayerID string `json:"playerId"`
	Word     string `json:"word"`
}

type guessRequest struct {
	PlayerID string `json:"playerId"`
	Text     string `json:"text"`
}

type strokeRequest struct {
	PlayerID string           `json:"playerId"`
	Stroke   drawguess.Stroke `json:"stroke"`
}

type fillRequest struct {
	PlayerID string `json:"playerId"`
	Color    string `json:"color"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

func (b *drawBackend) Kind() string { return "draw" }

func (b *drawBackend) HasRoom(id string) bool {
	_, ok := b.m.GetRoom(id)
	return ok
}

func (b *drawBackend) Create(name, hostID, hostName, avatar string, raw []byte) (string, error) {
	var req drawSettingsRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return "", errors.New("invalid settings")
		}
	}
	room := b.m.CreateRoom(name, hostID, hostName, avatar, drawguess.Settings{
		MinPlayers:       req.MinPlayers,
		MaxPlayers:       req.MaxPlayers,
		Rounds:           req.Rounds,
		DrawSeconds:      req.DrawSeconds,
		Language:         req.Language,
		Difficulty:       req.Difficulty,
		CustomWords:      req.CustomWords,
		CustomWordChance: req.CustomWordChance,
	})
	return room.RoomID(), nil
}

func (b *drawBackend) Join(roomID, playerID, name, avatar string) (bool, error) {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return false, errors.New("room not found")
	}
	return room.AddPlayer(playerID, name, avatar)
}

func (b *drawBackend) Remove(roomID, playerID string) {
	if room, ok := b.m.GetRoom(roomID); ok {
		room.RemovePlayer(playerID)
	}
}

func (b *drawBackend) Start(roomID, playerID string) error {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return errors.New("room not found")
	}
	return room.Start(playerID)
}

func (b *drawBackend) Promote(roomID, hostID, targetID string) error {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return errors.New("room not found")
	}
	return room.PromoteSpectator(hostID, targetID)
}

func (b *drawBackend) StateFor(roomID, playerID string) (map[string]any, bool) {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return nil, false
	}
	return room.StateFor(playerID), true
}

func (b *drawBackend) Summaries(joinableOnly bool) []map[string]any {
	rooms := b.m.ListRooms(joinableOnly)
	out := make([]map[string]any, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, summaryFrom("draw", room.StateFor("")))
	}
	return out
}

func (b *drawBackend) Leaderboard(topN int) []stats.Entry {
	return b.m.Leaderboard(topN)
}

func (b *drawBackend) Action(roomID, action string, body []byte) (map[string]any, error) {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return nil, errors.New("room not found")
	}
	switch action {
	case "select-word":
		var req wordRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		return map[string]any{"success": true}, room.SelectWord(req.PlayerID, req.Word)
	case "guess":
		var req guessRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		outcome, err := room.HandleGuess(req.PlayerID, req.Text)
		if err != nil {
			return nil, err
		}
		// The close flag goes back to the guesser only, never broadcast.
		return map[string]any{"success": true, "outcome": outcome}, nil
	case "stroke":
		var req strokeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		return map[string]any{"success": true}, room.AddStroke(req.PlayerID, req.Stroke)
	case "fill":
		var req fillRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		return map[string]any{"success": true}, room.FloodFill(req.PlayerID, req.Color, req.X, req.Y)
	case "undo":
		var req playerRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		return map[string]any{"success": true}, room.Undo(req.PlayerID)
	case "redo":
		var req playerRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		return map[string]any{"success": true}, room.Redo(req.PlayerID)
	case "clear":
		var req playerRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		return map[string]any{"success": true}, room.ClearCanvas(req.PlayerID)
	}
	return nil, errors.New("unknown action")
}

// --- music timeline ---

type timelineBackend struct {
	s *Server
	m *timeline.Manager
}

type timelineSettingsRequest struct {
	MinPlayers    int `json:"minPlayers"`
	MaxPlayers    int `json:"maxPlayers"`
	TargetLength  int `json:"targetLength"`
	ListenSeconds int `json:"listenSeconds"`
}

type placeRequest struct {
	PlayerID string `json:"playerId"`
	Index    int    `json:"index"`
}

func (b *timelineBackend) Kind() string { return "timeline" }

func (b *timelineBackend) HasRoom(id string) bool {
	_, ok := b.m.GetRoom(id)
	return ok
}

func (b *timelineBackend) Create(name, hostID, hostName, avatar string, raw []byte) (string, error) {
	var req timelineSettingsRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return "", errors.New("invalid settings")
		}
	}
	room := b.m.CreateRoom(name, hostID, hostName, avatar, timeline.Settings{
		MinPlayers:    req.MinPlayers,
		MaxPlayers:    req.MaxPlayers,
		TargetLength:  req.TargetLength,
		ListenSeconds: req.ListenSeconds,
	})
	return room.RoomID(), nil
}

func (b *timelineBackend) Join(roomID, playerID, name, avatar string) (bool, error) {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return false, errors.New("room not found")
	}
	return room.AddPlayer(playerID, name, avatar)
}

func (b *timelineBackend) Remove(roomID, playerID string) {
	if room, ok := b.m.GetRoom(roomID); ok {
		room.RemovePlayer(playerID)
	}
}

func (b *timelineBackend) Start(roomID, playerID string) error {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return errors.New("room not found")
	}
	return room.Start(playerID)
}

func (b *timelineBackend) Promote(roomID, hostID, targetID string) error {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return errors.New("room not found")
	}
	return room.PromoteSpectator(hostID, targetID)
}

func (b *timelineBackend) StateFor(roomID, playerID string) (map[string]any, bool) {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return nil, false
	}
	return room.StateFor(playerID), true
}

func (b *timelineBackend) Summaries(joinableOnly bool) []map[string]any {
	rooms := b.m.ListRooms(joinableOnly)
	out := make([]map[string]any, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, summaryFrom("timeline", room.StateFor("")))
	}
	return out
}

func (b *timelineBackend) Leaderboard(topN int) []stats.Entry {
	return b.m.Leaderboard(topN)
}

func (b *timelineBackend) Action(roomID, action string, body []byte) (map[string]any, error) {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return nil, errors.New("room not found")
	}
	switch action {
	case "place", "steal":
		var req placeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		correct, err := room.PlaceCard(req.PlayerID, req.Index)
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "correct": correct}, nil
	case "pass":
		var req playerRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		return map[string]any{"success": true}, room.PassSteal(req.PlayerID)
	case "skip-listen":
		var req playerRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		return map[string]any{"success": true}, room.StartPlacing(req.PlayerID)
	}
	return nil, errors.New("unknown action")
}

// --- card shedding ---

type shedBackend struct {
	s *Server
	m *shed.Manager
}

type shedSettingsRequest struct {
	MinPlayers int `json:"minPlayers"`
	MaxPlayers int `json:"maxPlayers"`
	HandSize   int `json:"handSize"`
}

type playCardRequest struct {
	PlayerID string `json:"playerId"`
	CardID   string `json:"cardId"`
	Suit     string `json:"suit"`
}

func (b *shedBackend) Kind() string { return "shed" }

func (b *shedBackend) HasRoom(id string) bool {
	_, ok := b.m.GetRoom(id)
	return ok
}

func (b *shedBackend) Create(name, hostID, hostName, avatar string, raw []byte) (string, error) {
	var req shedSettingsRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return "", errors.New("invalid settings")
		}
	}
	room := b.m.CreateRoom(name, hostID, hostName, avatar, shed.Settings{
		MinPlayers: req.MinPlayers,
		MaxPlayers: req.MaxPlayers,
		HandSize:   req.HandSize,
	})
	return room.RoomID(), nil
}

func (b *shedBackend) Join(roomID, playerID, name, avatar string) (bool, error) {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return false, errors.New("room not found")
	}
	return room.AddPlayer(playerID, name, avatar)
}

func (b *shedBackend) Remove(roomID, playerID string) {
	if room, ok := b.m.GetRoom(roomID); ok {
		room.RemovePlayer(playerID)
	}
}

func (b *shedBackend) Start(roomID, playerID string) error {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return errors.New("room not found")
	}
	return room.Start(playerID)
}

func (b *shedBackend) Promote(roomID, hostID, targetID string) error {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return errors.New("room not found")
	}
	return room.PromoteSpectator(hostID, targetID)
}

func (b *shedBackend) StateFor(roomID, playerID string) (map[string]any, bool) {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return nil, false
	}
	return room.StateFor(playerID), true
}

func (b *shedBackend) Summaries(joinableOnly bool) []map[string]any {
	rooms := b.m.ListRooms(joinableOnly)
	out := make([]map[string]any, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, summaryFrom("shed", room.StateFor("")))
	}
	return out
}

func (b *shedBackend) Leaderboard(topN int) []stats.Entry {
	return b.m.Leaderboard(topN)
}

func (b *shedBackend) Action(roomID, action string, body []byte) (map[string]any, error) {
	room, ok := b.m.GetRoom(roomID)
	if !ok {
		return nil, errors.New("room not found")
	}
	switch action {
	case "play":
		var req playCardRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		return map[string]any{"success": true}, room.PlayCard(req.PlayerID, req.CardID, req.Suit)
	case "draw":
		var req playerRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		return map[string]any{"success": true}, room.DrawCard(req.PlayerID)
	case "bot":
		var req playerRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid request")
		}
		botID, err := room.AddBot(req.PlayerID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "botId": botID}, nil
	}
	return nil, errors.New("unknown action")
}
