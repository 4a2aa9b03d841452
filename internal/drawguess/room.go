// Package drawguess implements the draw-and-guess room engine: the drawer is
// offered words, draws one, and the other players race to guess it before the
// round timer runs out.
package drawguess

import (
	"errors"
	"sync"
	"time"

	"game-night/internal/sched"
	"game-night/internal/stats"
)

const (
	StateWaiting       = "waiting"
	StateChoosing      = "choosing"
	StatePlaying       = "playing"
	StateBetweenRounds = "between_rounds"
	StateEnded         = "ended"
)

// BroadcastFunc pushes a server-initiated event to a room's members. The
// transport layer injects it; the engine never sees connections. excludeID
// names a player the event must not reach ("" for nobody).
type BroadcastFunc func(roomID, event string, payload map[string]any, excludeID string)

type Settings struct {
	MinPlayers           int
	MaxPlayers           int
	Rounds               int
	DrawSeconds          int
	ChooseSeconds        int
	BetweenRoundsSeconds int
	EndedResetSeconds    int
	Language             string
	Difficulty           string
	CustomWords          []string
	CustomWordChance     float64
}

type Player struct {
	ID        string
	Name      string
	Avatar    string
	Score     int
	Connected bool

	guessAttempts  int
	correctGuesses int
	roundsDrawn    int
	roundsGuessed  int // rounds drawn where at least one player guessed
}

type Spectator struct {
	ID        string
	Name      string
	Avatar    string
	Connected bool
}

type Stroke struct {
	Kind   string    `json:"kind"` // "stroke", "fill"
	Color  string    `json:"color"`
	Width  int       `json:"width,omitempty"`
	Points [][2]int  `json:"points,omitempty"`
	At     time.Time `json:"at"`
}

type event struct {
	typ     string
	payload map[string]any
	exclude string
}

type Room struct {
	mu sync.Mutex

	id         string
	name       string
	hostID     string
	state      string
	createdAt  time.Time
	lastActive time.Time
	settings   Settings

	players    map[string]*Player
	order      []string // insertion order; drawer rotation follows it
	spectators map[string]*Spectator
	specOrder  []string

	words     *Pool
	stats     *stats.Store
	scheduler sched.Scheduler
	broadcast BroadcastFunc

	round       int
	drawerIndex int
	wordChoices []string
	currentWord string
	revealed    map[int]bool
	usedWords   map[string]bool
	roundStart  time.Time
	correct     []string
	endReason   string

	strokes   []Stroke
	redoStack []Stroke

	// gen guards timer callbacks: every phase change bumps it, and a fired
	// timer whose captured gen no longer matches is a no-op.
	gen     int
	timers  map[string]sched.CancelFunc
	pending []event
}

const maxStrokes = 50

func NewRoom(id, name, hostID, hostName, hostAvatar string, settings Settings, words *Pool, statsStore *stats.Store, scheduler sched.Scheduler) *Room {
	if settings.Language == "" {
		settings.Language = "en"
	}
	if settings.Difficulty == "" {
		settings.Difficulty = "easy"
	}
	now := time.Now().UTC()
	r := &Room{
		id:         id,
		name:       name,
		hostID:     hostID,
		state:      StateWaiting,
		createdAt:  now,
		lastActive: now,
		settings:   settings,
		players:    make(map[string]*Player),
		spectators: make(map[string]*Spectator),
		words:      words,
		stats:      statsStore,
		scheduler:  scheduler,
		usedWords:  make(map[string]bool),
		revealed:   make(map[int]bool),
		timers:     make(map[string]sched.CancelFunc),
	}
	r.players[hostID] = &Player{ID: hostID, Name: hostName, Avatar: hostAvatar, Connected: true}
	r.order = append(r.order, hostID)
	return r
}

func (r *Room) RoomID() string { return r.id }

func (r *Room) SweepInfo() (bool, bool, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	empty := r.connectedCountLocked() == 0 && r.connectedSpectatorsLocked() == 0
	return empty, r.state == StateEnded, r.lastActive
}

// SetBroadcast injects the transport layer's event push.
func (r *Room) SetBroadcast(fn BroadcastFunc) {
	r.mu.Lock()
	r.broadcast = fn
	r.mu.Unlock()
}

// State returns the current phase tag.
func (r *Room) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// HasPlayer reports whether the id belongs to a player or spectator, for
// reconnection checks.
func (r *Room) HasPlayer(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, isPlayer := r.players[id]
	_, isSpectator := r.spectators[id]
	return isPlayer || isSpectator
}

// AddPlayer joins or reconnects an identity. During an active game, or when
// the room is full, new joiners become spectators instead of being rejected.
// Returns true when the identity ended up as a player.
func (r *Room) AddPlayer(id, name, avatar string) (bool, error) {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if player, ok := r.players[id]; ok {
		player.Connected = true
		r.queue("player_joined", map[string]any{"playerId": id, "name": player.Name, "reconnected": true}, "")
		return true, nil
	}
	if spectator, ok := r.spectators[id]; ok {
		spectator.Connected = true
		r.queue("spectator_joined", map[string]any{"playerId": id, "name": spectator.Name, "reconnected": true}, "")
		return false, nil
	}
	if r.state != StateWaiting || len(r.players) >= r.settings.MaxPlayers {
		r.addSpectatorLocked(id, name, avatar)
		r.queue("spectator_joined", map[string]any{"playerId": id, "name": name}, "")
		return false, nil
	}
	r.addPlayerLocked(id, name, avatar)
	r.queue("player_joined", map[string]any{"playerId": id, "name": name}, "")
	return true, nil
}

func (r *Room) addPlayerLocked(id, name, avatar string) {
	r.players[id] = &Player{ID: id, Name: name, Avatar: avatar, Connected: true}
	r.order = append(r.order, id)
	if r.hostID == "" {
		r.hostID = id
	}
}

func (r *Room) addSpectatorLocked(id, name, avatar string) {
	r.spectators[id] = &Spectator{ID: id, Name: name, Avatar: avatar, Connected: true}
	r.specOrder = append(r.specOrder, id)
}

// RemovePlayer handles both explicit leaves and disconnects. In the waiting
// phase the player is removed outright; mid-game they are only marked
// disconnected so they can reconnect.
func (r *Room) RemovePlayer(id string) {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if spectator, ok := r.spectators[id]; ok {
		delete(r.spectators, id)
		r.specOrder = removeID(r.specOrder, id)
		r.queue("spectator_left", map[string]any{"playerId": id, "name": spectator.Name}, "")
		return
	}
	player, ok := r.players[id]
	if !ok {
		return
	}
	if r.state == StateWaiting || r.state == StateEnded {
		delete(r.players, id)
		r.order = removeID(r.order, id)
		if r.hostID == id {
			r.reassignHostLocked()
		}
		r.queue("player_left", map[string]any{"playerId": id, "name": player.Name}, "")
		return
	}

	player.Connected = false
	r.queue("player_disconnected", map[string]any{"playerId": id, "name": player.Name}, "")
	if r.hostID == id {
		r.reassignHostLocked()
	}
	if r.connectedCountLocked() == 0 {
		r.endGameLocked("room_empty")
		return
	}
	if (r.state == StateChoosing || r.state == StatePlaying) && r.currentDrawerIDLocked() == id {
		r.endRoundLocked("drawer_left")
	}
}

// PromoteSpectator moves a spectator into a player seat. Host-only, waiting
// phase only.
func (r *Room) PromoteSpectator(hostID, spectatorID string) error {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	if hostID != r.hostID {
		return errors.New("only the host can promote spectators")
	}
	if r.state != StateWaiting {
		return errors.New("can only promote while waiting")
	}
	spectator, ok := r.spectators[spectatorID]
	if !ok {
		return errors.New("spectator not found")
	}
	if len(r.players) >= r.settings.MaxPlayers {
		return errors.New("room is full")
	}
	delete(r.spectators, spectatorID)
	r.specOrder = removeID(r.specOrder, spectatorID)
	r.addPlayerLocked(spectator.ID, spectator.Name, spectator.Avatar)
	r.players[spectator.ID].Connected = spectator.Connected
	r.queue("player_joined", map[string]any{"playerId": spectator.ID, "name": spectator.Name, "promoted": true}, "")
	return nil
}

func (r *Room) reassignHostLocked() {
	r.hostID = ""
	for _, id := range r.order {
		if player, ok := r.players[id]; ok && player.Connected {
			r.hostID = id
			r.queue("host_changed", map[string]any{"playerId": id, "name": player.Name}, "")
			return
		}
	}
}

func (r *Room) connectedCountLocked() int {
	count := 0
	for _, player := range r.players {
		if player.Connected {
			count++
		}
	}
	return count
}

func (r *Room) connectedSpectatorsLocked() int {
	count := 0
	for _, spectator := range r.spectators {
		if spectator.Connected {
			count++
		}
	}
	return count
}

func (r *Room) touchLocked() {
	r.lastActive = time.Now().UTC()
}

func (r *Room) queue(typ string, payload map[string]any, exclude string) {
	r.pending = append(r.pending, event{typ: typ, payload: payload, exclude: exclude})
}

// dispatch flushes queued events to the broadcast callback. It must run
// after the room lock is released: the deferreds on public methods are
// ordered so the unlock happens first.
func (r *Room) dispatch() {
	r.mu.Lock()
	events := r.pending
	r.pending = nil
	fn := r.broadcast
	r.mu.Unlock()
	if fn == nil {
		return
	}
	for _, ev := range events {
		fn(r.id, ev.typ, ev.payload, ev.exclude)
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
