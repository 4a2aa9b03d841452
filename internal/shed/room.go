package shed

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"game-night/internal/sched"
	"game-night/internal/stats"
)

const (
	StateWaiting  = "waiting"
	StatePlaying  = "playing"
	StateFinished = "finished"
)

// BroadcastFunc pushes a server-initiated event to a room's members. The
// transport layer injects it; the engine never sees connections.
type BroadcastFunc func(roomID, event string, payload map[string]any, excludeID string)

type Settings struct {
	MinPlayers        int
	MaxPlayers        int
	HandSize          int
	BotDelaySeconds   int
	EndedResetSeconds int
}

type Player struct {
	ID        string
	Name      string
	Avatar    string
	Connected bool
	IsBot     bool
	Hand      []Card

	cardsPlayed    int
	specialsPlayed int
	drawsForced    int
	drawsReceived  int
}

type Spectator struct {
	ID        string
	Name      string
	Avatar    string
	Connected bool
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
	order      []string // seat order; rotation follows it
	spectators map[string]*Spectator
	specOrder  []string
	botSeq     int

	stats     *stats.Store
	scheduler sched.Scheduler
	broadcast BroadcastFunc

	deck        []Card
	discard     []Card
	turnIndex   int
	direction   int
	pendingDraw int
	chosenSuit  string // set by a Jack, cleared by the next play
	winnerID    string
	endReason   string

	// gen guards timer callbacks: every phase change bumps it, and a fired
	// timer whose captured gen no longer matches is a no-op.
	gen     int
	timers  map[string]sched.CancelFunc
	pending []event
}

func NewRoom(id, name, hostID, hostName, hostAvatar string, settings Settings, statsStore *stats.Store, scheduler sched.Scheduler) *Room {
	if settings.HandSize <= 0 {
		settings.HandSize = 7
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
		stats:      statsStore,
		scheduler:  scheduler,
		direction:  1,
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
	empty := r.connectedHumansLocked() == 0 && r.connectedSpectatorsLocked() == 0
	return empty, r.state == StateFinished, r.lastActive
}

// SetBroadcast injects the transport layer's event push.
func (r *Room) SetBroadcast(fn BroadcastFunc) {
	r.mu.Lock()
	r.broadcast = fn
	r.mu.Unlock()
}

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
		r.spectators[id] = &Spectator{ID: id, Name: name, Avatar: avatar, Connected: true}
		r.specOrder = append(r.specOrder, id)
		r.queue("spectator_joined", map[string]any{"playerId": id, "name": name}, "")
		return false, nil
	}
	r.addPlayerLocked(id, name, avatar, false)
	r.queue("player_joined", map[string]any{"playerId": id, "name": name}, "")
	return true, nil
}

// AddBot seats a bot player. Host-only, waiting phase only.
func (r *Room) AddBot(hostID string) (string, error) {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if hostID != r.hostID {
		return "", errors.New("only the host can add bots")
	}
	if r.state != StateWaiting {
		return "", errors.New("game already in progress")
	}
	if len(r.players) >= r.settings.MaxPlayers {
		return "", errors.New("room is full")
	}
	r.botSeq++
	id := fmt.Sprintf("bot-%s-%d", r.id, r.botSeq)
	name := fmt.Sprintf("Bot %d", r.botSeq)
	r.addPlayerLocked(id, name, "", true)
	r.queue("player_joined", map[string]any{"playerId": id, "name": name, "bot": true}, "")
	return id, nil
}

func (r *Room) addPlayerLocked(id, name, avatar string, bot bool) {
	r.players[id] = &Player{ID: id, Name: name, Avatar: avatar, Connected: true, IsBot: bot}
	r.order = append(r.order, id)
	if r.hostID == "" && !bot {
		r.hostID = id
	}
}

// RemovePlayer handles both explicit leaves and disconnects. In the waiting
// phase the player is removed outright; mid-game they are only marked
// disconnected. Bots are removed outright in any phase.
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
	if r.state == StateWaiting || r.state == StateFinished || player.IsBot {
		wasCurrent := r.state == StatePlaying && r.currentPlayerIDLocked() == id
		seat := seatIndex(r.order, id)
		delete(r.players, id)
		r.order = removeID(r.order, id)
		if seat >= 0 && seat < r.turnIndex {
			r.turnIndex--
		}
		if r.hostID == id {
			r.reassignHostLocked()
		}
		r.queue("player_left", map[string]any{"playerId": id, "name": player.Name}, "")
		if r.state == StatePlaying {
			if r.connectedCountLocked() < 2 {
				r.endGameLocked("not_enough_players")
				return
			}
			if wasCurrent {
				if r.turnIndex >= len(r.order) {
					r.turnIndex = 0
				}
				if current := r.currentPlayerLocked(); current == nil || !current.Connected {
					r.advanceTurnLocked(1)
				}
				r.afterTurnChangeLocked()
			}
		}
		return
	}

	player.Connected = false
	r.queue("player_disconnected", map[string]any{"playerId": id, "name": player.Name}, "")
	if r.hostID == id {
		r.reassignHostLocked()
	}
	if r.connectedHumansLocked() == 0 {
		if r.state == StatePlaying {
			r.endGameLocked("room_empty")
		}
		return
	}
	if r.state == StatePlaying && r.currentPlayerIDLocked() == id {
		r.advanceTurnLocked(1)
		r.afterTurnChangeLocked()
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
	r.addPlayerLocked(spectator.ID, spectator.Name, spectator.Avatar, false)
	r.players[spectator.ID].Connected = spectator.Connected
	r.queue("player_joined", map[string]any{"playerId": spectator.ID, "name": spectator.Name, "promoted": true}, "")
	return nil
}

func (r *Room) reassignHostLocked() {
	r.hostID = ""
	for _, id := range r.order {
		if player, ok := r.players[id]; ok && player.Connected && !player.IsBot {
			r.hostID = id
			r.queue("host_changed", map[string]any{"playerId": id, "name": player.Name}, "")
			return
		}
	}
}

// connectedCountLocked counts every active seat, bots included.
func (r *Room) connectedCountLocked() int {
	count := 0
	for _, player := range r.players {
		if player.Connected {
			count++
		}
	}
	return count
}

func (r *Room) connectedHumansLocked() int {
	count := 0
	for _, player := range r.players {
		if player.Connected && !player.IsBot {
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

func seatIndex(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
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
