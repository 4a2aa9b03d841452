package timeline

import (
	"sync"
	"time"

	"game-night/internal/registry"
	"game-night/internal/sched"
	"game-night/internal/stats"
)

// Manager owns the timeline rooms: registry, shared song catalog, stats
// store, and the injected broadcast callback.
type Manager struct {
	mu        sync.Mutex
	rooms     *registry.Registry[*Room]
	songs     *Catalog
	stats     *stats.Store
	scheduler sched.Scheduler
	defaults  Settings
	broadcast BroadcastFunc
}

func NewManager(songs *Catalog, statsStore *stats.Store, scheduler sched.Scheduler, defaults Settings, emptyTTL, endedTTL time.Duration) *Manager {
	return &Manager{
		rooms:     registry.New[*Room](emptyTTL, endedTTL),
		songs:     songs,
		stats:     statsStore,
		scheduler: scheduler,
		defaults:  defaults,
	}
}

// SetBroadcast injects the transport's event push into the manager and all
// existing rooms.
func (m *Manager) SetBroadcast(fn BroadcastFunc) {
	m.mu.Lock()
	m.broadcast = fn
	m.mu.Unlock()
	for _, room := range m.rooms.List(nil) {
		room.SetBroadcast(fn)
	}
}

// CreateRoom makes a room with the host already seated. Zero-valued settings
// fields fall back to the manager defaults.
func (m *Manager) CreateRoom(name, hostID, hostName, hostAvatar string, settings Settings) *Room {
	merged := m.defaults
	if settings.MinPlayers > 0 {
		merged.MinPlayers = settings.MinPlayers
	}
	if settings.MaxPlayers > 0 {
		merged.MaxPlayers = settings.MaxPlayers
	}
	if settings.TargetLength > 0 {
		merged.TargetLength = settings.TargetLength
	}
	if settings.ListenSeconds > 0 {
		merged.ListenSeconds = settings.ListenSeconds
	}

	room := NewRoom(registry.NewID(), name, hostID, hostName, hostAvatar, merged, m.songs, m.stats, m.scheduler)
	m.mu.Lock()
	room.SetBroadcast(m.broadcast)
	m.mu.Unlock()
	m.rooms.Add(room)
	return room
}

func (m *Manager) GetRoom(id string) (*Room, bool) {
	return m.rooms.Get(id)
}

func (m *Manager) DeleteRoom(id string) {
	m.rooms.Delete(id)
}

// ListRooms returns rooms for the lobby; joinableOnly filters to rooms still
// in the waiting phase with a free seat.
func (m *Manager) ListRooms(joinableOnly bool) []*Room {
	if !joinableOnly {
		return m.rooms.List(nil)
	}
	return m.rooms.List(func(r *Room) bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.state == StateWaiting && len(r.players) < r.settings.MaxPlayers
	})
}

func (m *Manager) Leaderboard(topN int) []stats.Entry {
	if m.stats == nil {
		return nil
	}
	return m.stats.Leaderboard(topN)
}

func (m *Manager) StartSweep(interval time.Duration) {
	m.rooms.StartSweep(interval)
}

func (m *Manager) Close() {
	m.rooms.Close()
	if m.stats != nil {
		m.stats.Flush()
	}
}

// Rating is the timeline skill formula: win rate blended with participation
// and placement accuracy.
func Rating(r *stats.Record) float64 {
	return 0.5*r.WinRate() + 0.3*r.Activity(20) + 0.2*r.Ratio("correctPlacements", "placementAttempts")
}
