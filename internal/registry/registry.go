// Package registry keeps the active rooms of one game type. It is a lookup
// table, not a validating API: misses return false, never an error.
package registry

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Room is what the registry needs to know to sweep idle rooms.
type Room interface {
	RoomID() string
	// SweepInfo reports whether the room has no players or spectators left,
	// whether its game has ended, and when it last saw activity.
	SweepInfo() (empty bool, ended bool, lastActive time.Time)
}

type Registry[R Room] struct {
	mu       sync.Mutex
	rooms    map[string]R
	emptyTTL time.Duration
	endedTTL time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func New[R Room](emptyTTL, endedTTL time.Duration) *Registry[R] {
	return &Registry[R]{
		rooms:    make(map[string]R),
		emptyTTL: emptyTTL,
		endedTTL: endedTTL,
		stop:     make(chan struct{}),
	}
}

// NewID builds a room id from the creation time plus a random suffix.
func NewID() string {
	return fmt.Sprintf("%d-%06d", time.Now().UnixMilli(), rand.Intn(1000000))
}

func (r *Registry[R]) Add(room R) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.RoomID()] = room
}

func (r *Registry[R]) Get(id string) (R, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	return room, ok
}

func (r *Registry[R]) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, id)
}

func (r *Registry[R]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// List returns rooms matching the filter, sorted by id for stable lobby
// display. A nil filter matches everything.
func (r *Registry[R]) List(filter func(R) bool) []R {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]R, 0, len(r.rooms))
	for _, room := range r.rooms {
		if filter == nil || filter(room) {
			list = append(list, room)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].RoomID() < list[j].RoomID()
	})
	return list
}

// StartSweep runs Sweep on a fixed interval until Close is called.
func (r *Registry[R]) StartSweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep(time.Now())
			case <-r.stop:
				return
			}
		}
	}()
}

func (r *Registry[R]) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Sweep removes rooms that have been empty past the empty TTL or ended past
// the ended TTL. Returns the ids removed.
func (r *Registry[R]) Sweep(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := make([]string, 0)
	for id, room := range r.rooms {
		empty, ended, lastActive := room.SweepInfo()
		age := now.Sub(lastActive)
		if (empty && age > r.emptyTTL) || (ended && age > r.endedTTL) {
			delete(r.rooms, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		log.Printf("registry swept rooms count=%d", len(removed))
	}
	return removed
}
