// Package stats keeps per-player cumulative statistics for one game type,
// persisted to a JSON file. Storage failures are logged and swallowed: losing
// a leaderboard write must never stop a game in progress.
package stats

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"game-night/internal/sched"
)

// Record is one player's cumulative counters. Counters holds the
// game-specific tallies (guesses, placements, cards played and so on);
// the shared fields drive streaks and the leaderboard gate.
type Record struct {
	PlayerID      string         `json:"playerId"`
	Name          string         `json:"name"`
	GamesPlayed   int            `json:"gamesPlayed"`
	GamesWon      int            `json:"gamesWon"`
	CurrentStreak int            `json:"currentStreak"`
	BestStreak    int            `json:"bestStreak"`
	Counters      map[string]int `json:"counters,omitempty"`
	LastPlayedAt  time.Time      `json:"lastPlayedAt"`
}

type fileLayout struct {
	Players map[string]*Record `json:"players"`
}

// RatingFunc computes the full weighted skill rating for a record. The store
// only calls it once the record clears the minimum-games gate; below the gate
// the raw win rate is used instead, so small samples cannot top the board.
type RatingFunc func(r *Record) float64

// Entry is one leaderboard row with derived rates.
type Entry struct {
	PlayerID    string  `json:"playerId"`
	Name        string  `json:"name"`
	GamesPlayed int     `json:"gamesPlayed"`
	GamesWon    int     `json:"gamesWon"`
	BestStreak  int     `json:"bestStreak"`
	WinRate     float64 `json:"winRate"`
	SkillRating float64 `json:"skillRating"`
}

type Store struct {
	mu        sync.Mutex
	path      string
	players   map[string]*Record
	rating    RatingFunc
	minGames  int
	debounce  time.Duration
	scheduler sched.Scheduler
	cancel    sched.CancelFunc
}

// Open loads the stats file at path. A missing or corrupt file yields an
// empty store; the caller never sees a load error.
func Open(path string, rating RatingFunc, minGames int, debounce time.Duration, scheduler sched.Scheduler) *Store {
	s := &Store{
		path:      path,
		players:   make(map[string]*Record),
		rating:    rating,
		minGames:  minGames,
		debounce:  debounce,
		scheduler: scheduler,
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("stats load failed path=%s error=%v", path, err)
		}
		return s
	}
	var layout fileLayout
	if err := json.Unmarshal(raw, &layout); err != nil {
		log.Printf("stats file corrupt, starting empty path=%s error=%v", path, err)
		return s
	}
	if layout.Players != nil {
		s.players = layout.Players
	}
	return s
}

func (s *Store) record(playerID, name string) *Record {
	rec, ok := s.players[playerID]
	if !ok {
		rec = &Record{PlayerID: playerID, Name: name, Counters: make(map[string]int)}
		s.players[playerID] = rec
	}
	if rec.Counters == nil {
		rec.Counters = make(map[string]int)
	}
	if name != "" {
		rec.Name = name
	}
	return rec
}

// RecordGame merges one finished game into the player's record and updates
// the win streak: wins extend it, anything else resets it.
func (s *Store) RecordGame(playerID, name string, won bool) {
	if playerID == "" {
		return
	}
	s.mu.Lock()
	rec := s.record(playerID, name)
	rec.GamesPlayed++
	if won {
		rec.GamesWon++
		rec.CurrentStreak++
		if rec.CurrentStreak > rec.BestStreak {
			rec.BestStreak = rec.CurrentStreak
		}
	} else {
		rec.CurrentStreak = 0
	}
	rec.LastPlayedAt = time.Now().UTC()
	s.mu.Unlock()
	s.scheduleSave()
}

// Add bumps a game-specific counter. Used for per-event stats (placements,
// steals, strokes guessed) that persist even when a game never finishes.
func (s *Store) Add(playerID, name, counter string, delta int) {
	if playerID == "" || delta == 0 {
		return
	}
	s.mu.Lock()
	rec := s.record(playerID, name)
	rec.Counters[counter] += delta
	if rec.Counters[counter] < 0 {
		rec.Counters[counter] = 0
	}
	s.mu.Unlock()
	s.scheduleSave()
}

// Get returns a copy of the player's record.
func (s *Store) Get(playerID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.players[playerID]
	if !ok {
		return Record{}, false
	}
	out := *rec
	out.Counters = make(map[string]int, len(rec.Counters))
	for k, v := range rec.Counters {
		out.Counters[k] = v
	}
	return out, true
}

func (s *Store) scheduleSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounce <= 0 {
		s.saveLocked()
		return
	}
	if s.cancel != nil {
		return
	}
	s.cancel = s.scheduler.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cancel = nil
		s.saveLocked()
	})
}

// Flush writes the store out immediately, cancelling any pending debounce.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.saveLocked()
}

func (s *Store) saveLocked() {
	data, err := json.MarshalIndent(fileLayout{Players: s.players}, "", "  ")
	if err != nil {
		log.Printf("stats marshal failed path=%s error=%v", s.path, err)
		return
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("stats mkdir failed path=%s error=%v", s.path, err)
			return
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		log.Printf("stats save failed path=%s error=%v", s.path, err)
	}
}

// WinRate is games won over games played, zero for an unplayed record.
func (r *Record) WinRate() float64 {
	if r.GamesPlayed == 0 {
		return 0
	}
	return float64(r.GamesWon) / float64(r.GamesPlayed)
}

// Counter reads a game-specific counter, zero when absent.
func (r *Record) Counter(name string) int {
	if r.Counters == nil {
		return 0
	}
	return r.Counters[name]
}

// Ratio is one counter over another, zero when the denominator is zero.
func (r *Record) Ratio(numerator, denominator string) float64 {
	den := r.Counter(denominator)
	if den == 0 {
		return 0
	}
	return float64(r.Counter(numerator)) / float64(den)
}

// Activity is a participation signal that saturates at saturation games.
func (r *Record) Activity(saturation int) float64 {
	if saturation <= 0 {
		return 0
	}
	value := float64(r.GamesPlayed) / float64(saturation)
	if value > 1 {
		return 1
	}
	return value
}

// Leaderboard ranks players by skill rating, tiebreaking on games played,
// truncated to topN. Records below the minimum-games gate fall back to raw
// win rate as their skill rating.
func (s *Store) Leaderboard(topN int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]Entry, 0, len(s.players))
	for _, rec := range s.players {
		entry := Entry{
			PlayerID:    rec.PlayerID,
			Name:        rec.Name,
			GamesPlayed: rec.GamesPlayed,
			GamesWon:    rec.GamesWon,
			BestStreak:  rec.BestStreak,
			WinRate:     rec.WinRate(),
		}
		if rec.GamesPlayed < s.minGames || s.rating == nil {
			entry.SkillRating = entry.WinRate
		} else {
			entry.SkillRating = s.rating(rec)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SkillRating != entries[j].SkillRating {
			return entries[i].SkillRating > entries[j].SkillRating
		}
		return entries[i].GamesPlayed > entries[j].GamesPlayed
	})
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	return entries
}
