package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"game-night/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// archiver buffers a room's lifecycle events between game_started and
// game_ended, then writes the finished match to Postgres. Archive failures
// are logged and swallowed; losing a match row must never stop a game.
type archiver struct {
	conn  *gorm.DB
	mu    sync.Mutex
	lives map[string]*liveMatch
}

type liveMatch struct {
	kind      string
	startedAt time.Time
	events    []db.MatchEvent
}

func newArchiver(conn *gorm.DB) *archiver {
	return &archiver{conn: conn, lives: make(map[string]*liveMatch)}
}

// Observe is called from the broadcast path for every room event.
func (a *archiver) Observe(kind, roomID, event string, payload map[string]any, meta func() (string, map[string]any)) {
	if a.conn == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("archive marshal failed room_id=%s event=%s error=%v", roomID, event, err)
		return
	}

	a.mu.Lock()
	if event == "game_started" {
		a.lives[roomID] = &liveMatch{kind: kind, startedAt: time.Now().UTC()}
	}
	live := a.lives[roomID]
	if live != nil {
		live.events = append(live.events, db.MatchEvent{Type: event, Payload: datatypes.JSON(raw)})
	}
	var finished *liveMatch
	if event == "game_ended" && live != nil {
		finished = live
		delete(a.lives, roomID)
	}
	a.mu.Unlock()

	if finished == nil {
		return
	}
	name, _ := meta()
	if err := a.writeMatch(roomID, name, payload, finished); err != nil {
		if isUniqueViolation(err) {
			return
		}
		log.Printf("archive write failed room_id=%s error=%v", roomID, err)
	}
}

func (a *archiver) writeMatch(roomID, roomName string, payload map[string]any, live *liveMatch) error {
	endedAt := time.Now().UTC()
	winnerID, _ := payload["winnerId"].(string)
	reason, _ := payload["reason"].(string)

	match := db.Match{
		// One room hosts many matches over its lifetime; the key carries
		// the start time to stay unique.
		RoomID:    fmt.Sprintf("%s@%d", roomID, live.startedAt.UnixMilli()),
		GameType:  live.kind,
		RoomName:  roomName,
		Reason:    reason,
		WinnerID:  winnerID,
		StartedAt: live.startedAt,
		EndedAt:   endedAt,
		Results:   resultsFromRanking(payload, winnerID),
		Events:    live.events,
	}
	return a.conn.Create(&match).Error
}

func resultsFromRanking(payload map[string]any, winnerID string) []db.MatchResult {
	ranking, _ := payload["ranking"].([]map[string]any)
	results := make([]db.MatchResult, 0, len(ranking))
	for _, entry := range ranking {
		playerID, _ := entry["playerId"].(string)
		name, _ := entry["name"].(string)
		place := intFrom(entry["place"])
		score := intFrom(entry["score"])
		if score == 0 {
			score = intFrom(entry["cards"])
		}
		won := playerID != "" && playerID == winnerID
		if winnerID == "" {
			won = place == 1 && score > 0
		}
		results = append(results, db.MatchResult{
			PlayerID:  playerID,
			Name:      name,
			Score:     score,
			Placement: place,
			Won:       won,
		})
	}
	return results
}

func intFrom(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
