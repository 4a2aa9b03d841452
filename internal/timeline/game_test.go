package timeline

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"game-night/internal/sched"
	"game-night/internal/stats"
)

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (rec *recorder) fn() BroadcastFunc {
	return func(roomID, typ string, payload map[string]any, excludeID string) {
		rec.mu.Lock()
		rec.events = append(rec.events, event{typ: typ, payload: payload, exclude: excludeID})
		rec.mu.Unlock()
	}
}

func (rec *recorder) count(typ string) int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	count := 0
	for _, ev := range rec.events {
		if ev.typ == typ {
			count++
		}
	}
	return count
}

func testSettings() Settings {
	return Settings{
		MinPlayers:        2,
		MaxPlayers:        4,
		TargetLength:      10,
		ListenSeconds:     5,
		TurnDelaySeconds:  2,
		EndedResetSeconds: 10,
	}
}

func testCatalog() *Catalog {
	return &Catalog{songs: []Song{
		{ID: "s60", Title: "Sixty", Artist: "X", Year: 1960},
		{ID: "s70", Title: "Seventy", Artist: "X", Year: 1970},
		{ID: "s80", Title: "Eighty", Artist: "X", Year: 1980},
		{ID: "s90", Title: "Ninety", Artist: "X", Year: 1990},
		{ID: "s00", Title: "Aughts", Artist: "X", Year: 2000},
		{ID: "s10", Title: "Tens", Artist: "X", Year: 2010},
	}}
}

func newTestRoom(t *testing.T, settings Settings) (*Room, *sched.Manual, *recorder, *stats.Store) {
	t.Helper()
	scheduler := sched.NewManual()
	statsStore := stats.Open(filepath.Join(t.TempDir(), "timeline.json"), Rating, 3, 0, scheduler)
	room := NewRoom("room-1", "Test Room", "a", "Ada", "", settings, testCatalog(), statsStore, scheduler)
	rec := &recorder{}
	room.SetBroadcast(rec.fn())
	return room, scheduler, rec, statsStore
}

// forceCard swaps the in-play card for one with a known year so a test can
// build deterministic accept/reject cases regardless of random draws.
func forceCard(room *Room, year int) {
	room.mu.Lock()
	room.currentSong = Song{ID: "forced", Title: "Forced", Artist: "Test", Year: year}
	room.hasSong = true
	room.mu.Unlock()
}

func setTimeline(room *Room, playerID string, years ...int) {
	room.mu.Lock()
	defer room.mu.Unlock()
	timeline := make([]Song, 0, len(years))
	for _, year := range years {
		timeline = append(timeline, Song{ID: "fixed", Year: year})
	}
	room.players[playerID].Timeline = timeline
}

func currentPlayer(room *Room) string {
	return room.StateFor("")["currentPlayerId"].(string)
}

func TestCheckPlacement(t *testing.T) {
	timeline := []Song{{Year: 1990}, {Year: 2005}}
	cases := []struct {
		name  string
		index int
		year  int
		ok    bool
	}{
		{"no left neighbor, under right bound", 0, 1980, true},
		{"no left neighbor, over right bound", 0, 2020, false},
		{"no right neighbor, over left bound", 2, 2020, true},
		{"no right neighbor, under left bound", 2, 1980, false},
		{"both neighbors, inside", 1, 1995, true},
		{"both neighbors, over right", 1, 2010, false},
		{"both neighbors, under left", 1, 1985, false},
		{"negative index", -1, 1995, false},
		{"index past end", 3, 2020, false},
	}
	for _, tc := range cases {
		if got := checkPlacement(timeline, tc.index, tc.year); got != tc.ok {
			t.Fatalf("%s: checkPlacement(., %d, %d) = %v, want %v", tc.name, tc.index, tc.year, got, tc.ok)
		}
	}
	if !checkPlacement(nil, 0, 1975) {
		t.Fatalf("placement into an empty timeline must succeed")
	}
}

func TestInsertKeepsSorted(t *testing.T) {
	timeline := []Song{{Year: 1990}, {Year: 2005}}
	timeline = insertSong(timeline, 1, Song{Year: 1995})
	timeline = insertSong(timeline, 0, Song{Year: 1960})
	timeline = insertSong(timeline, 4, Song{Year: 2020})
	for i := 1; i < len(timeline); i++ {
		if timeline[i-1].Year > timeline[i].Year {
			t.Fatalf("timeline out of order at %d: %v", i, timeline)
		}
	}
	if len(timeline) != 5 {
		t.Fatalf("expected 5 cards, got %d", len(timeline))
	}
}

func TestStartDealsStartersAndHidesTimelines(t *testing.T) {
	room, _, _, _ := newTestRoom(t, testSettings())
	if _, err := room.AddPlayer("b", "Ben", ""); err != nil {
		t.Fatalf("add player: %v", err)
	}
	if err := room.Start("b"); err == nil {
		t.Fatalf("non-host must not start the game")
	}
	if err := room.Start("a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	state := room.StateFor("a")
	if state["state"] != StatePlaying || state["phase"] != PhaseListening {
		t.Fatalf("expected playing/listening, got %v/%v", state["state"], state["phase"])
	}
	for _, entry := range state["players"].([]map[string]any) {
		if entry["cards"].(int) != 1 {
			t.Fatalf("every player starts with one card, got %v", entry["cards"])
		}
		_, visible := entry["timeline"]
		if entry["playerId"] == "a" && !visible {
			t.Fatalf("own timeline must be visible")
		}
		if entry["playerId"] == "b" && visible {
			t.Fatalf("another player's timeline must be hidden")
		}
	}
	if _, ok := state["songId"]; !ok {
		t.Fatalf("current song id should be exposed")
	}
}

func TestListeningAutoAdvances(t *testing.T) {
	room, scheduler, rec, _ := newTestRoom(t, testSettings())
	room.AddPlayer("b", "Ben", "")
	if err := room.Start("a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := room.StartPlacing("nobody"); err == nil {
		t.Fatalf("only the turn's player may skip listening")
	}
	scheduler.Advance(5 * time.Second)
	if room.StateFor("")["phase"] != PhasePlacing {
		t.Fatalf("listening should auto-advance to placing")
	}
	if rec.count("placing_started") != 1 {
		t.Fatalf("expected one placing_started event")
	}
	// The stale listen timer must not re-fire after the phase moved on.
	scheduler.Advance(5 * time.Second)
	if rec.count("placing_started") != 1 {
		t.Fatalf("stale listen timer fired again")
	}
}

func TestWrongPlacementOpensStealQueueInOrder(t *testing.T) {
	room, scheduler, rec, statsStore := newTestRoom(t, testSettings())
	room.AddPlayer("b", "Ben", "")
	room.AddPlayer("c", "Cleo", "")
	if err := room.Start("a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	scheduler.Advance(5 * time.Second)

	actor := currentPlayer(room)
	setTimeline(room, actor, 1990, 2005)
	forceCard(room, 2020)

	if _, err := room.PlaceCard("nobody", 0); err == nil {
		t.Fatalf("outsider placement must be rejected")
	}
	ok, err := room.PlaceCard(actor, 0)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if ok {
		t.Fatalf("2020 before 1990 must be wrong")
	}
	if record, _ := statsStore.Get(actor); record.Counters["wrongPlacements"] != 1 {
		t.Fatalf("wrong placement must count immediately, got %+v", record.Counters)
	}
	if rec.count("steal_started") != 1 {
		t.Fatalf("wrong placement should open a steal")
	}

	state := room.StateFor("")
	queue := state["stealQueue"].([]string)
	if len(queue) != 2 {
		t.Fatalf("expected 2 stealers, got %v", queue)
	}
	first, second := queue[0], queue[1]
	if _, err := room.PlaceCard(second, 0); err == nil {
		t.Fatalf("out-of-order steal attempt must be rejected")
	}
	if err := room.PassSteal(second); err == nil {
		t.Fatalf("out-of-order pass must be rejected")
	}
	if err := room.PassSteal(first); err != nil {
		t.Fatalf("pass: %v", err)
	}

	setTimeline(room, second, 1990, 2005)
	forceCard(room, 2020)
	ok, err = room.PlaceCard(second, 2)
	if err != nil {
		t.Fatalf("steal place: %v", err)
	}
	if !ok {
		t.Fatalf("2020 after 2005 must be correct")
	}
	if record, _ := statsStore.Get(second); record.Counters["stealsWon"] != 1 {
		t.Fatalf("successful steal must count immediately, got %+v", record.Counters)
	}
	if rec.count("turn_ended") != 1 {
		t.Fatalf("claiming the card should end the turn")
	}
}

func TestStealExhaustionDiscardsCard(t *testing.T) {
	room, scheduler, rec, _ := newTestRoom(t, testSettings())
	room.AddPlayer("b", "Ben", "")
	if err := room.Start("a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	scheduler.Advance(5 * time.Second)

	actor := currentPlayer(room)
	setTimeline(room, actor, 1990, 2005)
	forceCard(room, 2020)
	if _, err := room.PlaceCard(actor, 0); err != nil {
		t.Fatalf("place: %v", err)
	}
	queue := room.StateFor("")["stealQueue"].([]string)
	if len(queue) != 1 {
		t.Fatalf("expected 1 stealer, got %v", queue)
	}
	stealer := queue[0]
	setTimeline(room, stealer, 1990, 2005)
	forceCard(room, 2020)
	if _, err := room.PlaceCard(stealer, 0); err != nil {
		t.Fatalf("steal place: %v", err)
	}
	if rec.count("turn_ended") != 1 {
		t.Fatalf("an exhausted steal queue should end the turn with no owner")
	}
	// Nobody gained the card.
	for _, entry := range room.StateFor("")["players"].([]map[string]any) {
		if entry["cards"].(int) != 2 {
			t.Fatalf("card counts must be unchanged, got %v", entry["cards"])
		}
	}
}

func TestTurnRotatesAfterDelay(t *testing.T) {
	room, scheduler, rec, _ := newTestRoom(t, testSettings())
	room.AddPlayer("b", "Ben", "")
	if err := room.Start("a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	scheduler.Advance(5 * time.Second)

	actor := currentPlayer(room)
	setTimeline(room, actor, 1990)
	forceCard(room, 2000)
	if ok, err := room.PlaceCard(actor, 1); err != nil || !ok {
		t.Fatalf("place: ok=%v err=%v", ok, err)
	}
	scheduler.Advance(2 * time.Second)
	if rec.count("turn_started") != 2 {
		t.Fatalf("expected a second turn after the delay, got %d", rec.count("turn_started"))
	}
	if next := currentPlayer(room); next == actor {
		t.Fatalf("turn must rotate to the other player")
	}
}

func TestWinAtTargetLength(t *testing.T) {
	settings := testSettings()
	settings.TargetLength = 2
	room, scheduler, rec, statsStore := newTestRoom(t, settings)
	room.AddPlayer("b", "Ben", "")
	if err := room.Start("a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	scheduler.Advance(5 * time.Second)

	actor := currentPlayer(room)
	setTimeline(room, actor, 1990)
	forceCard(room, 2000)
	if ok, err := room.PlaceCard(actor, 1); err != nil || !ok {
		t.Fatalf("place: ok=%v err=%v", ok, err)
	}
	if room.State() != StateEnded {
		t.Fatalf("reaching the target length must end the game")
	}
	if rec.count("game_ended") != 1 {
		t.Fatalf("expected one game_ended event")
	}
	state := room.StateFor("")
	if state["winnerId"] != actor {
		t.Fatalf("expected winner %s, got %v", actor, state["winnerId"])
	}
	ranking := state["ranking"].([]map[string]any)
	if ranking[0]["playerId"] != actor || ranking[0]["cards"].(int) != 2 {
		t.Fatalf("winner should rank first with 2 cards, got %v", ranking[0])
	}
	if record, _ := statsStore.Get(actor); record.GamesWon != 1 {
		t.Fatalf("winner must be credited a win, got %+v", record)
	}

	// The ended room resets back to the lobby.
	scheduler.Advance(10 * time.Second)
	if room.State() != StateWaiting {
		t.Fatalf("room should reset to waiting, got %s", room.State())
	}
}

func TestDisconnectedStealerIsSkipped(t *testing.T) {
	room, scheduler, rec, _ := newTestRoom(t, testSettings())
	room.AddPlayer("b", "Ben", "")
	room.AddPlayer("c", "Cleo", "")
	if err := room.Start("a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	scheduler.Advance(5 * time.Second)

	actor := currentPlayer(room)
	setTimeline(room, actor, 1990, 2005)
	forceCard(room, 2020)
	if _, err := room.PlaceCard(actor, 0); err != nil {
		t.Fatalf("place: %v", err)
	}
	queue := room.StateFor("")["stealQueue"].([]string)
	room.RemovePlayer(queue[0])
	state := room.StateFor("")
	if state["phase"] != PhaseStealing {
		t.Fatalf("steal should continue with the remaining player")
	}
	if state["stealPlayerId"] != queue[1] {
		t.Fatalf("queue head should advance past the disconnect, got %v", state["stealPlayerId"])
	}
	room.RemovePlayer(queue[1])
	if rec.count("turn_ended") != 1 {
		t.Fatalf("losing every stealer should end the turn")
	}
}
