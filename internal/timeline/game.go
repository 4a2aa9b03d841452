package timeline

import (
	"errors"
	"math/rand"
	"sort"
	"time"
)

// Start begins the game. Host only, waiting phase only, minimum player count
// enforced. The turn order is shuffled once and stays fixed for the game;
// every player is dealt one starter card to anchor their timeline.
func (r *Room) Start(playerID string) error {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if playerID != r.hostID {
		return errors.New("only the host can start the game")
	}
	if r.state != StateWaiting {
		return errors.New("game already in progress")
	}
	if r.connectedCountLocked() < r.settings.MinPlayers {
		return errors.New("not enough players")
	}

	r.turnOrder = append([]string(nil), r.order...)
	rand.Shuffle(len(r.turnOrder), func(i, j int) {
		r.turnOrder[i], r.turnOrder[j] = r.turnOrder[j], r.turnOrder[i]
	})
	r.turnIndex = 0
	r.endReason = ""
	r.winnerID = ""
	for _, id := range r.turnOrder {
		player := r.players[id]
		player.Timeline = nil
		if starter, ok := r.songs.Draw(r.usedSongs); ok {
			player.Timeline = append(player.Timeline, starter)
		}
	}
	r.state = StatePlaying
	r.queue("game_started", map[string]any{
		"turnOrder":    append([]string(nil), r.turnOrder...),
		"targetLength": r.settings.TargetLength,
	}, "")
	r.startTurnLocked()
	return nil
}

func (r *Room) startTurnLocked() {
	// The rotation may point at a disconnected player; skip ahead until a
	// connected one is found.
	for i := 0; i < len(r.turnOrder); i++ {
		if player := r.currentPlayerLocked(); player != nil && player.Connected {
			break
		}
		r.turnIndex = (r.turnIndex + 1) % len(r.turnOrder)
	}
	player := r.currentPlayerLocked()
	if player == nil || !player.Connected {
		r.endGameLocked("not_enough_players")
		return
	}

	song, ok := r.songs.Draw(r.usedSongs)
	if !ok {
		r.endGameLocked("no_songs")
		return
	}
	r.gen++
	r.currentSong = song
	r.hasSong = true
	r.phase = PhaseListening
	r.stealQueue = nil
	r.queue("turn_started", map[string]any{
		"playerId":      player.ID,
		"playerName":    player.Name,
		"songId":        song.ID,
		"preview":       song.Preview,
		"listenSeconds": r.settings.ListenSeconds,
	}, "")

	gen := r.gen
	r.armLocked("listen", time.Duration(r.settings.ListenSeconds)*time.Second, r.timerFired(gen, StatePlaying, func() {
		r.beginPlacingLocked()
	}))
}

func (r *Room) beginPlacingLocked() {
	r.cancelTimerLocked("listen")
	r.gen++
	r.phase = PhasePlacing
	r.queue("placing_started", map[string]any{"playerId": r.currentPlayerIDLocked()}, "")
}

// StartPlacing lets the current player cut the listening phase short.
func (r *Room) StartPlacing(playerID string) error {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if r.state != StatePlaying || r.phase != PhaseListening {
		return errors.New("not listening")
	}
	if playerID != r.currentPlayerIDLocked() {
		return errors.New("not your turn")
	}
	r.beginPlacingLocked()
	return nil
}

// PlaceCard attempts to slot the turn's song into the caller's own timeline
// at the given insertion index. During the placing phase only the turn's
// player may act; during the stealing phase only the head of the steal queue
// may.
func (r *Room) PlaceCard(playerID string, index int) (bool, error) {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if r.state != StatePlaying || !r.hasSong {
		return false, errors.New("no card in play")
	}
	stealing := false
	switch r.phase {
	case PhasePlacing:
		if playerID != r.currentPlayerIDLocked() {
			return false, errors.New("not your turn")
		}
	case PhaseStealing:
		if len(r.stealQueue) == 0 || r.stealQueue[0] != playerID {
			return false, errors.New("not your steal attempt")
		}
		stealing = true
	default:
		return false, errors.New("placement not open")
	}
	player, ok := r.players[playerID]
	if !ok {
		return false, errors.New("player not found")
	}
	if index < 0 || index > len(player.Timeline) {
		return false, errors.New("invalid position")
	}

	correct := checkPlacement(player.Timeline, index, r.currentSong.Year)
	r.recordAttemptLocked(player, correct, stealing)

	if correct {
		player.Timeline = insertSong(player.Timeline, index, r.currentSong)
		r.queue("card_placed", map[string]any{
			"playerId": playerID,
			"correct":  true,
			"steal":    stealing,
			"song":     songPayload(r.currentSong),
			"cards":    len(player.Timeline),
		}, "")
		if len(player.Timeline) >= r.settings.TargetLength {
			r.winnerID = playerID
			r.endGameLocked("completed")
			return true, nil
		}
		r.finishTurnLocked("placed")
		return true, nil
	}

	r.queue("card_placed", map[string]any{
		"playerId": playerID,
		"correct":  false,
		"steal":    stealing,
		"year":     r.currentSong.Year,
	}, "")
	if stealing {
		r.stealQueue = r.stealQueue[1:]
		r.advanceStealLocked(true)
		return false, nil
	}
	r.openStealLocked()
	return false, nil
}

// PassSteal declines the caller's steal attempt and hands the card to the
// next player in the queue.
func (r *Room) PassSteal(playerID string) error {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if r.state != StatePlaying || r.phase != PhaseStealing {
		return errors.New("no steal in progress")
	}
	if len(r.stealQueue) == 0 || r.stealQueue[0] != playerID {
		return errors.New("not your steal attempt")
	}
	r.stealQueue = r.stealQueue[1:]
	r.queue("steal_passed", map[string]any{"playerId": playerID}, "")
	r.advanceStealLocked(true)
	return nil
}

// openStealLocked builds the steal queue from the other connected players in
// turn order, starting after the current player.
func (r *Room) openStealLocked() {
	r.stealQueue = nil
	n := len(r.turnOrder)
	for offset := 1; offset < n; offset++ {
		id := r.turnOrder[(r.turnIndex+offset)%n]
		if player, ok := r.players[id]; ok && player.Connected {
			r.stealQueue = append(r.stealQueue, id)
		}
	}
	if len(r.stealQueue) == 0 {
		r.finishTurnLocked("no_stealers")
		return
	}
	r.gen++
	r.phase = PhaseStealing
	r.queue("steal_started", map[string]any{
		"queue":    append([]string(nil), r.stealQueue...),
		"playerId": r.stealQueue[0],
	}, "")
}

func (r *Room) advanceStealLocked(announce bool) {
	if len(r.stealQueue) == 0 {
		r.finishTurnLocked("steals_exhausted")
		return
	}
	if announce {
		r.queue("steal_turn", map[string]any{"playerId": r.stealQueue[0]}, "")
	}
}

// finishTurnLocked reveals the song, advances the rotation, and arms the
// delay before the next turn.
func (r *Room) finishTurnLocked(reason string) {
	r.cancelTimerLocked("listen")
	r.gen++
	r.phase = ""
	r.hasSong = false
	r.stealQueue = nil
	r.queue("turn_ended", map[string]any{
		"reason": reason,
		"song":   songPayload(r.currentSong),
		"cards":  r.cardCountsLocked(),
	}, "")
	r.turnIndex = (r.turnIndex + 1) % len(r.turnOrder)

	if r.connectedCountLocked() < r.settings.MinPlayers {
		r.endGameLocked("not_enough_players")
		return
	}
	gen := r.gen
	r.armLocked("next", time.Duration(r.settings.TurnDelaySeconds)*time.Second, r.timerFired(gen, StatePlaying, func() {
		r.startTurnLocked()
	}))
}

// recordAttemptLocked writes the attempt to the persistent counters right
// away rather than at game end, so an aborted game still counts.
func (r *Room) recordAttemptLocked(player *Player, correct, stealing bool) {
	if r.stats == nil {
		return
	}
	r.stats.Add(player.ID, player.Name, "placementAttempts", 1)
	if correct {
		r.stats.Add(player.ID, player.Name, "correctPlacements", 1)
	} else {
		r.stats.Add(player.ID, player.Name, "wrongPlacements", 1)
	}
	if stealing {
		if correct {
			r.stats.Add(player.ID, player.Name, "stealsWon", 1)
		} else {
			r.stats.Add(player.ID, player.Name, "stealsLost", 1)
		}
	}
}

func (r *Room) endGameLocked(reason string) {
	r.cancelAllTimersLocked()
	r.gen++
	r.state = StateEnded
	r.phase = ""
	r.hasSong = false
	r.stealQueue = nil
	r.endReason = reason
	r.touchLocked()

	if r.stats != nil {
		for _, player := range r.players {
			r.stats.RecordGame(player.ID, player.Name, player.ID == r.winnerID)
		}
	}
	r.queue("game_ended", map[string]any{
		"reason":   reason,
		"winnerId": r.winnerID,
		"ranking":  r.rankingLocked(),
	}, "")

	gen := r.gen
	r.armLocked("reset", time.Duration(r.settings.EndedResetSeconds)*time.Second, r.timerFired(gen, StateEnded, func() {
		r.resetLocked()
	}))
}

// resetLocked returns an ended room to the lobby: timelines cleared,
// disconnected players dropped, spectators promoted into open seats.
func (r *Room) resetLocked() {
	r.gen++
	r.state = StateWaiting
	r.phase = ""
	r.turnOrder = nil
	r.turnIndex = 0
	r.winnerID = ""
	r.usedSongs = make(map[string]bool)

	for _, id := range append([]string(nil), r.order...) {
		player := r.players[id]
		player.Timeline = nil
		if !player.Connected {
			delete(r.players, id)
			r.order = removeID(r.order, id)
		}
	}
	if _, ok := r.players[r.hostID]; !ok {
		r.reassignHostLocked()
	}
	for len(r.specOrder) > 0 && len(r.players) < r.settings.MaxPlayers {
		id := r.specOrder[0]
		r.specOrder = r.specOrder[1:]
		spectator := r.spectators[id]
		delete(r.spectators, id)
		if spectator == nil || !spectator.Connected {
			continue
		}
		r.addPlayerLocked(spectator.ID, spectator.Name, spectator.Avatar)
		r.queue("player_joined", map[string]any{"playerId": spectator.ID, "name": spectator.Name, "promoted": true}, "")
	}
	r.queue("room_reset", map[string]any{}, "")
}

// checkPlacement validates an insertion index against the chronological
// neighbors: the year must not precede the card before it nor exceed the
// card after it. A missing neighbor imposes no bound.
func checkPlacement(timeline []Song, index, year int) bool {
	if index < 0 || index > len(timeline) {
		return false
	}
	if index > 0 && timeline[index-1].Year > year {
		return false
	}
	if index < len(timeline) && timeline[index].Year < year {
		return false
	}
	return true
}

// insertSong inserts at index then re-sorts by year. The sort is a
// safety net; a validated insertion is already in order.
func insertSong(timeline []Song, index int, song Song) []Song {
	timeline = append(timeline, Song{})
	copy(timeline[index+1:], timeline[index:])
	timeline[index] = song
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Year < timeline[j].Year
	})
	return timeline
}

func (r *Room) rankingLocked() []map[string]any {
	type ranked struct {
		id    string
		name  string
		cards int
	}
	entries := make([]ranked, 0, len(r.order))
	for _, id := range r.order {
		player := r.players[id]
		entries = append(entries, ranked{id: player.ID, name: player.Name, cards: len(player.Timeline)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].cards > entries[j].cards
	})
	payload := make([]map[string]any, 0, len(entries))
	for place, entry := range entries {
		payload = append(payload, map[string]any{
			"playerId": entry.id,
			"name":     entry.name,
			"cards":    entry.cards,
			"place":    place + 1,
		})
	}
	return payload
}

func (r *Room) cardCountsLocked() map[string]int {
	counts := make(map[string]int, len(r.players))
	for id, player := range r.players {
		counts[id] = len(player.Timeline)
	}
	return counts
}

func (r *Room) currentPlayerIDLocked() string {
	if len(r.turnOrder) == 0 {
		return ""
	}
	return r.turnOrder[r.turnIndex%len(r.turnOrder)]
}

func (r *Room) currentPlayerLocked() *Player {
	id := r.currentPlayerIDLocked()
	if id == "" {
		return nil
	}
	return r.players[id]
}

func songPayload(song Song) map[string]any {
	return map[string]any{
		"id":     song.ID,
		"title":  song.Title,
		"artist": song.Artist,
		"year":   song.Year,
	}
}

// timerFired wraps a timer callback with the stale-fire gate: the room may
// have moved on between scheduling and firing, in which case the callback is
// a silent no-op.
func (r *Room) timerFired(gen int, state string, fn func()) func() {
	return func() {
		r.mu.Lock()
		if r.gen != gen || r.state != state {
			r.mu.Unlock()
			return
		}
		fn()
		r.mu.Unlock()
		r.dispatch()
	}
}

func (r *Room) armLocked(name string, d time.Duration, fn func()) {
	if cancel, ok := r.timers[name]; ok {
		cancel()
	}
	r.timers[name] = r.scheduler.AfterFunc(d, fn)
}

func (r *Room) cancelTimerLocked(names ...string) {
	for _, name := range names {
		if cancel, ok := r.timers[name]; ok {
			cancel()
			delete(r.timers, name)
		}
	}
}

func (r *Room) cancelAllTimersLocked() {
	for name, cancel := range r.timers {
		cancel()
		delete(r.timers, name)
	}
}
