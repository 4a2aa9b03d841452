package drawguess

import (
	"errors"
	"math/rand"
	"sort"
	"time"
)

// Start begins the game. Host only, waiting phase only, minimum player count
// enforced. Scores reset; the first drawer is the first joined player.
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
	for _, player := range r.players {
		player.Score = 0
		player.guessAttempts = 0
		player.correctGuesses = 0
		player.roundsDrawn = 0
		player.roundsGuessed = 0
	}
	r.round = 1
	r.drawerIndex = 0
	r.endReason = ""
	r.queue("game_started", map[string]any{"rounds": r.settings.Rounds}, "")
	r.startChoosingLocked()
	return nil
}

func (r *Room) startChoosingLocked() {
	// The rotation may point at a disconnected player; consume turns until a
	// connected drawer is found or the rotation exhausts the game.
	for i := 0; i <= len(r.order); i++ {
		drawer := r.currentDrawerLocked()
		if drawer != nil && drawer.Connected {
			break
		}
		if r.advanceDrawerLocked() {
			r.endGameLocked("completed")
			return
		}
	}
	drawer := r.currentDrawerLocked()
	if drawer == nil || !drawer.Connected {
		r.endGameLocked("not_enough_players")
		return
	}

	r.gen++
	r.state = StateChoosing
	r.currentWord = ""
	r.wordChoices = r.pickChoicesLocked()
	if len(r.wordChoices) == 0 {
		// A drained pool would otherwise leave the phase with no timer armed.
		r.endGameLocked("no_words")
		return
	}
	r.queue("choosing_started", map[string]any{
		"drawerId":      drawer.ID,
		"drawerName":    drawer.Name,
		"round":         r.round,
		"totalRounds":   r.settings.Rounds,
		"chooseSeconds": r.settings.ChooseSeconds,
	}, "")

	gen := r.gen
	r.armLocked("choose", time.Duration(r.settings.ChooseSeconds)*time.Second, r.timerFired(gen, StateChoosing, func() {
		// Timeout auto-selects the first offered word.
		if len(r.wordChoices) > 0 {
			r.beginRoundLocked(r.wordChoices[0])
		}
	}))
}

// pickChoicesLocked offers exactly three distinct words, with a configured
// chance of substituting one with a room custom word.
func (r *Room) pickChoicesLocked() []string {
	choices := r.words.Pick(r.settings.Language, r.settings.Difficulty, 3, r.usedWords)
	if len(r.settings.CustomWords) > 0 && rand.Float64() < r.settings.CustomWordChance {
		custom := r.settings.CustomWords[rand.Intn(len(r.settings.CustomWords))]
		if !r.usedWords[custom] && !contains(choices, custom) && len(choices) > 0 {
			choices[rand.Intn(len(choices))] = custom
		}
	}
	return choices
}

// SelectWord is the drawer picking one of the offered words.
func (r *Room) SelectWord(playerID, word string) error {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if r.state != StateChoosing {
		return errors.New("not choosing a word")
	}
	if playerID != r.currentDrawerIDLocked() {
		return errors.New("only the drawer can choose the word")
	}
	if !contains(r.wordChoices, word) {
		return errors.New("word not available")
	}
	r.beginRoundLocked(word)
	return nil
}

func (r *Room) beginRoundLocked(word string) {
	r.cancelTimerLocked("choose")
	r.gen++
	r.state = StatePlaying
	r.currentWord = word
	r.usedWords[word] = true
	r.wordChoices = nil
	r.revealed = make(map[int]bool)
	r.correct = nil
	r.strokes = nil
	r.redoStack = nil
	r.roundStart = time.Now().UTC()

	drawerID := r.currentDrawerIDLocked()
	r.queue("round_started", map[string]any{
		"drawerId":    drawerID,
		"hint":        r.maskedWordLocked(),
		"round":       r.round,
		"totalRounds": r.settings.Rounds,
		"drawSeconds": r.settings.DrawSeconds,
	}, "")

	gen := r.gen
	draw := time.Duration(r.settings.DrawSeconds) * time.Second
	r.armLocked("round", draw, r.timerFired(gen, StatePlaying, func() {
		r.endRoundLocked("timeout")
	}))
	// Hints reveal at quarter offsets of the round.
	for step := 1; step <= 3; step++ {
		step := step
		name := hintTimerName(step)
		r.armLocked(name, draw*time.Duration(step)/4, r.timerFired(gen, StatePlaying, func() {
			r.revealHintLocked(step)
		}))
	}
}

// revealHintLocked grows the revealed-letter set to the step's target count.
// Revealed positions persist; the full word is never given away by hints.
func (r *Room) revealHintLocked(step int) {
	letters := make([]int, 0, len(r.currentWord))
	for i, ch := range r.currentWord {
		if ch != ' ' {
			letters = append(letters, i)
		}
	}
	if len(letters) == 0 {
		return
	}
	target := step * len(letters) / 4
	if target > len(letters)-1 {
		target = len(letters) - 1
	}
	hidden := make([]int, 0, len(letters))
	revealedCount := 0
	for _, pos := range letters {
		if r.revealed[pos] {
			revealedCount++
		} else {
			hidden = append(hidden, pos)
		}
	}
	for revealedCount < target && len(hidden) > 0 {
		i := rand.Intn(len(hidden))
		r.revealed[hidden[i]] = true
		hidden[i] = hidden[len(hidden)-1]
		hidden = hidden[:len(hidden)-1]
		revealedCount++
	}
	r.queue("hint_updated", map[string]any{"hint": r.maskedWordLocked()}, "")
}

// maskedWordLocked renders the hint: underscores for hidden letters, spaces
// preserved, revealed letters shown.
func (r *Room) maskedWordLocked() string {
	masked := make([]rune, 0, len(r.currentWord))
	for i, ch := range r.currentWord {
		switch {
		case ch == ' ':
			masked = append(masked, ' ')
		case r.revealed[i]:
			masked = append(masked, ch)
		default:
			masked = append(masked, '_')
		}
	}
	return string(masked)
}

func (r *Room) endRoundLocked(reason string) {
	if r.state != StateChoosing && r.state != StatePlaying {
		return
	}
	wasPlaying := r.state == StatePlaying
	r.cancelTimerLocked("choose", "round", "hint1", "hint2", "hint3")
	r.gen++
	r.state = StateBetweenRounds

	if wasPlaying {
		if drawer := r.currentDrawerLocked(); drawer != nil {
			drawer.roundsDrawn++
			if len(r.correct) > 0 {
				drawer.roundsGuessed++
			}
		}
	}
	r.queue("round_ended", map[string]any{
		"word":   r.currentWord,
		"reason": reason,
		"scores": r.scoresLocked(),
	}, "")

	if r.advanceDrawerLocked() {
		gen := r.gen
		r.armLocked("next", 3*time.Second, r.timerFired(gen, StateBetweenRounds, func() {
			r.endGameLocked("completed")
		}))
		return
	}
	if r.connectedCountLocked() < r.settings.MinPlayers {
		r.endGameLocked("not_enough_players")
		return
	}
	gen := r.gen
	r.armLocked("next", time.Duration(r.settings.BetweenRoundsSeconds)*time.Second, r.timerFired(gen, StateBetweenRounds, func() {
		r.startChoosingLocked()
	}))
}

// advanceDrawerLocked rotates the drawer, wrapping into the next round.
// Reports whether the rotation has exhausted the configured rounds.
func (r *Room) advanceDrawerLocked() bool {
	r.drawerIndex++
	if r.drawerIndex >= len(r.order) {
		r.drawerIndex = 0
		r.round++
	}
	return r.round > r.settings.Rounds
}

func (r *Room) endGameLocked(reason string) {
	r.cancelAllTimersLocked()
	r.gen++
	r.state = StateEnded
	r.endReason = reason
	r.touchLocked()

	ranking := r.rankingLocked()
	topScore := 0
	if len(ranking) > 0 {
		topScore = ranking[0].Score
	}
	if r.stats != nil {
		for _, player := range r.players {
			won := player.Score == topScore && topScore > 0
			r.stats.RecordGame(player.ID, player.Name, won)
			r.stats.Add(player.ID, player.Name, "correctGuesses", player.correctGuesses)
			r.stats.Add(player.ID, player.Name, "guessAttempts", player.guessAttempts)
			r.stats.Add(player.ID, player.Name, "roundsDrawn", player.roundsDrawn)
			r.stats.Add(player.ID, player.Name, "roundsGuessed", player.roundsGuessed)
		}
	}
	r.queue("game_ended", map[string]any{
		"reason":  reason,
		"ranking": rankingPayload(ranking),
	}, "")

	gen := r.gen
	r.armLocked("reset", time.Duration(r.settings.EndedResetSeconds)*time.Second, r.timerFired(gen, StateEnded, func() {
		r.resetLocked()
	}))
}

// resetLocked returns an ended room to the lobby: scores cleared,
// disconnected players dropped, spectators promoted into open seats.
func (r *Room) resetLocked() {
	r.gen++
	r.state = StateWaiting
	r.round = 0
	r.drawerIndex = 0
	r.currentWord = ""
	r.wordChoices = nil
	r.correct = nil
	r.strokes = nil
	r.redoStack = nil
	r.revealed = make(map[int]bool)

	for _, id := range append([]string(nil), r.order...) {
		player := r.players[id]
		player.Score = 0
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

type rankedPlayer struct {
	ID    string
	Name  string
	Score int
}

func (r *Room) rankingLocked() []rankedPlayer {
	ranking := make([]rankedPlayer, 0, len(r.order))
	for _, id := range r.order {
		player := r.players[id]
		ranking = append(ranking, rankedPlayer{ID: player.ID, Name: player.Name, Score: player.Score})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score > ranking[j].Score
	})
	return ranking
}

func rankingPayload(ranking []rankedPlayer) []map[string]any {
	payload := make([]map[string]any, 0, len(ranking))
	for place, entry := range ranking {
		payload = append(payload, map[string]any{
			"playerId": entry.ID,
			"name":     entry.Name,
			"score":    entry.Score,
			"place":    place + 1,
		})
	}
	return payload
}

func (r *Room) scoresLocked() map[string]int {
	scores := make(map[string]int, len(r.players))
	for id, player := range r.players {
		scores[id] = player.Score
	}
	return scores
}

func (r *Room) currentDrawerIDLocked() string {
	if r.drawerIndex < 0 || r.drawerIndex >= len(r.order) {
		return ""
	}
	return r.order[r.drawerIndex]
}

func (r *Room) currentDrawerLocked() *Player {
	id := r.currentDrawerIDLocked()
	if id == "" {
		return nil
	}
	return r.players[id]
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

func hintTimerName(step int) string {
	switch step {
	case 1:
		return "hint1"
	case 2:
		return "hint2"
	default:
		return "hint3"
	}
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
