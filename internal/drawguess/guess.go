package drawguess

import (
	"errors"
	"strings"
	"time"
)

// GuessOutcome is the per-guess result. Close is signaled only to the
// guesser; the transport must not broadcast it.
type GuessOutcome struct {
	Correct    bool `json:"correct"`
	Close      bool `json:"close"`
	Score      int  `json:"score,omitempty"`
	First      bool `json:"first,omitempty"`
	RoundEnded bool `json:"roundEnded,omitempty"`
}

// CalculateGuesserScore is the time-decayed guess score: 500 minus 5 per
// elapsed second, floored at 100, plus a 50-point first-guesser bonus.
func CalculateGuesserScore(elapsedSeconds int, first bool) int {
	score := 500 - 5*elapsedSeconds
	if score < 100 {
		score = 100
	}
	if first {
		score += 50
	}
	return score
}

const drawerBonus = 25

// HandleGuess resolves one guess against the current word.
func (r *Room) HandleGuess(playerID, text string) (GuessOutcome, error) {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if r.state != StatePlaying {
		return GuessOutcome{}, errors.New("no round in progress")
	}
	player, ok := r.players[playerID]
	if !ok {
		if _, spectating := r.spectators[playerID]; spectating {
			return GuessOutcome{}, errors.New("spectators cannot guess")
		}
		return GuessOutcome{}, errors.New("player not in room")
	}
	if playerID == r.currentDrawerIDLocked() {
		return GuessOutcome{}, errors.New("the drawer cannot guess")
	}
	if contains(r.correct, playerID) {
		return GuessOutcome{}, errors.New("already guessed correctly")
	}

	guess := normalizeGuess(text)
	word := normalizeGuess(r.currentWord)
	player.guessAttempts++

	if guess != word {
		r.queue("guess", map[string]any{"playerId": playerID, "name": player.Name, "text": text}, "")
		return GuessOutcome{Close: isCloseGuess(guess, word)}, nil
	}

	first := len(r.correct) == 0
	elapsed := int(time.Now().UTC().Sub(r.roundStart).Seconds())
	score := CalculateGuesserScore(elapsed, first)
	player.Score += score
	player.correctGuesses++
	if drawer := r.currentDrawerLocked(); drawer != nil {
		drawer.Score += drawerBonus
	}
	r.correct = append(r.correct, playerID)
	r.queue("guess_correct", map[string]any{
		"playerId": playerID,
		"name":     player.Name,
		"score":    score,
		"first":    first,
	}, "")

	outcome := GuessOutcome{Correct: true, Score: score, First: first}
	if r.allGuessedLocked() {
		r.endRoundLocked("all_guessed")
		outcome.RoundEnded = true
	}
	return outcome, nil
}

// allGuessedLocked reports whether every connected non-drawer has guessed
// correctly this round.
func (r *Room) allGuessedLocked() bool {
	drawerID := r.currentDrawerIDLocked()
	any := false
	for id, player := range r.players {
		if id == drawerID || !player.Connected {
			continue
		}
		any = true
		if !contains(r.correct, id) {
			return false
		}
	}
	return any
}

func normalizeGuess(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// isCloseGuess classifies a near-miss: normalized length at least 3, length
// difference at most 2, and at most 2 per-position character differences.
// This is deliberately not edit distance; an insertion at the front shifts
// every later position and usually pushes the count past the bound.
func isCloseGuess(guess, word string) bool {
	if len([]rune(guess)) < 3 {
		return false
	}
	guessRunes := []rune(guess)
	wordRunes := []rune(word)
	lenDiff := len(guessRunes) - len(wordRunes)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > 2 {
		return false
	}
	min := len(guessRunes)
	if len(wordRunes) < min {
		min = len(wordRunes)
	}
	diff := 0
	for i := 0; i < min; i++ {
		if guessRunes[i] != wordRunes[i] {
			diff++
			if diff > 2 {
				return false
			}
		}
	}
	return true
}
