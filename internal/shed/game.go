package shed

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"game-night/internal/turn"
)

// Start begins the game. Host only, waiting phase only, minimum player count
// enforced. Hands are dealt, the opening discard is guaranteed effect-free,
// and the starting seat is chosen at random.
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

	deck := NewDeck()
	if len(r.order)*r.settings.HandSize >= len(deck) {
		return errors.New("not enough cards to deal")
	}
	shuffle(deck)
	for _, id := range r.order {
		player := r.players[id]
		player.Hand = append([]Card(nil), deck[:r.settings.HandSize]...)
		deck = deck[r.settings.HandSize:]
		player.cardsPlayed = 0
		player.specialsPlayed = 0
		player.drawsForced = 0
		player.drawsReceived = 0
	}
	deck, opening := openingDiscard(deck)
	r.deck = deck
	r.discard = []Card{opening}
	r.direction = 1
	r.pendingDraw = 0
	r.chosenSuit = ""
	r.winnerID = ""
	r.endReason = ""
	r.turnIndex = rand.Intn(len(r.order))
	r.gen++
	r.state = StatePlaying

	r.queue("game_started", map[string]any{
		"order":         append([]string(nil), r.order...),
		"startPlayerId": r.order[r.turnIndex],
		"topCard":       r.topCardLocked(),
	}, "")
	r.afterTurnChangeLocked()
	return nil
}

// PlayCard plays one card from the caller's hand onto the discard pile.
// A Jack must come with a suit nomination; without one the whole play is
// rolled back, hand and counters included.
func (r *Room) PlayCard(playerID, cardID, nominatedSuit string) error {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if r.state != StatePlaying {
		return errors.New("game not in progress")
	}
	if playerID != r.currentPlayerIDLocked() {
		return errors.New("not your turn")
	}
	return r.applyPlayLocked(r.players[playerID], cardID, nominatedSuit)
}

func (r *Room) applyPlayLocked(player *Player, cardID, nominatedSuit string) error {
	hand, card, ok := removeCard(player.Hand, cardID)
	if !ok {
		return errors.New("card not in hand")
	}
	if !r.canPlayLocked(card) {
		return errors.New("card cannot be played")
	}

	player.Hand = hand
	r.discard = append(r.discard, card)
	player.cardsPlayed++
	if card.IsSpecial() {
		player.specialsPlayed++
	}

	if card.Rank == "J" && !validSuit(nominatedSuit) {
		// Roll the play back in full: card returned, pile popped,
		// counters decremented.
		r.discard = r.discard[:len(r.discard)-1]
		player.Hand = append(player.Hand, card)
		player.cardsPlayed--
		player.specialsPlayed--
		return errors.New("a jack requires a suit nomination")
	}

	r.chosenSuit = ""
	advance := 1
	switch card.Rank {
	case "2":
		r.pendingDraw += 2
		player.drawsForced += 2
	case RankJoker:
		r.pendingDraw += 5
		player.drawsForced += 5
	case "7":
		advance = 0 // play again
	case "8":
		advance = 2 // next player skipped
	case "J":
		r.chosenSuit = nominatedSuit
	case "A":
		r.direction = turn.Reverse(r.direction)
	}

	r.queue("card_played", map[string]any{
		"playerId":    player.ID,
		"card":        card,
		"chosenSuit":  r.chosenSuit,
		"pendingDraw": r.pendingDraw,
		"direction":   r.direction,
		"handCount":   len(player.Hand),
	}, "")

	if len(player.Hand) == 0 {
		r.winnerID = player.ID
		r.endGameLocked("completed")
		return nil
	}
	r.advanceTurnLocked(advance)
	r.afterTurnChangeLocked()
	return nil
}

// DrawCard takes the obligated cards (the accumulated pending total, or one)
// from the deck. Drawing always ends the turn and clears the obligation.
func (r *Room) DrawCard(playerID string) error {
	r.mu.Lock()
	defer r.dispatch()
	defer r.mu.Unlock()
	r.touchLocked()

	if r.state != StatePlaying {
		return errors.New("game not in progress")
	}
	if playerID != r.currentPlayerIDLocked() {
		return errors.New("not your turn")
	}
	count := 1
	if r.pendingDraw > 0 {
		count = r.pendingDraw
	}
	player := r.players[playerID]
	drawn, err := r.drawLocked(count)
	if err != nil {
		return err
	}
	player.Hand = append(player.Hand, drawn...)
	player.drawsReceived += len(drawn)
	r.pendingDraw = 0

	r.queue("cards_drawn", map[string]any{
		"playerId":  playerID,
		"count":     len(drawn),
		"handCount": len(player.Hand),
	}, "")
	r.advanceTurnLocked(1)
	r.afterTurnChangeLocked()
	return nil
}

// drawLocked moves count cards off the deck, reshuffling the discard pile
// (minus its top card) back in when the deck runs dry. Exhausting both is an
// explicit error rather than a stall.
func (r *Room) drawLocked(count int) ([]Card, error) {
	drawn := make([]Card, 0, count)
	for len(drawn) < count {
		if len(r.deck) == 0 {
			if len(r.discard) <= 1 {
				return nil, errors.New("no cards left to draw")
			}
			top := r.discard[len(r.discard)-1]
			r.deck = append(r.deck, r.discard[:len(r.discard)-1]...)
			r.discard = []Card{top}
			shuffle(r.deck)
		}
		drawn = append(drawn, r.deck[len(r.deck)-1])
		r.deck = r.deck[:len(r.deck)-1]
	}
	return drawn, nil
}

// canPlayLocked is the legality rule. Under a pending draw obligation only
// stacking cards are legal: a joker on any pending pile, a 2 only when the
// pile's top is a 2 or a joker. Otherwise jokers and Jacks are always legal,
// and any other card must match the active suit or the top card's rank.
func (r *Room) canPlayLocked(card Card) bool {
	top := r.topCardLocked()
	if r.pendingDraw > 0 {
		if card.Rank == RankJoker {
			return true
		}
		if card.Rank == "2" {
			return top.Rank == "2" || top.Rank == RankJoker
		}
		return false
	}
	if card.Rank == RankJoker || card.Rank == "J" {
		return true
	}
	active := top.Suit
	if r.chosenSuit != "" {
		active = r.chosenSuit
	}
	return card.Suit == active || card.Rank == top.Rank
}

func (r *Room) advanceTurnLocked(steps int) {
	if steps == 0 || len(r.order) == 0 {
		return
	}
	connected := make([]bool, len(r.order))
	for i, id := range r.order {
		connected[i] = r.players[id].Connected
	}
	index := r.turnIndex
	for i := 0; i < steps; i++ {
		index = turn.Next(connected, index, r.direction)
		if index < 0 {
			return
		}
	}
	r.turnIndex = index
}

// afterTurnChangeLocked announces the new turn and, when the seat belongs to
// a bot, arms its delayed move.
func (r *Room) afterTurnChangeLocked() {
	if r.state != StatePlaying {
		return
	}
	current := r.currentPlayerLocked()
	if current == nil {
		return
	}
	r.gen++
	r.queue("turn_changed", map[string]any{
		"playerId":    current.ID,
		"pendingDraw": r.pendingDraw,
		"chosenSuit":  r.chosenSuit,
		"topCard":     r.topCardLocked(),
	}, "")
	if current.IsBot {
		gen := r.gen
		r.armLocked("bot", time.Duration(r.settings.BotDelaySeconds)*time.Second, r.timerFired(gen, StatePlaying, func() {
			r.botActLocked()
		}))
	}
}

func (r *Room) endGameLocked(reason string) {
	r.cancelAllTimersLocked()
	r.gen++
	r.state = StateFinished
	r.endReason = reason
	r.touchLocked()

	if r.stats != nil {
		for _, player := range r.players {
			if player.IsBot {
				continue
			}
			r.stats.RecordGame(player.ID, player.Name, player.ID == r.winnerID)
			r.stats.Add(player.ID, player.Name, "cardsPlayed", player.cardsPlayed)
			r.stats.Add(player.ID, player.Name, "specialsPlayed", player.specialsPlayed)
			r.stats.Add(player.ID, player.Name, "drawsForced", player.drawsForced)
			r.stats.Add(player.ID, player.Name, "drawsReceived", player.drawsReceived)
		}
	}
	r.queue("game_ended", map[string]any{
		"reason":   reason,
		"winnerId": r.winnerID,
		"ranking":  r.rankingLocked(),
	}, "")

	gen := r.gen
	r.armLocked("reset", time.Duration(r.settings.EndedResetSeconds)*time.Second, r.timerFired(gen, StateFinished, func() {
		r.resetLocked()
	}))
}

// resetLocked returns a finished room to the lobby: hands cleared,
// disconnected players dropped, spectators promoted into open seats.
func (r *Room) resetLocked() {
	r.gen++
	r.state = StateWaiting
	r.deck = nil
	r.discard = nil
	r.pendingDraw = 0
	r.chosenSuit = ""
	r.direction = 1
	r.turnIndex = 0
	r.winnerID = ""

	for _, id := range append([]string(nil), r.order...) {
		player := r.players[id]
		player.Hand = nil
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
		r.addPlayerLocked(spectator.ID, spectator.Name, spectator.Avatar, false)
		r.queue("player_joined", map[string]any{"playerId": spectator.ID, "name": spectator.Name, "promoted": true}, "")
	}
	r.queue("room_reset", map[string]any{}, "")
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
		entries = append(entries, ranked{id: player.ID, name: player.Name, cards: len(player.Hand)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].cards < entries[j].cards
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

func (r *Room) topCardLocked() Card {
	if len(r.discard) == 0 {
		return Card{}
	}
	return r.discard[len(r.discard)-1]
}

func (r *Room) currentPlayerIDLocked() string {
	if r.turnIndex < 0 || r.turnIndex >= len(r.order) {
		return ""
	}
	return r.order[r.turnIndex]
}

func (r *Room) currentPlayerLocked() *Player {
	id := r.currentPlayerIDLocked()
	if id == "" {
		return nil
	}
	return r.players[id]
}

func validSuit(suit string) bool {
	switch suit {
	case Hearts, Diamonds, Clubs, Spades:
		return true
	}
	return false
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

func (r *Room) cancelAllTimersLocked() {
	for name, cancel := range r.timers {
		cancel()
		delete(r.timers, name)
	}
}
