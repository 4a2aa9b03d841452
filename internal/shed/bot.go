package shed

import "math/rand"

// specialPreferChance is the probability a bot discards a special card when
// it holds one.
const specialPreferChance = 0.7

// botActLocked plays one move for the bot at the current seat: stack onto a
// pending obligation when possible, otherwise prefer specials, otherwise a
// uniformly random legal card, otherwise draw. Runs under the room lock from
// the bot timer.
func (r *Room) botActLocked() {
	bot := r.currentPlayerLocked()
	if bot == nil || !bot.IsBot {
		return
	}
	card, ok := r.botPickLocked(bot)
	if !ok {
		if err := r.drawForBotLocked(bot); err != nil {
			// Both piles exhausted; nothing a bot can do but yield the turn.
			r.pendingDraw = 0
			r.advanceTurnLocked(1)
			r.afterTurnChangeLocked()
		}
		return
	}
	suit := ""
	if card.Rank == "J" {
		suit = botSuit(bot.Hand, card)
	}
	_ = r.applyPlayLocked(bot, card.ID, suit)
}

func (r *Room) botPickLocked(bot *Player) (Card, bool) {
	legal := make([]Card, 0, len(bot.Hand))
	specials := make([]Card, 0, len(bot.Hand))
	for _, card := range bot.Hand {
		if !r.canPlayLocked(card) {
			continue
		}
		legal = append(legal, card)
		if card.IsSpecial() {
			specials = append(specials, card)
		}
	}
	if len(legal) == 0 {
		return Card{}, false
	}
	if len(specials) > 0 && rand.Float64() < specialPreferChance {
		return specials[rand.Intn(len(specials))], true
	}
	return legal[rand.Intn(len(legal))], true
}

// botSuit picks the suit the bot holds the most of, for a Jack nomination.
func botSuit(hand []Card, played Card) string {
	counts := make(map[string]int, 4)
	for _, card := range hand {
		if card.ID == played.ID || card.Suit == "" {
			continue
		}
		counts[card.Suit]++
	}
	best := suits[rand.Intn(len(suits))]
	bestCount := -1
	for _, suit := range suits {
		if counts[suit] > bestCount {
			best = suit
			bestCount = counts[suit]
		}
	}
	return best
}

func (r *Room) drawForBotLocked(bot *Player) error {
	count := 1
	if r.pendingDraw > 0 {
		count = r.pendingDraw
	}
	drawn, err := r.drawLocked(count)
	if err != nil {
		return err
	}
	bot.Hand = append(bot.Hand, drawn...)
	bot.drawsReceived += len(drawn)
	r.pendingDraw = 0
	r.queue("cards_drawn", map[string]any{
		"playerId":  bot.ID,
		"count":     len(drawn),
		"handCount": len(bot.Hand),
	}, "")
	r.advanceTurnLocked(1)
	r.afterTurnChangeLocked()
	return nil
}
