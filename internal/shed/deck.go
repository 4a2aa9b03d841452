// Package shed implements the card-shedding room engine: players race to
// empty their hands onto a discard pile under special-card effects, with
// optional bot seats filling out the table.
package shed

import (
	"fmt"
	"math/rand"
)

const (
	Hearts   = "hearts"
	Diamonds = "diamonds"
	Clubs    = "clubs"
	Spades   = "spades"
)

const RankJoker = "joker"

var suits = []string{Hearts, Diamonds, Clubs, Spades}
var ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

type Card struct {
	ID   string `json:"id"`
	Rank string `json:"rank"`
	Suit string `json:"suit,omitempty"` // empty for jokers
}

// IsSpecial reports whether the card carries a play effect: draw-two, play
// again, skip, wild, reverse, or the joker's draw-five.
func (c Card) IsSpecial() bool {
	switch c.Rank {
	case "2", "7", "8", "J", "A", RankJoker:
		return true
	}
	return false
}

// deckSize is the standard 52 plus two jokers.
const deckSize = 54

// NewDeck builds the 54-card deck: the standard 52 plus two jokers.
func NewDeck() []Card {
	deck := make([]Card, 0, deckSize)
	for _, suit := range suits {
		for _, rank := range ranks {
			deck = append(deck, Card{ID: suit + "-" + rank, Rank: rank, Suit: suit})
		}
	}
	deck = append(deck, Card{ID: "joker-1", Rank: RankJoker}, Card{ID: "joker-2", Rank: RankJoker})
	return deck
}

func shuffle(deck []Card) {
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

// openingDiscard pops the first discard card, redrawing (card reshuffled
// back in) until a non-special card comes up, so the opening board carries
// no pending effect. Attempts are capped at the deck size in case the
// remaining deck holds nothing but specials.
func openingDiscard(deck []Card) ([]Card, Card) {
	for i := 0; i < len(deck); i++ {
		card := deck[len(deck)-1]
		deck = deck[:len(deck)-1]
		if !card.IsSpecial() {
			return deck, card
		}
		deck = append(deck, card)
		shuffle(deck)
	}
	card := deck[len(deck)-1]
	return deck[:len(deck)-1], card
}

func removeCard(hand []Card, id string) ([]Card, Card, bool) {
	for i, card := range hand {
		if card.ID == id {
			out := append(append([]Card(nil), hand[:i]...), hand[i+1:]...)
			return out, card, true
		}
	}
	return hand, Card{}, false
}

func (c Card) String() string {
	if c.Rank == RankJoker {
		return "joker"
	}
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}
