package deck

import (
	rand "math/rand/v2"
)

// Dealer produces fresh shuffled decks and per-player deals. It is safe
// to call repeatedly; every deal builds a new deck so earlier hands never
// share card ids with later ones.
type Dealer struct {
	rng      *rand.Rand
	handSize int
}

// NewDealer creates a dealer that deals handSize cards per player.
func NewDealer(rng *rand.Rand, handSize int) *Dealer {
	return &Dealer{rng: rng, handSize: handSize}
}

// Deal builds a fresh shuffled deck and deals a hand to every given
// player id, in order. It returns the hands and the remaining deck.
func (d *Dealer) Deal(playerIDs []string) (map[string][]Card, *Deck) {
	dk := New(d.rng)
	hands := make(map[string][]Card, len(playerIDs))
	for _, id := range playerIDs {
		hands[id] = dk.DealN(d.handSize)
	}
	return hands, dk
}
