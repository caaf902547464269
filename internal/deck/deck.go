package deck

import (
	rand "math/rand/v2"
)

const (
	// Counts for a standard liar's deck: 6 of each claimable type plus
	// 2 wild aces, 20 cards total.
	perTypeCount = 6
	aceCount     = 2
)

// Deck represents a shuffled liar's deck.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a fresh, shuffled liar's deck using the provided random
// source. Every card gets a new unique id.
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, perTypeCount*len(ClaimableTypes)+aceCount),
		rng:   rng,
	}

	for _, t := range ClaimableTypes {
		for i := 0; i < perTypeCount; i++ {
			d.cards = append(d.cards, NewCard(t))
		}
	}
	for i := 0; i < aceCount; i++ {
		d.cards = append(d.cards, NewCard(Ace))
	}

	d.Shuffle()
	return d
}

// Shuffle randomizes the order of the remaining cards.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal removes and returns the top card from the deck.
func (d *Deck) Deal() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// DealN deals up to n cards from the deck.
func (d *Deck) DealN(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	cards := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		if card, ok := d.Deal(); ok {
			cards = append(cards, card)
		}
	}
	return cards
}

// CardsRemaining returns the number of cards left in the deck.
func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}

// IsEmpty returns true if the deck has no cards left.
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}
