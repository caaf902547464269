package deck

import "github.com/google/uuid"

// CardType represents the rank of a card in the liar's deck.
type CardType string

const (
	King  CardType = "king"
	Queen CardType = "queen"
	Jack  CardType = "jack"
	Ace   CardType = "ace"
)

// ClaimableTypes are the types a round can claim. Aces are wild and are
// never the claimed type.
var ClaimableTypes = []CardType{King, Queen, Jack}

// IsWild returns true for aces, which satisfy any claimed type.
func (t CardType) IsWild() bool {
	return t == Ace
}

// Valid returns true if t is one of the four known card types.
func (t CardType) Valid() bool {
	switch t {
	case King, Queen, Jack, Ace:
		return true
	}
	return false
}

// Card represents a single card. The ID is opaque and unique per card;
// the type is carried on the struct, never encoded into the id.
type Card struct {
	ID   string   `json:"id"`
	Type CardType `json:"type"`
}

// NewCard creates a card of the given type with a fresh unique id.
func NewCard(t CardType) Card {
	return Card{ID: uuid.NewString(), Type: t}
}

// String returns the card's type, e.g. "king".
func (c Card) String() string {
	return string(c.Type)
}

// Satisfies returns true if the card counts as the claimed type,
// either by matching it or by being wild.
func (c Card) Satisfies(claimed CardType) bool {
	return c.Type == claimed || c.Type.IsWild()
}
