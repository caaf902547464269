package game

import (
	"time"

	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/deck"
)

// Phase represents the lifecycle phase of a running game.
type Phase string

const (
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Player identifies a seated player. The slice of players passed to the
// engine at game start fixes the turn order for the whole game.
type Player struct {
	ID   string
	Name string
}

// Hand holds the per-player game state. Risk level is monotonic until
// elimination and survives redistribution; elimination is terminal.
type Hand struct {
	Cards             []deck.Card
	RiskLevel         int
	IsEliminated      bool
	IsInactive        bool
	HasPlayedThisTurn bool
	HandVersion       int
}

// GameState holds the per-room mutable round state.
type GameState struct {
	Phase              Phase
	RoundNumber        int
	CurrentIndex       int
	CurrentCardType    deck.CardType
	LastPlayedCards    []deck.Card
	LastPlayerID       string
	PlayedCards        []deck.Card
	TurnTimeLimit      time.Duration
	LastRedistribution time.Time
}

// Config holds the engine timing knobs.
type Config struct {
	// TurnTimeLimit is how long a player has to act before the
	// roulette penalty fires.
	TurnTimeLimit time.Duration
	// ChallengeDelay is the spectator pause between a challenge
	// resolution broadcast and the next round.
	ChallengeDelay time.Duration
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		TurnTimeLimit:  30 * time.Second,
		ChallengeDelay: 7 * time.Second,
	}
}

// PlayerSnapshot is the public view of one player's hand state. Cards is
// populated for everyone; the transport layer is responsible for only
// revealing a player's own cards to them.
type PlayerSnapshot struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Cards             []deck.Card `json:"cards,omitempty"`
	CardCount         int         `json:"cardCount"`
	RiskLevel         int         `json:"riskLevel"`
	IsEliminated      bool        `json:"isEliminated"`
	IsInactive        bool        `json:"isInactive"`
	HasPlayedThisTurn bool        `json:"hasPlayedThisTurn"`
	HandVersion       int         `json:"handVersion"`
}

// StateSnapshot is the full public game state pushed to observers after
// every state change.
type StateSnapshot struct {
	RoomCode        string           `json:"roomCode"`
	Phase           Phase            `json:"phase"`
	RoundNumber     int              `json:"roundNumber"`
	CurrentPlayerID string           `json:"currentPlayerId"`
	CurrentCardType deck.CardType    `json:"currentCardType"`
	LastPlayerID    string           `json:"lastPlayerId,omitempty"`
	LastPlayedCount int              `json:"lastPlayedCount"`
	PlayedCount     int              `json:"playedCount"`
	DeckRemaining   int              `json:"deckRemaining"`
	TurnTimeLimitMs int              `json:"turnTimeLimitMs"`
	Players         []PlayerSnapshot `json:"players"`
}

// Dealer supplies a fresh shuffled deck and a hand for every requested
// player. It must be callable repeatedly; every call replaces the room's
// remaining deck.
type Dealer interface {
	Deal(playerIDs []string) (map[string][]deck.Card, *deck.Deck)
}

// Notifier delivers engine events to the room's members. Implementations
// must be fire-and-forget and must never call back into the engine.
type Notifier interface {
	NotifyRoomState(snapshot StateSnapshot)
	NotifyPlayer(playerID string, kind EventKind, payload any) error
	NotifyOthers(excludePlayerID string, kind EventKind, payload any)
	NotifyRoom(kind EventKind, payload any)
}

// StatsRecorder persists end-of-game statistics. winnerID is empty on a
// draw.
type StatsRecorder interface {
	RecordGameOutcome(playerIDs []string, winnerID string)
}
