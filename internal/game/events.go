package game

import "github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/deck"

// EventKind identifies an engine-emitted event. Payload shapes are fixed
// by the structs below; the transport layer is agnostic to their content.
type EventKind string

const (
	EventYourTurn         EventKind = "YOUR_TURN"
	EventPlayerTurn       EventKind = "PLAYER_TURN"
	EventChallengeResult  EventKind = "CHALLENGE_RESULT"
	EventPlayerEliminated EventKind = "PLAYER_ELIMINATED"
	EventGameFinished     EventKind = "GAME_FINISHED"
)

// YourTurnPayload is sent to the active player when their turn starts.
type YourTurnPayload struct {
	Message         string        `json:"message"`
	TimeLimitMs     int           `json:"timeLimit"`
	CurrentCardType deck.CardType `json:"currentCardType"`
	CanChallenge    bool          `json:"canChallenge"`
}

// PlayerTurnPayload is sent to everyone else when a turn starts.
type PlayerTurnPayload struct {
	CurrentPlayerID string        `json:"currentPlayerId"`
	PlayerName      string        `json:"playerName"`
	Message         string        `json:"message"`
	CurrentCardType deck.CardType `json:"currentCardType"`
}

// ChallengeResultPayload broadcasts the full resolution of a bluff call.
type ChallengeResultPayload struct {
	WasBluff           bool        `json:"wasLie"`
	PunishedPlayerID   string      `json:"punishedPlayerId"`
	PunishedPlayerName string      `json:"punishedPlayerName"`
	TargetName         string      `json:"targetName"`
	RevealedCards      []deck.Card `json:"revealedCards"`
	ValidCards         []deck.Card `json:"validCards"`
	InvalidCards       []deck.Card `json:"invalidCards"`
	Message            string      `json:"message"`
	IsEliminated       bool        `json:"isEliminated"`
	NewRiskLevel       int         `json:"newRiskLevel"`
}

// PlayerEliminatedPayload announces an elimination by turn timeout.
type PlayerEliminatedPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
}

// GameFinishedPayload announces the end of the game. WinnerID is empty
// on a draw.
type GameFinishedPayload struct {
	WinnerID   string `json:"winnerId,omitempty"`
	WinnerName string `json:"winnerName"`
	Message    string `json:"message"`
}
