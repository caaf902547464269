package game

import "errors"

// Recoverable game errors. All are surfaced as an error notice to the
// originating actor only; none are fatal to the room.
var (
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrEmptySelection    = errors.New("you must select at least one card to play")
	ErrHandNotFound      = errors.New("no hand registered for player")
	ErrNoPlayableCards   = errors.New("hand appears to be out of sync, no playable cards resolved")
	ErrNoActivePlay      = errors.New("there is no play to challenge")
	ErrPlayerUnavailable = errors.New("player record or connection missing")
	ErrGameNotRunning    = errors.New("game is not running")
	ErrGameStarted       = errors.New("game has already started")
)
