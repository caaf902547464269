package game

import (
	"fmt"
	"sync"

	rand "math/rand/v2"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/deck"
)

// rouletteChambers is the size of the roulette cylinder. A hand with
// riskLevel r survives a spin with probability (chambers-r)/chambers.
const rouletteChambers = 6

// Engine runs a single room's game. All exported methods serialize on an
// internal mutex, so a room is single-threaded while different rooms run
// fully in parallel. Timer callbacks re-acquire the same mutex before
// touching state.
type Engine struct {
	mu sync.Mutex

	roomCode string
	logger   zerolog.Logger
	clock    quartz.Clock
	rng      *rand.Rand
	dealer   Dealer
	notifier Notifier
	stats    StatsRecorder
	config   Config

	// Turn order is fixed at game start; CurrentIndex always indexes
	// this slice, never a live membership collection.
	playerOrder []string
	playerNames map[string]string

	hands map[string]*Hand
	state *GameState
	dk    *deck.Deck

	// At most one turn timer is armed at a time. The generation counter
	// invalidates callbacks that fire after a disarm races the Stop.
	turnTimer      *quartz.Timer
	timerGen       uint64
	challengeTimer *quartz.Timer

	// resolving is true while a challenge resolution waits out the
	// spectator delay; plays and further challenges are rejected until
	// the continuation runs.
	resolving bool

	// cardTypes indexes every card id dealt in this game to its type,
	// backing the stale-identifier fallback without parsing ids.
	cardTypes     map[string]deck.CardType
	fallbackCount uint64
}

// winnerOutcome is the result of a winner check.
type winnerOutcome int

const (
	gameContinues winnerOutcome = iota
	roundRestarted
	gameEnded
)

// NewEngine creates an engine for the given seated players. The player
// slice fixes the turn order.
func NewEngine(logger zerolog.Logger, clock quartz.Clock, rng *rand.Rand, dealer Dealer, notifier Notifier, stats StatsRecorder, roomCode string, players []Player, config Config) *Engine {
	order := make([]string, len(players))
	names := make(map[string]string, len(players))
	for i, p := range players {
		order[i] = p.ID
		names[p.ID] = p.Name
	}

	return &Engine{
		roomCode:    roomCode,
		logger:      logger.With().Str("component", "engine").Str("room", roomCode).Logger(),
		clock:       clock,
		rng:         rng,
		dealer:      dealer,
		notifier:    notifier,
		stats:       stats,
		config:      config,
		playerOrder: order,
		playerNames: names,
		hands:       make(map[string]*Hand, len(players)),
		cardTypes:   make(map[string]deck.CardType),
	}
}

// Start deals the initial hands and opens the first round with the first
// seated player as starter.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != nil {
		return ErrGameStarted
	}
	if len(e.playerOrder) == 0 {
		return ErrPlayerUnavailable
	}

	e.logger.Info().Int("players", len(e.playerOrder)).Msg("Starting game")

	dealt, dk := e.dealer.Deal(e.playerOrder)
	e.dk = dk
	for _, id := range e.playerOrder {
		cards := dealt[id]
		e.hands[id] = &Hand{Cards: cards}
		e.indexCards(cards)
	}

	e.state = &GameState{
		Phase:         PhasePlaying,
		TurnTimeLimit: e.config.TurnTimeLimit,
	}

	e.notifier.NotifyRoomState(e.snapshot())
	e.startNewRound(e.playerOrder[0], true, "")
	return nil
}

// PlayCards resolves the requested card ids against the player's hand
// and plays them, then advances the turn.
func (e *Engine) PlayCards(playerID string, cardIDs []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil || e.state.Phase != PhasePlaying {
		return ErrGameNotRunning
	}
	if e.resolving || e.currentPlayerID() != playerID {
		return ErrNotYourTurn
	}
	if len(cardIDs) == 0 {
		return ErrEmptySelection
	}
	hand, ok := e.hands[playerID]
	if !ok {
		return ErrHandNotFound
	}

	played := e.resolveRequestedCards(playerID, hand, cardIDs)
	if len(played) == 0 {
		return ErrNoPlayableCards
	}

	e.logger.Debug().
		Str("player", playerID).
		Int("requested", len(cardIDs)).
		Int("played", len(played)).
		Msg("Player played cards")

	hand.Cards = removeCards(hand.Cards, played)
	hand.HasPlayedThisTurn = true
	if len(hand.Cards) == 0 {
		hand.IsInactive = true
		e.logger.Debug().Str("player", playerID).Msg("Player is now inactive, no cards left")
	}

	e.state.LastPlayedCards = played
	e.state.LastPlayerID = playerID
	e.state.PlayedCards = append(e.state.PlayedCards, played...)

	e.notifier.NotifyRoomState(e.snapshot())
	e.advance()
	return nil
}

// CallBluff resolves a challenge against the last play. The challenger
// must be the current player. The continuation after the spectator delay
// is scheduled here and runs even if later turns occur, but never after
// the game has finished.
func (e *Engine) CallBluff(challengerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil || e.state.Phase != PhasePlaying {
		return ErrGameNotRunning
	}
	if e.resolving || e.currentPlayerID() != challengerID {
		return ErrNotYourTurn
	}
	targetID := e.state.LastPlayerID
	if targetID == "" || len(e.state.LastPlayedCards) == 0 {
		return ErrNoActivePlay
	}

	revealed := e.state.LastPlayedCards
	claimed := e.state.CurrentCardType

	var validCards, invalidCards []deck.Card
	for _, card := range revealed {
		if card.Satisfies(claimed) {
			validCards = append(validCards, card)
		} else {
			invalidCards = append(invalidCards, card)
		}
	}

	wasBluff := len(invalidCards) > 0
	punishedID := challengerID
	if wasBluff {
		punishedID = targetID
	}
	punishedHand, ok := e.hands[punishedID]
	if !ok {
		return ErrHandNotFound
	}

	e.logger.Info().
		Str("challenger", challengerID).
		Str("target", targetID).
		Bool("was_bluff", wasBluff).
		Msg("Challenge called")

	eliminated := e.spinRoulette(punishedHand)

	var message string
	if wasBluff {
		message = fmt.Sprintf("%s was caught bluffing!", e.playerNames[targetID])
	} else {
		message = fmt.Sprintf("%s falsely accused %s!", e.playerNames[challengerID], e.playerNames[targetID])
	}
	message += fmt.Sprintf(" %s spins the roulette...", e.playerNames[punishedID])
	if eliminated {
		message += " *BANG!*... and has been ELIMINATED!"
	} else {
		message += fmt.Sprintf(" *CLICK*... and survives. Their risk is now %d/%d.", punishedHand.RiskLevel, rouletteChambers)
	}

	e.notifier.NotifyRoom(EventChallengeResult, ChallengeResultPayload{
		WasBluff:           wasBluff,
		PunishedPlayerID:   punishedID,
		PunishedPlayerName: e.playerNames[punishedID],
		TargetName:         e.playerNames[targetID],
		RevealedCards:      revealed,
		ValidCards:         validCards,
		InvalidCards:       invalidCards,
		Message:            message,
		IsEliminated:       eliminated,
		NewRiskLevel:       punishedHand.RiskLevel,
	})

	challengerEliminated := punishedID == challengerID && eliminated
	var nextType deck.CardType
	if len(validCards) > 0 {
		nextType = validCards[0].Type
	}

	// The challenge consumes the turn; the armed turn timer must not
	// fire a timeout penalty during the spectator delay.
	e.disarmTimer()
	e.resolving = true

	e.challengeTimer = e.clock.AfterFunc(e.config.ChallengeDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.resumeAfterChallenge(challengerID, challengerEliminated, nextType)
	})
	return nil
}

// resumeAfterChallenge runs after the spectator delay. A timeout or
// another path may have ended the game in the meantime, so the terminal
// state is re-checked before anything happens.
func (e *Engine) resumeAfterChallenge(challengerID string, challengerEliminated bool, nextType deck.CardType) {
	e.resolving = false
	if e.state == nil || e.state.Phase != PhasePlaying {
		return
	}

	switch e.checkForWinner() {
	case gameEnded, roundRestarted:
		return
	}

	e.redistribute()

	nextStarter := challengerID
	if challengerEliminated {
		e.state.CurrentIndex = e.indexOf(challengerID)
		id, ok := e.nextEligible()
		if !ok {
			e.checkForWinner()
			return
		}
		nextStarter = id
	}

	e.startNewRound(nextStarter, false, nextType)
}

// Snapshot returns the current public game state.
func (e *Engine) Snapshot() StateSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Phase returns the current game phase, or empty before Start.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ""
	}
	return e.state.Phase
}

// FallbackCount reports how many plays needed the stale-identifier
// fallback. A climbing count is a client/server desync health signal.
func (e *Engine) FallbackCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fallbackCount
}

// Stop cancels any outstanding timers. Used when the room is torn down.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disarmTimer()
	if e.challengeTimer != nil {
		e.challengeTimer.Stop()
		e.challengeTimer = nil
	}
	if e.state != nil {
		e.state.Phase = PhaseFinished
	}
}

// --- turn scheduling ---

// startTurn makes playerID the current player, notifies, and arms the
// turn timer. Any previously armed timer is cancelled first.
func (e *Engine) startTurn(playerID string) {
	e.state.CurrentIndex = e.indexOf(playerID)
	e.disarmTimer()

	canChallenge := e.state.LastPlayerID != "" && e.state.LastPlayerID != playerID

	err := e.notifier.NotifyPlayer(playerID, EventYourTurn, YourTurnPayload{
		Message:         fmt.Sprintf("Your turn! The required card is %s.", e.state.CurrentCardType),
		TimeLimitMs:     int(e.config.TurnTimeLimit.Milliseconds()),
		CurrentCardType: e.state.CurrentCardType,
		CanChallenge:    canChallenge,
	})
	if err != nil {
		// An unreachable player still gets the turn; the armed timer
		// takes over from here and the roulette penalty eliminates them
		// over time if they never come back.
		e.logger.Warn().Str("player", playerID).Err(err).Msg("Player unreachable at turn start")
	}

	e.notifier.NotifyOthers(playerID, EventPlayerTurn, PlayerTurnPayload{
		CurrentPlayerID: playerID,
		PlayerName:      e.playerNames[playerID],
		Message:         fmt.Sprintf("It's %s's turn.", e.playerNames[playerID]),
		CurrentCardType: e.state.CurrentCardType,
	})

	e.armTimer(playerID)
	e.logger.Debug().Str("player", playerID).Msg("Turn started")
}

func (e *Engine) armTimer(playerID string) {
	e.disarmTimer()
	gen := e.timerGen
	e.turnTimer = e.clock.AfterFunc(e.config.TurnTimeLimit, func() {
		e.onTurnTimeout(playerID, gen)
	})
}

// disarmTimer stops the outstanding turn timer and bumps the generation
// so a callback that already fired but has not yet run becomes a no-op.
func (e *Engine) disarmTimer() {
	if e.turnTimer != nil {
		e.turnTimer.Stop()
		e.turnTimer = nil
	}
	e.timerGen++
}

// advance moves the game forward after a state-changing event. Exactly
// one of {new round start, next turn start, winner broadcast} happens
// per call.
func (e *Engine) advance() {
	switch e.checkForWinner() {
	case gameEnded, roundRestarted:
		return
	}

	currentID := e.currentPlayerID()
	nextID, ok := e.nextEligible()

	// The next eligible player wrapping back to the current one means
	// everyone else is eliminated or out of cards: the round stalled.
	if ok && nextID == currentID {
		e.logger.Info().Str("player", currentID).Msg("Only one active player left, starting new round")
		e.redistribute()
		e.startNewRound(currentID, false, "")
		return
	}

	if ok {
		e.startTurn(nextID)
		return
	}

	e.logger.Warn().Msg("No valid next player found, re-checking for winner")
	e.checkForWinner()
}

// advanceAfterInterruption clears any stale timer before advancing, for
// paths where the current turn was cut short rather than completed.
func (e *Engine) advanceAfterInterruption() {
	e.disarmTimer()
	e.advance()
}

// nextEligible returns the next player in turn order after CurrentIndex,
// skipping eliminated and inactive hands and wrapping around. The scan
// includes the current seat last, so a lone active player is returned as
// their own successor.
func (e *Engine) nextEligible() (string, bool) {
	n := len(e.playerOrder)
	for k := 1; k <= n; k++ {
		id := e.playerOrder[(e.state.CurrentIndex+k)%n]
		hand, ok := e.hands[id]
		if !ok || hand.IsEliminated || hand.IsInactive {
			continue
		}
		return id, true
	}
	return "", false
}

// onTurnTimeout fires when an armed turn timer expires. A stale fire
// (generation mismatch) or a finished game is a no-op.
func (e *Engine) onTurnTimeout(playerID string, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.timerGen || e.state == nil || e.state.Phase != PhasePlaying {
		return
	}
	e.turnTimer = nil

	e.logger.Info().Str("player", playerID).Msg("Turn timeout")

	hand, ok := e.hands[playerID]
	if ok && !hand.IsEliminated {
		if e.spinRoulette(hand) {
			e.notifier.NotifyRoom(EventPlayerEliminated, PlayerEliminatedPayload{
				PlayerID:   playerID,
				PlayerName: e.playerNames[playerID],
				Message:    fmt.Sprintf("%s was eliminated by the roulette for taking too long!", e.playerNames[playerID]),
			})
		}
	}

	// The stalled play is discarded, not resolved as true or false.
	e.state.LastPlayedCards = nil
	e.state.LastPlayerID = ""

	switch e.checkForWinner() {
	case gameEnded, roundRestarted:
		return
	}

	e.notifier.NotifyRoomState(e.snapshot())
	e.advanceAfterInterruption()
}

// --- round lifecycle ---

// startNewRound opens a round. A wild or absent claimed type is replaced
// with a uniformly random non-wild type.
func (e *Engine) startNewRound(starterID string, firstRound bool, claimed deck.CardType) {
	if !firstRound {
		e.state.RoundNumber++
	}

	if claimed == "" || claimed.IsWild() {
		claimed = deck.ClaimableTypes[e.rng.IntN(len(deck.ClaimableTypes))]
		e.logger.Debug().Str("card_type", string(claimed)).Msg("Random card type selected for round")
	}

	e.state.CurrentCardType = claimed
	e.state.LastPlayedCards = nil
	e.state.LastPlayerID = ""
	e.state.PlayedCards = nil

	e.logger.Info().
		Int("round", e.state.RoundNumber).
		Str("card_type", string(claimed)).
		Str("starter", starterID).
		Msg("Round started")

	e.notifier.NotifyRoomState(e.snapshot())
	e.startTurn(starterID)
}

// redistribute replaces every non-eliminated hand with a fresh deal.
// Risk levels and eliminations are untouched; eliminated hands are
// emptied and excluded from dealing.
func (e *Engine) redistribute() {
	e.state.LastRedistribution = e.clock.Now()

	alive := make([]string, 0, len(e.playerOrder))
	for _, id := range e.playerOrder {
		if hand, ok := e.hands[id]; ok && !hand.IsEliminated {
			alive = append(alive, id)
		}
	}

	dealt, dk := e.dealer.Deal(alive)
	e.dk = dk

	for _, id := range e.playerOrder {
		hand := e.hands[id]
		if hand == nil {
			continue
		}
		if hand.IsEliminated {
			hand.Cards = nil
			continue
		}
		hand.Cards = dealt[id]
		hand.HasPlayedThisTurn = false
		hand.HandVersion++
		hand.IsInactive = false
		e.indexCards(hand.Cards)
	}

	e.state.PlayedCards = nil

	e.logger.Info().Int("deck_remaining", e.dk.CardsRemaining()).Msg("Cards redistributed")
	e.notifier.NotifyRoomState(e.snapshot())
}

// --- winner detection ---

// checkForWinner runs after every state-changing event. It marks empty
// hands inactive, forces a redistribution when a full stall is detected,
// and ends the game when at most one player remains.
func (e *Engine) checkForWinner() winnerOutcome {
	for id, hand := range e.hands {
		if !hand.IsEliminated && !hand.IsInactive && len(hand.Cards) == 0 {
			hand.IsInactive = true
			e.logger.Debug().Str("player", id).Msg("Player is now inactive, no cards left")
		}
	}

	var nonEliminated, active []string
	for _, id := range e.playerOrder {
		hand, ok := e.hands[id]
		if !ok || hand.IsEliminated {
			continue
		}
		nonEliminated = append(nonEliminated, id)
		if !hand.IsInactive {
			active = append(active, id)
		}
	}

	if len(nonEliminated) > 1 && len(active) == 0 {
		e.logger.Info().Msg("All players inactive, starting new round")
		e.redistribute()
		e.startNewRound(nonEliminated[0], false, "")
		return roundRestarted
	}

	if len(nonEliminated) <= 1 {
		winnerID := ""
		if len(nonEliminated) == 1 {
			winnerID = nonEliminated[0]
		}
		e.finishGame(winnerID)
		return gameEnded
	}

	return gameContinues
}

func (e *Engine) finishGame(winnerID string) {
	e.disarmTimer()

	winnerName := "Draw"
	var message string
	if winnerID != "" {
		winnerName = e.playerNames[winnerID]
		message = fmt.Sprintf("%s is the last one standing!", winnerName)
	} else {
		message = "It's a draw! No one survived."
	}

	e.logger.Info().Str("winner", winnerID).Msg("Game over")

	e.stats.RecordGameOutcome(e.playerOrder, winnerID)
	e.state.Phase = PhaseFinished

	e.notifier.NotifyRoom(EventGameFinished, GameFinishedPayload{
		WinnerID:   winnerID,
		WinnerName: winnerName,
		Message:    message,
	})
}

// --- roulette ---

// spinRoulette increments the hand's risk level, then runs a single
// elimination trial that succeeds with probability riskLevel/6. At risk
// level 6 elimination is certain. Elimination is permanent.
func (e *Engine) spinRoulette(hand *Hand) bool {
	hand.RiskLevel++
	if e.rng.IntN(rouletteChambers) < hand.RiskLevel {
		hand.IsEliminated = true
		return true
	}
	return false
}

// --- play resolution ---

// resolveRequestedCards maps requested card ids onto cards the hand
// actually owns. Unmatched ids go through the same-type substitution
// using the room-wide card index, then arbitrary padding. The fallback
// tolerates client/server hand-view drift; it never fabricates cards.
func (e *Engine) resolveRequestedCards(playerID string, hand *Hand, cardIDs []string) []deck.Card {
	selected := make([]deck.Card, 0, len(cardIDs))
	used := make(map[string]bool, len(cardIDs))
	var missing []string

	for _, id := range cardIDs {
		card, ok := findCard(hand.Cards, func(c deck.Card) bool { return c.ID == id && !used[c.ID] })
		if !ok {
			missing = append(missing, id)
			continue
		}
		selected = append(selected, card)
		used[card.ID] = true
	}

	if len(missing) > 0 {
		e.fallbackCount++
		e.logger.Warn().
			Str("player", playerID).
			Int("missing", len(missing)).
			Uint64("fallback_count", e.fallbackCount).
			Msg("Requested card ids not in hand, applying fallback matching")

		for _, id := range missing {
			wantType, known := e.cardTypes[id]
			if !known {
				continue
			}
			card, ok := findCard(hand.Cards, func(c deck.Card) bool { return c.Type == wantType && !used[c.ID] })
			if !ok {
				continue
			}
			selected = append(selected, card)
			used[card.ID] = true
		}

		for len(selected) < len(cardIDs) {
			card, ok := findCard(hand.Cards, func(c deck.Card) bool { return !used[c.ID] })
			if !ok {
				break
			}
			selected = append(selected, card)
			used[card.ID] = true
		}
	}

	return selected
}

// --- helpers ---

func (e *Engine) currentPlayerID() string {
	return e.playerOrder[e.state.CurrentIndex]
}

func (e *Engine) indexOf(playerID string) int {
	for i, id := range e.playerOrder {
		if id == playerID {
			return i
		}
	}
	return 0
}

func (e *Engine) indexCards(cards []deck.Card) {
	for _, c := range cards {
		e.cardTypes[c.ID] = c.Type
	}
}

func (e *Engine) snapshot() StateSnapshot {
	players := make([]PlayerSnapshot, 0, len(e.playerOrder))
	for _, id := range e.playerOrder {
		hand := e.hands[id]
		ps := PlayerSnapshot{ID: id, Name: e.playerNames[id]}
		if hand != nil {
			ps.Cards = hand.Cards
			ps.CardCount = len(hand.Cards)
			ps.RiskLevel = hand.RiskLevel
			ps.IsEliminated = hand.IsEliminated
			ps.IsInactive = hand.IsInactive
			ps.HasPlayedThisTurn = hand.HasPlayedThisTurn
			ps.HandVersion = hand.HandVersion
		}
		players = append(players, ps)
	}

	snap := StateSnapshot{
		RoomCode:        e.roomCode,
		CurrentPlayerID: e.currentPlayerIDOrEmpty(),
		Players:         players,
	}
	if e.state != nil {
		snap.Phase = e.state.Phase
		snap.RoundNumber = e.state.RoundNumber
		snap.CurrentCardType = e.state.CurrentCardType
		snap.LastPlayerID = e.state.LastPlayerID
		snap.LastPlayedCount = len(e.state.LastPlayedCards)
		snap.PlayedCount = len(e.state.PlayedCards)
		snap.TurnTimeLimitMs = int(e.state.TurnTimeLimit.Milliseconds())
	}
	if e.dk != nil {
		snap.DeckRemaining = e.dk.CardsRemaining()
	}
	return snap
}

func (e *Engine) currentPlayerIDOrEmpty() string {
	if e.state == nil || len(e.playerOrder) == 0 {
		return ""
	}
	return e.playerOrder[e.state.CurrentIndex]
}

func findCard(cards []deck.Card, match func(deck.Card) bool) (deck.Card, bool) {
	for _, c := range cards {
		if match(c) {
			return c, true
		}
	}
	return deck.Card{}, false
}

func removeCards(cards []deck.Card, toRemove []deck.Card) []deck.Card {
	removed := make(map[string]bool, len(toRemove))
	for _, c := range toRemove {
		removed[c.ID] = true
	}
	kept := cards[:0]
	for _, c := range cards {
		if !removed[c.ID] {
			kept = append(kept, c)
		}
	}
	return kept
}
