package game

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	rand "math/rand/v2"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/deck"
	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/randutil"
)

// rollSource is a rand source that returns the same raw value on every
// draw, which pins IntN to a fixed result. A value of 1 resolves every
// IntN to 0; math.MaxUint64 resolves IntN(n) to n-1.
type rollSource uint64

func (s rollSource) Uint64() uint64 { return uint64(s) }

// highRollRNG never eliminates below max risk and always picks the last
// claimable type (jack) for new rounds.
func highRollRNG() *rand.Rand { return rand.New(rollSource(math.MaxUint64)) }

// lowRollRNG eliminates on every roulette spin and always picks the
// first claimable type (king) for new rounds.
func lowRollRNG() *rand.Rand { return rand.New(rollSource(1)) }

type fakeDealer struct {
	rng    *rand.Rand
	script []map[string][]deck.Card
}

func (d *fakeDealer) Deal(ids []string) (map[string][]deck.Card, *deck.Deck) {
	dk := deck.New(d.rng)
	if len(d.script) > 0 {
		scripted := d.script[0]
		d.script = d.script[1:]
		out := make(map[string][]deck.Card, len(ids))
		for _, id := range ids {
			out[id] = scripted[id]
		}
		return out, dk
	}
	out := make(map[string][]deck.Card, len(ids))
	for _, id := range ids {
		out[id] = dk.DealN(5)
	}
	return out, dk
}

type recordedEvent struct {
	target  string
	kind    EventKind
	payload any
}

type recordingNotifier struct {
	mu          sync.Mutex
	states      []StateSnapshot
	events      []recordedEvent
	unreachable map[string]bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{unreachable: make(map[string]bool)}
}

func (n *recordingNotifier) NotifyRoomState(snapshot StateSnapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, snapshot)
}

func (n *recordingNotifier) NotifyPlayer(playerID string, kind EventKind, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.unreachable[playerID] {
		return ErrPlayerUnavailable
	}
	n.events = append(n.events, recordedEvent{target: playerID, kind: kind, payload: payload})
	return nil
}

func (n *recordingNotifier) NotifyOthers(excludePlayerID string, kind EventKind, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{target: "others", kind: kind, payload: payload})
}

func (n *recordingNotifier) NotifyRoom(kind EventKind, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{target: "room", kind: kind, payload: payload})
}

func (n *recordingNotifier) eventsOfKind(kind EventKind) []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recordedEvent
	for _, ev := range n.events {
		if ev.kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (n *recordingNotifier) lastOfKind(kind EventKind) (recordedEvent, bool) {
	evs := n.eventsOfKind(kind)
	if len(evs) == 0 {
		return recordedEvent{}, false
	}
	return evs[len(evs)-1], true
}

type statsCall struct {
	players []string
	winner  string
}

type captureStats struct {
	mu    sync.Mutex
	calls []statsCall
}

func (s *captureStats) RecordGameOutcome(playerIDs []string, winnerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, statsCall{players: playerIDs, winner: winnerID})
}

type engineFixture struct {
	engine   *Engine
	clock    *quartz.Mock
	notifier *recordingNotifier
	stats    *captureStats
}

func newTestEngine(t *testing.T, rng *rand.Rand, players []Player, deals ...map[string][]deck.Card) *engineFixture {
	t.Helper()
	clock := quartz.NewMock(t)
	notifier := newRecordingNotifier()
	stats := &captureStats{}
	dealer := &fakeDealer{rng: rng, script: deals}

	engine := NewEngine(zerolog.Nop(), clock, rng, dealer, notifier, stats, "TEST01", players, DefaultConfig())
	return &engineFixture{engine: engine, clock: clock, notifier: notifier, stats: stats}
}

func (f *engineFixture) advanceClock(d time.Duration) {
	f.clock.Advance(d).MustWait(context.Background())
}

func (f *engineFixture) playerState(t *testing.T, playerID string) PlayerSnapshot {
	t.Helper()
	snap := f.engine.Snapshot()
	for _, p := range snap.Players {
		if p.ID == playerID {
			return p
		}
	}
	t.Fatalf("player %s not in snapshot", playerID)
	return PlayerSnapshot{}
}

func seat(ids ...string) []Player {
	players := make([]Player, len(ids))
	for i, id := range ids {
		players[i] = Player{ID: id, Name: "Player " + id}
	}
	return players
}

func handOf(types ...deck.CardType) []deck.Card {
	cards := make([]deck.Card, len(types))
	for i, t := range types {
		cards[i] = deck.NewCard(t)
	}
	return cards
}

func TestStartDealsHandsAndBeginsFirstTurn(t *testing.T) {
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2", "p3"))
	require.NoError(t, f.engine.Start())

	snap := f.engine.Snapshot()
	assert.Equal(t, PhasePlaying, snap.Phase)
	assert.Equal(t, "p1", snap.CurrentPlayerID)
	assert.Equal(t, deck.Jack, snap.CurrentCardType)
	for _, p := range snap.Players {
		assert.Equal(t, 5, p.CardCount)
		assert.Equal(t, 0, p.RiskLevel)
		assert.False(t, p.IsEliminated)
	}

	ev, ok := f.notifier.lastOfKind(EventYourTurn)
	require.True(t, ok)
	assert.Equal(t, "p1", ev.target)
	payload := ev.payload.(YourTurnPayload)
	assert.Equal(t, deck.Jack, payload.CurrentCardType)
	assert.False(t, payload.CanChallenge, "round starter has nothing to challenge")
}

func TestStartTwiceFails(t *testing.T) {
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"))
	require.NoError(t, f.engine.Start())
	assert.ErrorIs(t, f.engine.Start(), ErrGameStarted)
}

func TestPlayCardsValidation(t *testing.T) {
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"))

	assert.ErrorIs(t, f.engine.PlayCards("p1", []string{"x"}), ErrGameNotRunning)

	require.NoError(t, f.engine.Start())
	assert.ErrorIs(t, f.engine.PlayCards("p2", []string{"x"}), ErrNotYourTurn)
	assert.ErrorIs(t, f.engine.PlayCards("p1", nil), ErrEmptySelection)
}

func TestPlayCardsAdvancesToNextPlayer(t *testing.T) {
	p1Hand := handOf(deck.Jack, deck.Jack, deck.Queen, deck.Queen, deck.King)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.Queen, deck.Jack, deck.Ace),
	})
	require.NoError(t, f.engine.Start())

	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))

	snap := f.engine.Snapshot()
	assert.Equal(t, "p2", snap.CurrentPlayerID)
	assert.Equal(t, "p1", snap.LastPlayerID)
	assert.Equal(t, 1, snap.LastPlayedCount)
	assert.Equal(t, 4, f.playerState(t, "p1").CardCount)

	ev, ok := f.notifier.lastOfKind(EventYourTurn)
	require.True(t, ok)
	assert.Equal(t, "p2", ev.target)
	assert.True(t, ev.payload.(YourTurnPayload).CanChallenge)
}

func TestTurnOrderSkipsEliminatedAndInactive(t *testing.T) {
	p1Hand := handOf(deck.Jack, deck.Jack, deck.Jack, deck.Jack, deck.Jack)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2", "p3"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
		"p3": handOf(deck.Queen, deck.Queen, deck.Queen, deck.Queen, deck.Queen),
	})
	require.NoError(t, f.engine.Start())

	f.engine.mu.Lock()
	f.engine.hands["p2"].IsEliminated = true
	f.engine.mu.Unlock()

	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))
	assert.Equal(t, "p3", f.engine.Snapshot().CurrentPlayerID)
}

func TestPlayingLastCardMarksInactive(t *testing.T) {
	p1Hand := handOf(deck.Jack)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
	})
	require.NoError(t, f.engine.Start())

	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))

	p1 := f.playerState(t, "p1")
	assert.True(t, p1.IsInactive)
	assert.Equal(t, 0, p1.CardCount)
	assert.Equal(t, "p2", f.engine.Snapshot().CurrentPlayerID)
}

func TestLoneActivePlayerTriggersRedistribution(t *testing.T) {
	p1Hand := handOf(deck.Jack, deck.Jack, deck.Jack, deck.Jack, deck.Jack)
	p2Hand := handOf(deck.King)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": p2Hand,
	})
	require.NoError(t, f.engine.Start())

	f.engine.mu.Lock()
	f.engine.hands["p1"].RiskLevel = 2
	f.engine.mu.Unlock()

	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))
	require.NoError(t, f.engine.PlayCards("p2", []string{p2Hand[0].ID}))

	// p2 is out of cards, so the next eligible player after p1 wraps back
	// to p1: the round stalls and is restarted with fresh hands.
	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[1].ID}))

	snap := f.engine.Snapshot()
	assert.Equal(t, PhasePlaying, snap.Phase)
	assert.Equal(t, 1, snap.RoundNumber)
	assert.Equal(t, "p1", snap.CurrentPlayerID, "stalled player keeps the turn")
	assert.Equal(t, "", snap.LastPlayerID)

	p1 := f.playerState(t, "p1")
	p2 := f.playerState(t, "p2")
	assert.Equal(t, 5, p1.CardCount)
	assert.Equal(t, 5, p2.CardCount)
	assert.Equal(t, 1, p1.HandVersion)
	assert.Equal(t, 1, p2.HandVersion)
	assert.False(t, p2.IsInactive)
	assert.Equal(t, 2, p1.RiskLevel, "risk level survives redistribution")
}

func TestAllHandsEmptyForcesRedistribution(t *testing.T) {
	p1Hand := handOf(deck.Jack)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2", "p3"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King),
		"p3": handOf(deck.Queen, deck.Queen, deck.Queen, deck.Queen, deck.Queen),
	})
	require.NoError(t, f.engine.Start())

	f.engine.mu.Lock()
	f.engine.hands["p2"].Cards = nil
	f.engine.hands["p2"].IsInactive = true
	f.engine.hands["p2"].RiskLevel = 3
	f.engine.hands["p3"].IsEliminated = true
	f.engine.hands["p3"].Cards = nil
	f.engine.mu.Unlock()

	// p1's last card leaves no active hand while two players survive:
	// the round restarts with fresh hands instead of the game ending.
	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))

	snap := f.engine.Snapshot()
	assert.Equal(t, PhasePlaying, snap.Phase)
	assert.Equal(t, 1, snap.RoundNumber)
	assert.Equal(t, "p1", snap.CurrentPlayerID, "the first surviving seat starts the new round")
	assert.Equal(t, "", snap.LastPlayerID)

	p1 := f.playerState(t, "p1")
	p2 := f.playerState(t, "p2")
	p3 := f.playerState(t, "p3")
	assert.Equal(t, 5, p1.CardCount)
	assert.Equal(t, 5, p2.CardCount)
	assert.False(t, p1.IsInactive)
	assert.False(t, p2.IsInactive)
	assert.Equal(t, 1, p1.HandVersion)
	assert.Equal(t, 1, p2.HandVersion)
	assert.Equal(t, 3, p2.RiskLevel, "risk level survives the restart")
	assert.True(t, p3.IsEliminated)
	assert.Equal(t, 0, p3.CardCount, "eliminated hands are not redealt")

	_, finished := f.notifier.lastOfKind(EventGameFinished)
	assert.False(t, finished)
}

func TestTruthfulPlayPunishesChallenger(t *testing.T) {
	p1Hand := handOf(deck.Jack, deck.Jack, deck.Jack, deck.Jack, deck.Jack)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
	})
	require.NoError(t, f.engine.Start())
	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))

	f.engine.mu.Lock()
	f.engine.hands["p2"].RiskLevel = 5
	f.engine.mu.Unlock()

	require.NoError(t, f.engine.CallBluff("p2"))

	ev, ok := f.notifier.lastOfKind(EventChallengeResult)
	require.True(t, ok)
	result := ev.payload.(ChallengeResultPayload)
	assert.False(t, result.WasBluff)
	assert.Equal(t, "p2", result.PunishedPlayerID)
	assert.True(t, result.IsEliminated)
	assert.Equal(t, 6, result.NewRiskLevel)
	assert.Len(t, result.ValidCards, 1)
	assert.Empty(t, result.InvalidCards)

	// The spectator delay blocks further actions.
	assert.ErrorIs(t, f.engine.PlayCards("p1", []string{p1Hand[1].ID}), ErrNotYourTurn)
	assert.ErrorIs(t, f.engine.CallBluff("p2"), ErrNotYourTurn)
	_, finished := f.notifier.lastOfKind(EventGameFinished)
	assert.False(t, finished)

	f.advanceClock(DefaultConfig().ChallengeDelay)

	ev, ok = f.notifier.lastOfKind(EventGameFinished)
	require.True(t, ok)
	payload := ev.payload.(GameFinishedPayload)
	assert.Equal(t, "p1", payload.WinnerID)
	assert.Equal(t, PhaseFinished, f.engine.Phase())

	require.Len(t, f.stats.calls, 1)
	assert.Equal(t, "p1", f.stats.calls[0].winner)
	assert.Equal(t, []string{"p1", "p2"}, f.stats.calls[0].players)
}

func TestBluffPunishesTarget(t *testing.T) {
	p1Hand := handOf(deck.Queen, deck.Queen, deck.Queen, deck.Queen, deck.Queen)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2", "p3"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
		"p3": handOf(deck.Jack, deck.Jack, deck.Jack, deck.Jack, deck.Jack),
	})
	require.NoError(t, f.engine.Start())

	// Claimed type is jack; p1 plays a queen.
	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))

	f.engine.mu.Lock()
	f.engine.hands["p1"].RiskLevel = 5
	f.engine.mu.Unlock()

	require.NoError(t, f.engine.CallBluff("p2"))

	ev, ok := f.notifier.lastOfKind(EventChallengeResult)
	require.True(t, ok)
	result := ev.payload.(ChallengeResultPayload)
	assert.True(t, result.WasBluff)
	assert.Equal(t, "p1", result.PunishedPlayerID)
	assert.True(t, result.IsEliminated)
	assert.Len(t, result.InvalidCards, 1)

	f.advanceClock(DefaultConfig().ChallengeDelay)

	snap := f.engine.Snapshot()
	assert.Equal(t, PhasePlaying, snap.Phase)
	assert.Equal(t, 1, snap.RoundNumber)
	assert.Equal(t, "p2", snap.CurrentPlayerID, "challenger starts the next round")

	p1 := f.playerState(t, "p1")
	assert.True(t, p1.IsEliminated)
	assert.Equal(t, 0, p1.CardCount, "eliminated hands are not redealt")
	assert.Equal(t, 5, f.playerState(t, "p2").CardCount)
	assert.Equal(t, 5, f.playerState(t, "p3").CardCount)
}

func TestEliminatedChallengerPassesStartToNext(t *testing.T) {
	p1Hand := handOf(deck.Jack, deck.Jack, deck.Jack, deck.Jack, deck.Jack)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2", "p3"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
		"p3": handOf(deck.Queen, deck.Queen, deck.Queen, deck.Queen, deck.Queen),
	})
	require.NoError(t, f.engine.Start())
	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))

	f.engine.mu.Lock()
	f.engine.hands["p2"].RiskLevel = 5
	f.engine.mu.Unlock()

	require.NoError(t, f.engine.CallBluff("p2"))
	f.advanceClock(DefaultConfig().ChallengeDelay)

	snap := f.engine.Snapshot()
	assert.Equal(t, "p3", snap.CurrentPlayerID, "start passes on from the eliminated challenger's seat")
	assert.Equal(t, deck.Jack, snap.CurrentCardType, "revealed valid type carries into the next round")
	assert.True(t, f.playerState(t, "p2").IsEliminated)
}

func TestChallengeWithoutActivePlay(t *testing.T) {
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"))
	require.NoError(t, f.engine.Start())
	assert.ErrorIs(t, f.engine.CallBluff("p1"), ErrNoActivePlay)
	assert.ErrorIs(t, f.engine.CallBluff("p2"), ErrNotYourTurn)
}

func TestTurnTimeoutPenalizesAndSkips(t *testing.T) {
	p1Hand := handOf(deck.Jack, deck.Jack, deck.Jack, deck.Jack, deck.Jack)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2", "p3"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
		"p3": handOf(deck.Queen, deck.Queen, deck.Queen, deck.Queen, deck.Queen),
	})
	require.NoError(t, f.engine.Start())
	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))

	// p2 lets the clock run out.
	f.advanceClock(DefaultConfig().TurnTimeLimit)

	assert.Empty(t, f.notifier.eventsOfKind(EventPlayerEliminated))

	snap := f.engine.Snapshot()
	assert.Equal(t, "p3", snap.CurrentPlayerID)
	assert.Equal(t, "", snap.LastPlayerID, "the stalled play is discarded")
	assert.Equal(t, 1, f.playerState(t, "p2").RiskLevel)

	// The discarded play cannot be challenged.
	assert.ErrorIs(t, f.engine.CallBluff("p3"), ErrNoActivePlay)
}

func TestTurnTimeoutEliminationEndsGame(t *testing.T) {
	f := newTestEngine(t, lowRollRNG(), seat("p1", "p2"))
	require.NoError(t, f.engine.Start())

	f.advanceClock(DefaultConfig().TurnTimeLimit)

	ev, ok := f.notifier.lastOfKind(EventPlayerEliminated)
	require.True(t, ok)
	assert.Equal(t, "p1", ev.payload.(PlayerEliminatedPayload).PlayerID)

	ev, ok = f.notifier.lastOfKind(EventGameFinished)
	require.True(t, ok)
	assert.Equal(t, "p2", ev.payload.(GameFinishedPayload).WinnerID)
	assert.Equal(t, PhaseFinished, f.engine.Phase())
	require.Len(t, f.stats.calls, 1)
	assert.Equal(t, "p2", f.stats.calls[0].winner)
}

func TestLastPlayerEliminationIsADraw(t *testing.T) {
	f := newTestEngine(t, lowRollRNG(), seat("p1"))
	require.NoError(t, f.engine.Start())

	f.advanceClock(DefaultConfig().TurnTimeLimit)

	ev, ok := f.notifier.lastOfKind(EventGameFinished)
	require.True(t, ok)
	payload := ev.payload.(GameFinishedPayload)
	assert.Equal(t, "", payload.WinnerID)
	assert.Equal(t, "Draw", payload.WinnerName)
	require.Len(t, f.stats.calls, 1)
	assert.Equal(t, "", f.stats.calls[0].winner)
}

func TestCompletedTurnDisarmsItsTimer(t *testing.T) {
	p1Hand := handOf(deck.Jack, deck.Jack, deck.Jack, deck.Jack, deck.Jack)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
	})
	require.NoError(t, f.engine.Start())
	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))

	// Only p2's timer is armed now; p1 must not be penalized again when
	// the original deadline passes.
	f.advanceClock(DefaultConfig().TurnTimeLimit)

	assert.Equal(t, 0, f.playerState(t, "p1").RiskLevel)
	assert.Equal(t, 1, f.playerState(t, "p2").RiskLevel)
}

func TestStopCancelsOutstandingTimers(t *testing.T) {
	f := newTestEngine(t, lowRollRNG(), seat("p1", "p2"))
	require.NoError(t, f.engine.Start())

	f.engine.Stop()
	f.advanceClock(DefaultConfig().TurnTimeLimit)

	assert.Empty(t, f.notifier.eventsOfKind(EventPlayerEliminated))
	assert.Empty(t, f.notifier.eventsOfKind(EventGameFinished))
	assert.Equal(t, 0, f.playerState(t, "p1").RiskLevel)
}

func TestChallengeContinuationAfterStopIsNoOp(t *testing.T) {
	p1Hand := handOf(deck.Jack, deck.Jack, deck.Jack, deck.Jack, deck.Jack)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
	})
	require.NoError(t, f.engine.Start())
	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))
	require.NoError(t, f.engine.CallBluff("p2"))

	f.engine.Stop()
	turnsBefore := len(f.notifier.eventsOfKind(EventYourTurn))

	f.advanceClock(DefaultConfig().ChallengeDelay)

	assert.Equal(t, turnsBefore, len(f.notifier.eventsOfKind(EventYourTurn)))
	assert.Equal(t, PhaseFinished, f.engine.Phase())
}

func TestUnreachablePlayerTimesOutNormally(t *testing.T) {
	p1Hand := handOf(deck.Jack, deck.Jack, deck.Jack, deck.Jack, deck.Jack)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2", "p3"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
		"p3": handOf(deck.Queen, deck.Queen, deck.Queen, deck.Queen, deck.Queen),
	})
	f.notifier.unreachable["p2"] = true
	require.NoError(t, f.engine.Start())

	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))

	// The unreachable player keeps the turn; the timeout roulette deals
	// with their absence instead of a free skip.
	assert.Equal(t, "p2", f.engine.Snapshot().CurrentPlayerID)

	f.advanceClock(DefaultConfig().TurnTimeLimit)

	assert.Equal(t, "p3", f.engine.Snapshot().CurrentPlayerID)
	assert.Equal(t, 1, f.playerState(t, "p2").RiskLevel)
}

func TestFallbackMatchesByType(t *testing.T) {
	p1Hand := handOf(deck.Queen, deck.Jack, deck.Jack, deck.Jack, deck.Jack)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
	})
	require.NoError(t, f.engine.Start())

	// A stale id from a previous deal still resolves to a card of the
	// same type in the current hand.
	f.engine.mu.Lock()
	f.engine.cardTypes["stale-id"] = deck.Queen
	f.engine.mu.Unlock()

	require.NoError(t, f.engine.PlayCards("p1", []string{"stale-id"}))

	assert.Equal(t, uint64(1), f.engine.FallbackCount())
	p1 := f.playerState(t, "p1")
	assert.Equal(t, 4, p1.CardCount)
	for _, c := range p1.Cards {
		assert.NotEqual(t, deck.Queen, c.Type, "the queen was substituted and played")
	}
}

func TestFallbackPadsWithArbitraryCard(t *testing.T) {
	p1Hand := handOf(deck.Jack, deck.Jack, deck.Jack, deck.Jack, deck.Jack)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
	})
	require.NoError(t, f.engine.Start())

	require.NoError(t, f.engine.PlayCards("p1", []string{"unknown-id"}))

	assert.Equal(t, uint64(1), f.engine.FallbackCount())
	snap := f.engine.Snapshot()
	assert.Equal(t, 1, snap.LastPlayedCount)
	assert.Equal(t, 4, f.playerState(t, "p1").CardCount)
}

func TestExactMatchDoesNotCountAsFallback(t *testing.T) {
	p1Hand := handOf(deck.Jack, deck.Jack, deck.Jack, deck.Jack, deck.Jack)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
	})
	require.NoError(t, f.engine.Start())

	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID, p1Hand[1].ID}))
	assert.Equal(t, uint64(0), f.engine.FallbackCount())
	assert.Equal(t, 2, f.engine.Snapshot().LastPlayedCount)
}

func TestRouletteOddsScaleWithRisk(t *testing.T) {
	f := newTestEngine(t, randutil.New(42), seat("p1", "p2"))

	const trials = 10000
	eliminated := 0
	for i := 0; i < trials; i++ {
		hand := &Hand{RiskLevel: 2}
		if f.engine.spinRoulette(hand) {
			eliminated++
		}
		assert.Equal(t, 3, hand.RiskLevel)
	}

	// Risk level 3 out of 6 chambers: expect about half.
	ratio := float64(eliminated) / float64(trials)
	assert.InDelta(t, 0.5, ratio, 0.05)
}

func TestRouletteCertainAtMaxRisk(t *testing.T) {
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"))
	hand := &Hand{RiskLevel: 5}
	assert.True(t, f.engine.spinRoulette(hand))
	assert.True(t, hand.IsEliminated)
	assert.Equal(t, 6, hand.RiskLevel)
}

func TestWildAceSatisfiesClaim(t *testing.T) {
	p1Hand := handOf(deck.Ace, deck.Queen, deck.Queen, deck.Queen, deck.Queen)
	f := newTestEngine(t, highRollRNG(), seat("p1", "p2"), map[string][]deck.Card{
		"p1": p1Hand,
		"p2": handOf(deck.King, deck.King, deck.King, deck.King, deck.King),
	})
	require.NoError(t, f.engine.Start())

	// Claimed type is jack; the ace counts as one.
	require.NoError(t, f.engine.PlayCards("p1", []string{p1Hand[0].ID}))
	require.NoError(t, f.engine.CallBluff("p2"))

	ev, ok := f.notifier.lastOfKind(EventChallengeResult)
	require.True(t, ok)
	result := ev.payload.(ChallengeResultPayload)
	assert.False(t, result.WasBluff)
	assert.Equal(t, "p2", result.PunishedPlayerID)
}
