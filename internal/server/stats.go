package server

import (
	"sync"

	"github.com/rs/zerolog"
)

// PlayerRecord is a player's lifetime win/loss record.
type PlayerRecord struct {
	PlayerID    string `json:"playerId"`
	GamesPlayed int    `json:"gamesPlayed"`
	GamesWon    int    `json:"gamesWon"`
}

// MemoryStatsRecorder keeps per-player outcome records in memory. It
// implements game.StatsRecorder.
type MemoryStatsRecorder struct {
	mu      sync.RWMutex
	records map[string]*PlayerRecord
	logger  zerolog.Logger
}

// NewMemoryStatsRecorder creates an empty recorder.
func NewMemoryStatsRecorder(logger zerolog.Logger) *MemoryStatsRecorder {
	return &MemoryStatsRecorder{
		records: make(map[string]*PlayerRecord),
		logger:  logger.With().Str("component", "stats").Logger(),
	}
}

// RecordGameOutcome records a finished game for every participant.
// winnerID is empty on a draw.
func (s *MemoryStatsRecorder) RecordGameOutcome(playerIDs []string, winnerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range playerIDs {
		rec, ok := s.records[id]
		if !ok {
			rec = &PlayerRecord{PlayerID: id}
			s.records[id] = rec
		}
		rec.GamesPlayed++
		if id == winnerID {
			rec.GamesWon++
		}
	}

	s.logger.Info().
		Int("players", len(playerIDs)).
		Str("winner", winnerID).
		Msg("Recorded game outcome")
}

// Record returns a copy of one player's record.
func (s *MemoryStatsRecorder) Record(playerID string) (PlayerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[playerID]
	if !ok {
		return PlayerRecord{}, false
	}
	return *rec, true
}

// NullStatsRecorder discards outcomes. Used when stats are disabled.
type NullStatsRecorder struct{}

// RecordGameOutcome does nothing.
func (NullStatsRecorder) RecordGameOutcome([]string, string) {}
