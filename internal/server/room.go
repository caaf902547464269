package server

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/game"
)

// MaxPlayers is the seat limit per room.
const MaxPlayers = 4

// MinPlayersToStart is the minimum number of seated players for a game.
const MinPlayersToStart = 2

// RoomStatus represents the lifecycle state of a room.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

var (
	ErrRoomFull        = errors.New("room is full")
	ErrWrongPassword   = errors.New("incorrect room password")
	ErrNotHost         = errors.New("only the host can start the game")
	ErrNotEnoughSeated = errors.New("not enough players to start")
	ErrGameInProgress  = errors.New("game already in progress")
	ErrGameNotFinished = errors.New("the game has not finished yet")
	ErrNotInRoom       = errors.New("player is not in this room")
)

// RoomPlayer is one seated player.
type RoomPlayer struct {
	ID    string
	Name  string
	Ready bool
}

// Room holds a lobby of players and, once started, the game engine.
// The room mutex guards membership and status; the engine serializes its
// own operations and is never called while the room mutex is held by an
// engine callback.
type Room struct {
	mu sync.Mutex

	Code     string
	Name     string
	password string
	hostID   string

	// Insertion order fixes the turn order at game start.
	players []*RoomPlayer

	status   RoomStatus
	engine   *game.Engine
	notifier *roomNotifier
	logger   zerolog.Logger
}

// NewRoom creates an empty waiting room.
func NewRoom(logger zerolog.Logger, code, name, password string) *Room {
	return &Room{
		Code:     code,
		Name:     name,
		password: password,
		status:   StatusWaiting,
		notifier: newRoomNotifier(),
		logger:   logger.With().Str("component", "room").Str("room", code).Logger(),
	}
}

// AddPlayer seats a player. The first player becomes host.
func (r *Room) AddPlayer(id, name, password string, conn *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusWaiting {
		return ErrGameInProgress
	}
	if len(r.players) >= MaxPlayers {
		return ErrRoomFull
	}
	if r.password != "" && r.password != password {
		return ErrWrongPassword
	}

	r.players = append(r.players, &RoomPlayer{ID: id, Name: name})
	if r.hostID == "" {
		r.hostID = id
	}
	r.notifier.attach(id, name, conn)

	r.logger.Info().Str("player", id).Str("name", name).Int("seated", len(r.players)).Msg("Player joined room")
	return nil
}

// RemovePlayer unseats a player. During a game only the connection is
// detached; the seat stays so the fixed turn order is preserved and the
// engine skips the player via its unreachable path. Returns the new host
// id if host changed, and whether the room is now empty.
func (r *Room) RemovePlayer(id string) (newHostID string, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifier.detach(id)

	if r.status != StatusWaiting {
		return "", r.notifier.attachedCount() == 0
	}

	for i, p := range r.players {
		if p.ID == id {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	if r.hostID == id && len(r.players) > 0 {
		r.hostID = r.players[0].ID
		newHostID = r.hostID
	}

	r.logger.Info().Str("player", id).Int("seated", len(r.players)).Msg("Player left room")
	return newHostID, len(r.players) == 0
}

// StartGame builds the engine and starts play. Only the host can start.
func (r *Room) StartGame(starterID string, engineFactory func(players []game.Player, notifier game.Notifier) *game.Engine) error {
	r.mu.Lock()

	if r.status != StatusWaiting {
		r.mu.Unlock()
		return ErrGameInProgress
	}
	if starterID != r.hostID {
		r.mu.Unlock()
		return ErrNotHost
	}
	if len(r.players) < MinPlayersToStart {
		r.mu.Unlock()
		return ErrNotEnoughSeated
	}

	players := make([]game.Player, len(r.players))
	for i, p := range r.players {
		players[i] = game.Player{ID: p.ID, Name: p.Name}
		p.Ready = false
	}

	r.engine = engineFactory(players, r.notifier)
	r.status = StatusPlaying
	engine := r.engine
	r.mu.Unlock()

	// Engine operations run outside the room mutex; the engine's own
	// mutex is the per-room serialization point.
	return engine.Start()
}

// Engine returns the running engine, or nil outside a game.
func (r *Room) Engine() *game.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine
}

// Status returns the room's lifecycle status, derived from the engine
// phase while a game exists.
func (r *Room) Status() RoomStatus {
	r.mu.Lock()
	engine := r.engine
	status := r.status
	r.mu.Unlock()

	if engine != nil && engine.Phase() == game.PhaseFinished {
		return StatusFinished
	}
	return status
}

// MarkReady records a player's readiness for the next game. Readiness
// only counts once the game has finished; when every seated player is
// ready the room resets to waiting and the old engine is discarded.
// Returns true if the room was reset.
func (r *Room) MarkReady(id string) (bool, error) {
	r.mu.Lock()

	var found *RoomPlayer
	for _, p := range r.players {
		if p.ID == id {
			found = p
			break
		}
	}
	if found == nil {
		r.mu.Unlock()
		return false, ErrNotInRoom
	}
	// A ready vote must never abort a running engine.
	if r.status == StatusWaiting || (r.engine != nil && r.engine.Phase() != game.PhaseFinished) {
		r.mu.Unlock()
		return false, ErrGameNotFinished
	}
	found.Ready = true

	for _, p := range r.players {
		if !p.Ready {
			r.mu.Unlock()
			return false, nil
		}
	}

	engine := r.engine
	r.engine = nil
	r.status = StatusWaiting
	for _, p := range r.players {
		p.Ready = false
	}
	r.mu.Unlock()

	if engine != nil {
		engine.Stop()
	}
	r.logger.Info().Msg("All players ready, room reset for next game")
	return true, nil
}

// Close tears the room down, stopping any running engine.
func (r *Room) Close() {
	r.mu.Lock()
	engine := r.engine
	r.engine = nil
	r.mu.Unlock()

	if engine != nil {
		engine.Stop()
	}
}

// HostID returns the current host's player id.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// HasPlayer reports whether the player is seated in this room.
func (r *Room) HasPlayer(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Players returns a snapshot of the seated players in turn order.
func (r *Room) Players() []PlayerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]PlayerInfo, len(r.players))
	for i, p := range r.players {
		infos[i] = PlayerInfo{ID: p.ID, Name: p.Name, IsHost: p.ID == r.hostID}
	}
	return infos
}

// Info returns the lobby listing entry for this room.
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		Code:           r.Code,
		Name:           r.Name,
		CurrentPlayers: len(r.players),
		MaxPlayers:     MaxPlayers,
		HasPassword:    r.password != "",
	}
}

// Notifier returns the room's notifier for direct room broadcasts.
func (r *Room) Notifier() *roomNotifier {
	return r.notifier
}
