package server

import (
	"sync"
	"time"

	rand "math/rand/v2"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/deck"
	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/game"
	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/randutil"
)

// GameService wires connections, rooms and engines together. It owns the
// room registry and derives a private RNG per room from the service RNG,
// so a seeded service produces reproducible games.
type GameService struct {
	logger   zerolog.Logger
	registry *Registry
	stats    game.StatsRecorder
	clock    quartz.Clock
	server   *Server

	handSize int
	gameCfg  game.Config

	rngMu sync.Mutex
	rng   *rand.Rand
}

// GameServiceConfig holds the game-level knobs for new rooms.
type GameServiceConfig struct {
	HandSize       int
	TurnTimeLimit  time.Duration
	ChallengeDelay time.Duration
}

// NewGameService creates a game service.
func NewGameService(logger zerolog.Logger, registry *Registry, stats game.StatsRecorder, clock quartz.Clock, rng *rand.Rand, cfg GameServiceConfig) *GameService {
	return &GameService{
		logger:   logger.With().Str("component", "game_service").Logger(),
		registry: registry,
		stats:    stats,
		clock:    clock,
		handSize: cfg.HandSize,
		gameCfg: game.Config{
			TurnTimeLimit:  cfg.TurnTimeLimit,
			ChallengeDelay: cfg.ChallengeDelay,
		},
		rng: rng,
	}
}

// SetServer attaches the websocket server used for lobby broadcasts.
func (gs *GameService) SetServer(server *Server) {
	gs.server = server
}

// deriveRNG produces an independent reproducible RNG for one room.
func (gs *GameService) deriveRNG() *rand.Rand {
	gs.rngMu.Lock()
	defer gs.rngMu.Unlock()
	return randutil.New(gs.rng.Int64())
}

// CreateRoom creates a room and seats the creator as host.
func (gs *GameService) CreateRoom(conn *Connection, payload CreateRoomPayload) (*Room, error) {
	playerID := uuid.NewString()
	room := gs.registry.CreateRoom(payload.RoomName, payload.Password)

	if err := room.AddPlayer(playerID, payload.PlayerName, payload.Password, conn); err != nil {
		gs.registry.DeleteRoom(room.Code)
		return nil, err
	}

	conn.SetIdentity(playerID, payload.PlayerName)
	conn.SetRoom(room.Code)
	gs.broadcastWaitingRooms()
	return room, nil
}

// JoinRoom seats a player in an existing room.
func (gs *GameService) JoinRoom(conn *Connection, payload JoinRoomPayload) (*Room, error) {
	room, err := gs.registry.GetRoom(payload.RoomCode)
	if err != nil {
		return nil, err
	}

	playerID := uuid.NewString()
	if err := room.AddPlayer(playerID, payload.PlayerName, payload.Password, conn); err != nil {
		return nil, err
	}

	conn.SetIdentity(playerID, payload.PlayerName)
	conn.SetRoom(room.Code)

	room.Notifier().broadcast(MessageTypePlayerJoined, PlayerJoinedPayload{
		Player: PlayerInfo{ID: playerID, Name: payload.PlayerName, IsHost: room.HostID() == playerID},
	})
	gs.broadcastWaitingRooms()
	return room, nil
}

// LeaveRoom unseats the connection's player and tears the room down when
// it empties.
func (gs *GameService) LeaveRoom(conn *Connection) {
	roomCode := conn.GetRoom()
	playerID := conn.GetPlayer()
	if roomCode == "" || playerID == "" {
		return
	}

	room, err := gs.registry.GetRoom(roomCode)
	if err != nil {
		conn.SetRoom("")
		return
	}

	newHostID, empty := room.RemovePlayer(playerID)
	conn.SetRoom("")

	if empty {
		gs.registry.DeleteRoom(roomCode)
	} else {
		room.Notifier().broadcast(MessageTypePlayerLeft, PlayerLeftPayload{
			PlayerID:  playerID,
			NewHostID: newHostID,
		})
	}
	gs.broadcastWaitingRooms()
}

// StartGame starts the game in the caller's room. Only the host may
// start it.
func (gs *GameService) StartGame(conn *Connection) error {
	room, err := gs.roomFor(conn)
	if err != nil {
		return err
	}

	err = room.StartGame(conn.GetPlayer(), func(players []game.Player, notifier game.Notifier) *game.Engine {
		rng := gs.deriveRNG()
		dealer := deck.NewDealer(rng, gs.handSize)
		return game.NewEngine(gs.logger, gs.clock, rng, dealer, notifier, gs.stats, room.Code, players, gs.gameCfg)
	})
	if err != nil {
		return err
	}

	// The room is no longer joinable.
	gs.broadcastWaitingRooms()
	return nil
}

// PlayCards forwards a play to the room's engine.
func (gs *GameService) PlayCards(conn *Connection, payload PlayCardPayload) error {
	engine, err := gs.engineFor(conn)
	if err != nil {
		return err
	}
	return engine.PlayCards(conn.GetPlayer(), payload.CardIDs)
}

// CallBluff forwards a challenge to the room's engine.
func (gs *GameService) CallBluff(conn *Connection) error {
	engine, err := gs.engineFor(conn)
	if err != nil {
		return err
	}
	return engine.CallBluff(conn.GetPlayer())
}

// ReadyForNextGame marks the player ready; when everyone is ready the
// room returns to the waiting state and shows up in the lobby again.
func (gs *GameService) ReadyForNextGame(conn *Connection) error {
	room, err := gs.roomFor(conn)
	if err != nil {
		return err
	}

	reset, err := room.MarkReady(conn.GetPlayer())
	if err != nil {
		return err
	}
	if reset {
		gs.broadcastWaitingRooms()
	}
	return nil
}

// RoomChat relays a chat message to the sender's room.
func (gs *GameService) RoomChat(conn *Connection, payload ChatPayload) error {
	room, err := gs.roomFor(conn)
	if err != nil {
		return err
	}

	room.Notifier().broadcast(MessageTypeChat, ChatBroadcastPayload{
		PlayerID:   conn.GetPlayer(),
		PlayerName: conn.GetName(),
		Message:    payload.Message,
		SentAt:     time.Now(),
	})
	return nil
}

// WaitingRooms lists joinable rooms.
func (gs *GameService) WaitingRooms() []RoomInfo {
	return gs.registry.WaitingRooms()
}

// HandleDisconnect cleans up a dropped connection.
func (gs *GameService) HandleDisconnect(conn *Connection) {
	gs.LeaveRoom(conn)
}

func (gs *GameService) roomFor(conn *Connection) (*Room, error) {
	roomCode := conn.GetRoom()
	if roomCode == "" {
		return nil, ErrRoomNotFound
	}
	return gs.registry.GetRoom(roomCode)
}

func (gs *GameService) engineFor(conn *Connection) (*game.Engine, error) {
	room, err := gs.roomFor(conn)
	if err != nil {
		return nil, err
	}
	engine := room.Engine()
	if engine == nil {
		return nil, game.ErrGameNotRunning
	}
	return engine, nil
}

// broadcastWaitingRooms pushes the joinable room list to every lobby
// connection.
func (gs *GameService) broadcastWaitingRooms() {
	if gs.server == nil {
		return
	}

	msg, err := NewMessage(MessageTypeWaitingRooms, WaitingRoomsPayload{Rooms: gs.WaitingRooms()})
	if err != nil {
		gs.logger.Error().Err(err).Msg("Failed to build waiting rooms message")
		return
	}
	gs.server.BroadcastToLobby(msg)
}
