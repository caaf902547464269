package server

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/roomid"
)

var ErrRoomNotFound = errors.New("room not found")

// Registry is the injectable room store keyed by room code. The registry
// mutex only guards the map; each room serializes its own operations, so
// different rooms run fully in parallel.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	codeGen *roomid.Generator
	logger  zerolog.Logger
}

// NewRegistry creates an empty registry. codeGen may carry a seeded
// RandSource for deterministic codes in tests.
func NewRegistry(logger zerolog.Logger, codeGen *roomid.Generator) *Registry {
	return &Registry{
		rooms:   make(map[string]*Room),
		codeGen: codeGen,
		logger:  logger.With().Str("component", "registry").Logger(),
	}
}

// CreateRoom creates a room with a freshly generated, unused code.
func (reg *Registry) CreateRoom(name, password string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var code string
	for {
		code = reg.codeGen.Generate()
		if _, taken := reg.rooms[code]; !taken {
			break
		}
	}

	room := NewRoom(reg.logger, code, name, password)
	reg.rooms[code] = room
	reg.logger.Info().Str("room", code).Str("name", name).Msg("Room created")
	return room
}

// GetRoom returns the room with the given code.
func (reg *Registry) GetRoom(code string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// DeleteRoom tears down and removes a room.
func (reg *Registry) DeleteRoom(code string) {
	reg.mu.Lock()
	room, ok := reg.rooms[code]
	delete(reg.rooms, code)
	reg.mu.Unlock()

	if ok {
		room.Close()
		reg.logger.Info().Str("room", code).Msg("Room deleted")
	}
}

// WaitingRooms lists rooms that can still be joined.
func (reg *Registry) WaitingRooms() []RoomInfo {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		if room.Status() != StatusWaiting {
			continue
		}
		infos = append(infos, room.Info())
	}
	return infos
}

// RoomCount returns the number of registered rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
