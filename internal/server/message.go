package server

import (
	"encoding/json"
	"time"

	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/game"
)

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants, shared with the web client.
const (
	// Client to server messages
	MessageTypePing         MessageType = "PING"
	MessageTypeListRooms    MessageType = "LIST_ROOMS"
	MessageTypeCreateRoom   MessageType = "CREATE_ROOM"
	MessageTypeJoinRoom     MessageType = "JOIN_ROOM"
	MessageTypeLeaveRoom    MessageType = "LEAVE_ROOM"
	MessageTypeStartGame    MessageType = "START_GAME"
	MessageTypePlayCard     MessageType = "PLAY_CARD"
	MessageTypeCallBluff    MessageType = "CALL_BLUFF"
	MessageTypeReadyForNext MessageType = "READY_FOR_NEXT_GAME"
	MessageTypeChat         MessageType = "CHAT_MESSAGE"

	// Server to client messages
	MessageTypeError        MessageType = "ERROR"
	MessageTypeRoomCreated  MessageType = "ROOM_CREATED"
	MessageTypeRoomJoined   MessageType = "ROOM_JOINED"
	MessageTypeRoomLeft     MessageType = "ROOM_LEFT"
	MessageTypeRoomState    MessageType = "ROOM_STATE"
	MessageTypeWaitingRooms MessageType = "WAITING_ROOMS"
	MessageTypePlayerJoined MessageType = "PLAYER_JOINED"
	MessageTypePlayerLeft   MessageType = "PLAYER_LEFT"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Payload:   payloadBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type CreateRoomPayload struct {
	RoomName   string `json:"roomName"`
	PlayerName string `json:"playerName"`
	Password   string `json:"password,omitempty"`
}

type JoinRoomPayload struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	Password   string `json:"password,omitempty"`
}

type PlayCardPayload struct {
	CardIDs []string `json:"cardsId"`
}

type ChatPayload struct {
	Message string `json:"message"`
}

// Server → Client Messages

type ErrorPayload struct {
	Message string `json:"message"`
}

type RoomInfo struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	CurrentPlayers int    `json:"currentPlayers"`
	MaxPlayers     int    `json:"maxPlayers"`
	HasPassword    bool   `json:"hasPassword"`
}

type WaitingRoomsPayload struct {
	Rooms []RoomInfo `json:"rooms"`
}

type RoomJoinedPayload struct {
	RoomCode string       `json:"roomCode"`
	RoomName string       `json:"roomName"`
	PlayerID string       `json:"playerId"`
	IsHost   bool         `json:"isHost"`
	Players  []PlayerInfo `json:"players"`
}

type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

type PlayerJoinedPayload struct {
	Player PlayerInfo `json:"player"`
}

type PlayerLeftPayload struct {
	PlayerID  string `json:"playerId"`
	NewHostID string `json:"newHostId,omitempty"`
}

type ChatBroadcastPayload struct {
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Message    string    `json:"message"`
	SentAt     time.Time `json:"sentAt"`
}

// RoomStatePayload carries the personalized game state snapshot. Each
// recipient sees their own cards; other hands are reduced to counts.
type RoomStatePayload struct {
	Status string             `json:"status"`
	Game   game.StateSnapshot `json:"game"`
}
