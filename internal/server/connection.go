package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	playerID    string
	playerName  string
	roomCode    string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, gameService *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetIdentity associates this connection with a player id and name
func (c *Connection) SetIdentity(playerID, playerName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
	c.playerName = playerName
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// GetName returns the associated player name
func (c *Connection) GetName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerName
}

// SetRoom associates this connection with a room
func (c *Connection) SetRoom(roomCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = roomCode
}

// GetRoom returns the associated room code
func (c *Connection) GetRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() {
		if c.gameService != nil {
			c.gameService.HandleDisconnect(c)
		}
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage routes incoming messages. Malformed messages are
// rejected uniformly before any game logic runs.
func (c *Connection) handleMessage(msg *Message) {
	if msg.Type == MessageTypePing {
		return
	}

	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	if msg.Type == "" {
		c.sendError("Invalid message format.")
		return
	}

	if c.GetRoom() == "" {
		c.handleLobbyMessage(msg)
	} else {
		c.handleRoomMessage(msg)
	}
}

func (c *Connection) handleLobbyMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeListRooms:
		c.sendWaitingRooms()

	case MessageTypeCreateRoom:
		var payload CreateRoomPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.PlayerName == "" {
			c.sendError("Failed to parse create room payload")
			return
		}
		room, err := c.gameService.CreateRoom(c, payload)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendRoomJoined(MessageTypeRoomCreated, room)

	case MessageTypeJoinRoom:
		var payload JoinRoomPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.PlayerName == "" {
			c.sendError("Failed to parse join room payload")
			return
		}
		room, err := c.gameService.JoinRoom(c, payload)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendRoomJoined(MessageTypeRoomJoined, room)

	default:
		c.sendError("Action not allowed outside of a room.")
	}
}

func (c *Connection) handleRoomMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeStartGame:
		if err := c.gameService.StartGame(c); err != nil {
			c.sendError(err.Error())
		}

	case MessageTypePlayCard:
		var payload PlayCardPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.sendError("Failed to parse play card payload")
			return
		}
		if err := c.gameService.PlayCards(c, payload); err != nil {
			c.sendError(err.Error())
		}

	case MessageTypeCallBluff:
		if err := c.gameService.CallBluff(c); err != nil {
			c.sendError(err.Error())
		}

	case MessageTypeReadyForNext:
		if err := c.gameService.ReadyForNextGame(c); err != nil {
			c.sendError(err.Error())
		}

	case MessageTypeChat:
		var payload ChatPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.sendError("Failed to parse chat payload")
			return
		}
		if err := c.gameService.RoomChat(c, payload); err != nil {
			c.sendError(err.Error())
		}

	case MessageTypeLeaveRoom:
		c.gameService.LeaveRoom(c)
		response, _ := NewMessage(MessageTypeRoomLeft, map[string]string{})
		_ = c.SendMessage(response)

	case MessageTypeCreateRoom, MessageTypeJoinRoom:
		c.sendError("You are already in a room.")

	default:
		c.sendError("Unknown action type: " + msg.Type.String())
	}
}

// sendError sends an error notice to this client only
func (c *Connection) sendError(message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorPayload{Message: message})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}
	_ = c.SendMessage(errorMsg)
}

func (c *Connection) sendWaitingRooms() {
	msg, err := NewMessage(MessageTypeWaitingRooms, WaitingRoomsPayload{
		Rooms: c.gameService.WaitingRooms(),
	})
	if err != nil {
		return
	}
	_ = c.SendMessage(msg)
}

func (c *Connection) sendRoomJoined(messageType MessageType, room *Room) {
	msg, err := NewMessage(messageType, RoomJoinedPayload{
		RoomCode: room.Code,
		RoomName: room.Name,
		PlayerID: c.GetPlayer(),
		IsHost:   room.HostID() == c.GetPlayer(),
		Players:  room.Players(),
	})
	if err != nil {
		return
	}
	_ = c.SendMessage(msg)
}
