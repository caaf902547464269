package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// shutdownTimeout bounds how long Stop waits for the listener to drain.
const shutdownTimeout = 5 * time.Second

// Server accepts websocket clients and tracks their connections. Room
// membership and game routing live in the GameService; the server only
// owns the listener and the connection set.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	logger      *log.Logger
	gameService *GameService

	mu          sync.RWMutex
	connections map[*Connection]bool
	httpServer  *http.Server
}

// NewServer creates a new WebSocket server
func NewServer(addr string, logger *log.Logger) *Server {
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				// In production, implement proper origin checking
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      logger.WithPrefix("server"),
		connections: make(map[*Connection]bool),
	}
}

// Start serves the websocket and health endpoints, blocking until Stop
// shuts the listener down.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	httpServer := &http.Server{Addr: s.addr, Handler: mux}
	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes every client connection and drains the listener.
func (s *Server) Stop() error {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close() // Ignore close errors during shutdown
	}

	if httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

// handleWebSocket upgrades the request and runs the connection until it
// drops.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.gameService)
	s.addConnection(client)
	client.Start()

	go func() {
		<-client.ctx.Done()
		s.removeConnection(client)
	}()
}

func (s *Server) addConnection(conn *Connection) {
	s.mu.Lock()
	s.connections[conn] = true
	total := len(s.connections)
	s.mu.Unlock()

	s.logger.Info("Client connected", "total", total)
}

// removeConnection drops the connection from the set and vacates its
// room seat. The seat cleanup runs outside the set lock because
// LeaveRoom broadcasts back through the server.
func (s *Server) removeConnection(conn *Connection) {
	s.mu.Lock()
	if !s.connections[conn] {
		s.mu.Unlock()
		return
	}
	delete(s.connections, conn)
	total := len(s.connections)
	s.mu.Unlock()

	if conn.GetRoom() != "" && s.gameService != nil {
		s.logger.Info("Cleaning up disconnected player", "player", conn.GetPlayer(), "room", conn.GetRoom())
		s.gameService.LeaveRoom(conn)
	}
	_ = conn.Close() // Ignore close errors during unregistration

	s.logger.Info("Client disconnected", "total", total)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// BroadcastToLobby sends a message to every connection that is not
// seated in a room.
func (s *Server) BroadcastToLobby(msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.GetRoom() == "" {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send message to client", "error", err, "player", conn.GetPlayer())
			} else {
				count++
			}
		}
	}

	s.logger.Debug("Broadcasted message to lobby", "type", msg.Type, "recipients", count)
}

// SendToPlayer sends a message to a specific player
func (s *Server) SendToPlayer(playerID string, msg *Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.GetPlayer() == playerID {
			return conn.SendMessage(msg)
		}
	}

	return fmt.Errorf("player not found: %s", playerID)
}

// SetGameService sets the game service for the server
func (s *Server) SetGameService(gameService *GameService) {
	s.gameService = gameService
}
