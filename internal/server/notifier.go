package server

import (
	"sync"

	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/game"
)

// roomNotifier delivers engine events to the room's live connections.
// It keeps its own connection map so engine callbacks never touch the
// room mutex. Sends go through each connection's buffered send channel,
// so delivery is fire-and-forget from the engine's perspective while the
// calls themselves happen in the exact order state changes occur.
type roomNotifier struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	names map[string]string
}

func newRoomNotifier() *roomNotifier {
	return &roomNotifier{
		conns: make(map[string]*Connection),
		names: make(map[string]string),
	}
}

func (n *roomNotifier) attach(playerID, name string, conn *Connection) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conns[playerID] = conn
	n.names[playerID] = name
}

func (n *roomNotifier) detach(playerID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.conns, playerID)
}

func (n *roomNotifier) attachedCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.conns)
}

func (n *roomNotifier) snapshot() map[string]*Connection {
	n.mu.RLock()
	defer n.mu.RUnlock()
	conns := make(map[string]*Connection, len(n.conns))
	for id, c := range n.conns {
		conns[id] = c
	}
	return conns
}

// broadcast sends a server-level message to every player in the room.
func (n *roomNotifier) broadcast(messageType MessageType, payload any) {
	msg, err := NewMessage(messageType, payload)
	if err != nil {
		return
	}
	for _, conn := range n.snapshot() {
		_ = conn.SendMessage(msg)
	}
}

// NotifyRoomState personalizes the snapshot per recipient: each player
// sees their own cards, everyone else's hands are reduced to counts.
func (n *roomNotifier) NotifyRoomState(snapshot game.StateSnapshot) {
	for id, conn := range n.snapshot() {
		msg, err := NewMessage(MessageTypeRoomState, RoomStatePayload{
			Status: string(snapshot.Phase),
			Game:   personalize(snapshot, id),
		})
		if err != nil {
			continue
		}
		_ = conn.SendMessage(msg)
	}
}

// NotifyPlayer sends an event to one player, failing if they have no
// live connection.
func (n *roomNotifier) NotifyPlayer(playerID string, kind game.EventKind, payload any) error {
	n.mu.RLock()
	conn, ok := n.conns[playerID]
	n.mu.RUnlock()
	if !ok {
		return game.ErrPlayerUnavailable
	}

	msg, err := NewMessage(MessageType(kind), payload)
	if err != nil {
		return err
	}
	return conn.SendMessage(msg)
}

// NotifyOthers sends an event to every player except one.
func (n *roomNotifier) NotifyOthers(excludePlayerID string, kind game.EventKind, payload any) {
	msg, err := NewMessage(MessageType(kind), payload)
	if err != nil {
		return
	}
	for id, conn := range n.snapshot() {
		if id == excludePlayerID {
			continue
		}
		_ = conn.SendMessage(msg)
	}
}

// NotifyRoom sends an event to every player in the room.
func (n *roomNotifier) NotifyRoom(kind game.EventKind, payload any) {
	msg, err := NewMessage(MessageType(kind), payload)
	if err != nil {
		return
	}
	for _, conn := range n.snapshot() {
		_ = conn.SendMessage(msg)
	}
}

// personalize strips other players' cards from the snapshot for the
// given recipient.
func personalize(snapshot game.StateSnapshot, recipientID string) game.StateSnapshot {
	players := make([]game.PlayerSnapshot, len(snapshot.Players))
	for i, p := range snapshot.Players {
		if p.ID != recipientID {
			p.Cards = nil
		}
		players[i] = p
	}
	snapshot.Players = players
	return snapshot
}
