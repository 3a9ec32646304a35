package ws

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"typerace/internal/domain"
)

// Hub tracks live connections and their room channels. It implements the
// transport primitives the dispatcher and room sessions rely on.
type Hub struct {
	clients  map[string]*Client
	channels map[string]map[string]struct{} // roomID -> connIDs
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[string]struct{}),
		logger:   logger,
	}
}

// Register adds a live connection
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.GetConnID()] = c
}

// Unregister removes a connection and all of its channel memberships
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, connID)
	for roomID, members := range h.channels {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.channels, roomID)
		}
	}
}

// Subscribe joins a connection to a room channel
func (h *Hub) Subscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.channels[roomID]
	if !ok {
		members = make(map[string]struct{})
		h.channels[roomID] = members
	}
	members[connID] = struct{}{}
}

// Unsubscribe removes a connection from a room channel
func (h *Hub) Unsubscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.channels[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.channels, roomID)
		}
	}
}

// SendTo delivers an event to one connection
func (h *Hub) SendTo(connID string, event *domain.GameEvent) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()

	if !ok {
		return
	}
	h.deliver(client, event)
}

// BroadcastToRoom delivers an event to every connection in a room channel
func (h *Hub) BroadcastToRoom(roomID string, event *domain.GameEvent) {
	h.mu.RLock()
	recipients := make([]*Client, 0, len(h.channels[roomID]))
	for connID := range h.channels[roomID] {
		if client, ok := h.clients[connID]; ok {
			recipients = append(recipients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range recipients {
		h.deliver(client, event)
	}
}

// GetConnectionCount returns the number of live connections
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every live connection
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}

func (h *Hub) deliver(client *Client, event *domain.GameEvent) {
	msg := &ServerMessage{
		Event:     string(event.Type),
		Data:      event.Payload,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
	}
	if err := client.Send(msg); err != nil {
		h.logger.Debug("failed to send to client", zap.String("connId", client.GetConnID()), zap.Error(err))
	}
}
