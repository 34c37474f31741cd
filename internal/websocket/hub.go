package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a real-time change notification. OwnerID names the user whose
// notes changed, so receiving clients can decide whether to refresh.
type Message struct {
	Type    string `json:"type"`
	Entity  string `json:"entity"`
	Action  string `json:"action"`
	ID      int64  `json:"id,omitempty"`
	OwnerID int64  `json:"owner_id,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id, ownerID int64) Message {
	return Message{
		Type:    fmt.Sprintf("%s_%s", entity, action),
		Entity:  entity,
		Action:  action,
		ID:      id,
		OwnerID: ownerID,
	}
}

// Hub maintains the set of active WebSocket clients, keyed by the
// authenticated user behind each connection.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(msg Message) {
	h.send(msg, nil)
}

// BroadcastTo sends a message only to connections belonging to the given
// users. A share change, for example, concerns the owner and the grantee
// and nobody else.
func (h *Hub) BroadcastTo(userIDs []int64, msg Message) {
	audience := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		audience[id] = true
	}
	h.send(msg, audience)
}

func (h *Hub) send(msg Message, audience map[int64]bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if audience != nil && !audience[c.userID] {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
