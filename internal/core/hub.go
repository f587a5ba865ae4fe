package core

import "sync"

// Hub is the multicast primitive: it knows every live client by connection ID
// and delivers events to arbitrary target sets. How a target set was computed
// is the caller's business.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
}

// Deliver sends the event to each connection in the target set. Delivery is
// isolated per target: a dead or slow connection is skipped, never blocking
// the others.
func (h *Hub) Deliver(event *Event, connIDs []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, connID := range connIDs {
		if client, ok := h.clients[connID]; ok {
			client.send(event)
		}
	}
}
