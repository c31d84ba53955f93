// Package websocket broadcasts capture and sync events to connected
// admin dashboards.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Event is the wire envelope sent to dashboard clients
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Hub maintains the set of active dashboard clients
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[string]*Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				close(old.send)
			}
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("🖥️ [WS] Dashboard connected: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				log.Printf("🖥️ [WS] Dashboard disconnected: %s", client.ID)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Buffer full or client dead; drop the message
					log.Printf("⚠️ [WS] Dropping event for slow client %s", id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends an event to every connected dashboard.
// Implements the fieldops.Notifier interface.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		log.Printf("⚠️ [WS] Failed to marshal event %s: %v", event, err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		// Hub loop backed up; events are advisory, drop rather than block
	}
}

// ClientCount reports the number of connected dashboards
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
