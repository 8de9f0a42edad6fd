// Package hub fans real-time events out to connected websocket clients.
// Delivery is advisory: no queueing, no replay, no acknowledgment. A client
// that is offline when an event fires reconstructs state from the store on
// its next read.
package hub

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// sendBuffer is how many undelivered events a client may lag behind before
// further events are dropped for it
const sendBuffer = 16

// Client is one connected socket, registered under the authenticated user id
type Client struct {
	ID     string
	UserID int64
	send   chan []byte
}

// Events returns the channel the connection's write pump drains
func (c *Client) Events() <-chan []byte {
	return c.send
}

// Mirror receives every published event alongside the websocket clients,
// e.g. to forward it to a linked Telegram chat
type Mirror interface {
	Deliver(recipients []int64, event interface{})
}

// Hub tracks connected clients and delivers events to the users they belong
// to. Events are addressed to explicit recipient user ids; the hub never
// fans out to sockets that are not entitled to the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	mirror  Mirror
}

// New creates an empty Hub
func New() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// SetMirror installs an optional secondary delivery channel
func (h *Hub) SetMirror(m Mirror) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mirror = m
}

// Register adds a connection for a user and returns its client handle
func (h *Hub) Register(userID int64) *Client {
	client := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		send:   make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	return client
}

// Unregister removes a connection and closes its event channel
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.send)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish delivers an event to every connection belonging to one of the
// recipient users. A slow consumer whose buffer is full is skipped for this
// event, not queued or retried.
func (h *Hub) Publish(recipients []int64, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("hub: failed to marshal event: %v", err)
		return
	}

	wanted := make(map[int64]bool, len(recipients))
	for _, id := range recipients {
		wanted[id] = true
	}

	h.mu.RLock()
	mirror := h.mirror
	for _, client := range h.clients {
		if !wanted[client.UserID] {
			continue
		}
		select {
		case client.send <- payload:
		default:
			log.Printf("hub: dropping event for slow client %s (user %d)", client.ID, client.UserID)
		}
	}
	h.mu.RUnlock()

	if mirror != nil {
		go mirror.Deliver(recipients, event)
	}
}
