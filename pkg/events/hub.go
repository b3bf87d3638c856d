package events

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"garrison/pkg/clock"
)

// Event is one custody feed entry pushed to connected watchers.
type Event struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Client represents one connected feed watcher
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan Event    // Channel to push events to this client
	Done   chan struct{} // Signal to stop reading/writing
}

// Hub fans custody events out to all active WebSocket connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // connection id -> Client
	clock   clock.Clock
}

func NewHub(clk clock.Clock) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		clock:   clk,
	}
}

// AddClient registers a new watcher connection
func (h *Hub) AddClient(id, userID string, conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	client := &Client{
		ID:     id,
		UserID: userID,
		Conn:   conn,
		Send:   make(chan Event, 32), // Buffered channel to handle bursts
		Done:   make(chan struct{}),
	}

	h.clients[id] = client
	return client
}

// RemoveClient unregisters a watcher connection
func (h *Hub) RemoveClient(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[id]; ok {
		close(client.Done)
		delete(h.clients, id)
	}
}

// Watchers returns the number of connected clients.
func (h *Hub) Watchers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Publish pushes an event to every connected watcher. Slow clients have the
// event dropped rather than stalling the mutation that produced it.
func (h *Hub) Publish(event string, payload any) {
	e := Event{Event: event, Payload: payload, Timestamp: h.clock.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.Send <- e:
		case <-client.Done:
		default:
			log.Printf("custody feed: dropping %s for slow client %s", event, client.ID)
		}
	}
}
