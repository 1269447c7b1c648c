package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/gesture"
)

const (
	// hubBuffer is how many events may queue before new ones are dropped.
	hubBuffer = 64
	writeWait = 2 * time.Second
)

// EventTransition is the Event type for gesture changes.
const EventTransition = "transition"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is one message pushed to /api/events clients.
type Event struct {
	Type      string `json:"type"`
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp int64  `json:"timestamp"`
}

// Hub fans gesture transitions out to websocket clients. Publish never
// blocks; events are dropped while the queue is full.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	events  chan []byte
	done    chan struct{}
	once    sync.Once
	dropped int
}

// NewHub creates a hub and starts its writer.
func NewHub() *Hub {
	h := &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		events:  make(chan []byte, hubBuffer),
		done:    make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// Publish queues a transition event. It is safe to call from the frame loop.
func (h *Hub) Publish(t gesture.Transition) {
	msg, err := json.Marshal(Event{
		Type:      EventTransition,
		From:      t.From,
		To:        t.To,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	select {
	case h.events <- msg:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many events were discarded on a full queue.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "Shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcast is the only writer to client connections.
func (h *Hub) broadcast() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for conn := range h.clients {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				conn.Close()
			}
			h.mu.Unlock()
			return
		case msg := <-h.events:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					slog.Debug("dropping websocket client", "error", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Close disconnects every client and stops the writer. It is idempotent.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}
