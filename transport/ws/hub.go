// Package ws is the reference WebSocket transport for a notebook's observer
// stream (SPEC_FULL §6.2, §2.3). One Hub fans out one Coordinator's events
// to every browser tab watching that notebook; it is grounded on the
// teacher's internal/infrastructure/websocket hub/client split, simplified
// from per-workflow/per-execution subscription indexes to a single
// per-notebook broadcast since a Coordinator already scopes one notebook.
package ws

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/carter293/reactive-notebook/coordinator"
)

// Hub manages the WebSocket clients watching one notebook and relays
// coordinator.Events to all of them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan coordinator.Event

	log zerolog.Logger
	mu  sync.RWMutex
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan coordinator.Event, 256),
		log:        log.With().Str("component", "ws_hub").Logger(),
	}
}

// Run drives the hub's event loop; call it in a goroutine. Events reach it
// through Feed, which pumps a Coordinator Observer's events into h.broadcast.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Debug().Str("client_id", c.id).Int("clients", len(h.clients)).Msg("client registered")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- ev:
				default:
					h.log.Warn().Str("client_id", c.id).Msg("client send buffer full, dropping event")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Feed forwards every event from an Observer subscription into the hub's
// broadcast channel until the observer is unsubscribed.
func (h *Hub) Feed(obs *coordinator.Observer) {
	for ev := range obs.Events() {
		h.broadcast <- ev
	}
}

// Register adds a client and starts its read/write pumps.
func (h *Hub) Register(c *Client) {
	h.register <- c
	go c.WritePump()
	go c.ReadPump()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
