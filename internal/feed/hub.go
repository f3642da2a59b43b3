package feed

import (
	"log/slog"
	"sync"
)

const clientBuffer = 16

type client struct {
	id   string
	send chan Message
}

// hub tracks websocket clients. Sends never block: a client whose buffer is
// full misses that message.
type hub struct {
	mu      sync.Mutex
	clients map[string]*client
	closed  bool
	logger  *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

func (h *hub) add(id string) (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &client{id: id, send: make(chan Message, clientBuffer)}
	h.clients[id] = c
	return c, true
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.send)
	}
}

func (h *hub) broadcast(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- message:
		default:
			h.logger.Debug("feed client lagging, message dropped", "client", id, "type", message.Type)
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}
