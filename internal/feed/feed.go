// Package feed pushes appended blocks to websocket subscribers.
package feed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jmerrifield20/powchain/internal/chain"
	"go.uber.org/zap"
)

// EventBlockAppended is the event type sent for every new block.
const EventBlockAppended = "BLOCK_APPENDED"

const writeWait = 10 * time.Second

// Event is the JSON frame written to subscribers.
type Event struct {
	Type    string      `json:"type"`
	Payload chain.Block `json:"payload"`
}

// Hub fans events out to connected websocket clients.
type Hub struct {
	upgrader   websocket.Upgrader
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan Event
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}

	logger *zap.Logger
}

// NewHub creates a Hub. Call Run to start delivering events.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan Event, 64),
		done:       make(chan struct{}),
		clients:    make(map[*websocket.Conn]struct{}),
		logger:     logger,
	}
}

// Run delivers events until ctx is cancelled, then closes all clients.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = struct{}{}
			h.mu.Unlock()
		case conn := <-h.unregister:
			h.drop(conn)
		case ev := <-h.broadcast:
			h.mu.RLock()
			conns := make([]*websocket.Conn, 0, len(h.clients))
			for c := range h.clients {
				conns = append(conns, c)
			}
			h.mu.RUnlock()
			for _, c := range conns {
				_ = c.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.WriteJSON(ev); err != nil {
					h.logger.Debug("feed write failed, dropping subscriber", zap.Error(err))
					h.drop(c)
				}
			}
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Publish queues a block for delivery. It matches node.AppendFunc. Events are
// dropped rather than blocking the caller when the queue is full.
func (h *Hub) Publish(b chain.Block, _ time.Duration) {
	select {
	case h.broadcast <- Event{Type: EventBlockAppended, Payload: b}:
	default:
		h.logger.Warn("feed queue full, dropping event", zap.Uint64("index", b.Index))
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the subscriber registered until
// the peer disconnects. Incoming frames are discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}
