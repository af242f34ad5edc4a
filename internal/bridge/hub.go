package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/glucopilot/glucopilot-agent/internal/agent"
	"github.com/glucopilot/glucopilot-agent/internal/logger"
	"github.com/glucopilot/glucopilot-agent/internal/metrics"
)

// Hub fans agent events out to connected WebSocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*websocket.Conn]bool
}

// NewHub creates a hub that accepts upgrades from the given origins.
// A "*" entry allows any origin.
func NewHub(allowedOrigins []string) *Hub {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	h := &Hub{clients: make(map[*websocket.Conn]bool)}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll {
				// No Origin means a non-browser client.
				return true
			}
			return allowed[origin]
		},
	}
	return h
}

// HandleWS upgrades the request and keeps the connection registered until
// the client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.BridgeClients.Inc()

	logger.Debug("bridge client connected", "remote", r.RemoteAddr, "total", total)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		total := len(h.clients)
		h.mu.Unlock()
		metrics.BridgeClients.Dec()

		_ = conn.Close()
		logger.Debug("bridge client disconnected", "total", total)
	}()

	// Drain client frames; the feed is one-way.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends one event to every connected client.
func (h *Hub) Broadcast(event agent.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			// The read loop cleans the client up once the connection drops.
			logger.Debug("failed to write to bridge client", "error", err)
		}
	}
	return nil
}

// BroadcastFromChannel forwards events until the channel closes or the
// context is cancelled.
func (h *Hub) BroadcastFromChannel(ctx context.Context, events <-chan agent.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := h.Broadcast(event); err != nil {
				logger.Warn("broadcast failed", "error", err)
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll drops every connection. Read loops handle deregistration.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		_ = client.Close()
	}
}
