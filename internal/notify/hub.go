// Package notify provides best-effort, fire-and-forget browser notifications
// over WebSocket. Delivery failures never affect the mutation that triggered
// the event.
package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/qoricash/tradingdesk/internal/logging"
)

// Event kinds broadcast to connected clients.
const (
	EventOperationCreated   = "operation.created"
	EventOperationUpdated   = "operation.updated"
	EventOperationCompleted = "operation.completed"
	EventOperationCanceled  = "operation.canceled"
	EventDashboardRefresh   = "dashboard.refresh"
)

// Event is a single notification keyed by operation tracking id.
type Event struct {
	Kind       string         `json:"kind"`
	TrackingID string         `json:"tracking_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	At         time.Time      `json:"at"`
}

// Hub fans events out to connected WebSocket clients. Slow or dead clients
// are dropped rather than blocking the broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]chan Event
	gauge   func(int)
	log     *logging.Logger

	upgrader websocket.Upgrader
}

// NewHub creates an empty hub.
func NewHub(log *logging.Logger) *Hub {
	if log == nil {
		log = logging.NewDefault("notify")
	}
	return &Hub{
		clients: make(map[string]chan Event),
		log:     log,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			// Cross-origin policy is enforced by the CORS middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// WithGauge reports the connected-client count through fn whenever it changes.
func (h *Hub) WithGauge(fn func(int)) *Hub {
	h.gauge = fn
	return h
}

// Name implements the lifecycle service interface.
func (h *Hub) Name() string { return "notify-hub" }

// Start implements the lifecycle service interface.
func (h *Hub) Start(context.Context) error { return nil }

// Stop disconnects all clients.
func (h *Hub) Stop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
	h.reportCount()
	return nil
}

// Publish broadcasts the event without blocking. Clients whose send buffer is
// full miss the event.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	id := uuid.NewString()
	ch := make(chan Event, 32)

	h.mu.Lock()
	h.clients[id] = ch
	h.reportCount()
	h.mu.Unlock()

	h.log.WithField("client_id", id).Debug("websocket client connected")

	go h.writeLoop(id, conn, ch)
	h.readLoop(id, conn)
}

func (h *Hub) writeLoop(id string, conn *websocket.Conn, ch chan Event) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(event); err != nil {
				h.drop(id)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(id)
				return
			}
		}
	}
}

func (h *Hub) readLoop(id string, conn *websocket.Conn) {
	// Inbound messages are ignored; the read loop only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(id)
			return
		}
	}
}

func (h *Hub) drop(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
		h.reportCount()
	}
}

// reportCount must be called with mu held.
func (h *Hub) reportCount() {
	if h.gauge != nil {
		h.gauge(len(h.clients))
	}
}
