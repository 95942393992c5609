package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is a server-push notification for dashboards: new chat turns,
// escalations, resolutions.
type Event struct {
	Type string    `json:"type"` // "chat", "ticket", "speech"
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

// Hub fans events out to connected websocket clients. Slow clients are
// dropped rather than allowed to stall the broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	logger  *slog.Logger

	upgrader websocket.Upgrader
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]chan []byte),
		logger:  logger,
		upgrader: websocket.Upgrader{
			// The REST layer already handles auth; origin checks are
			// deliberately permissive for same-host dashboards.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Broadcast queues an event for every connected client.
func (h *Hub) Broadcast(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Warn("event marshal failed", "type", evt.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- payload:
		default:
			h.logger.Warn("dropping slow websocket client")
			delete(h.clients, conn)
			close(ch)
			conn.Close()
		}
	}
}

// ClientCount returns how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	// Reader goroutine drains control frames and detects disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()

	for payload := range ch {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(conn)
			return
		}
	}
	// Channel closed by the slow-client drop, which already closed conn.
	h.remove(conn)
}

// remove unregisters a client. Whichever exit path gets here first
// closes the channel and the conn; later callers find the client gone
// and do nothing, so the conn is closed exactly once.
func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	ch, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(ch)
	}
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}
