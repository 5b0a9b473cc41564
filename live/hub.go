// Package live pushes change notifications to open dashboards over WebSocket.
// A notification carries no data; clients re-fetch their list when one arrives.
package live

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eringen/pilotsite/metrics"
)

const writeWait = 5 * time.Second

// Hub tracks subscribers per key (an author id or a collection name).
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu   sync.Mutex
	subs map[string]map[*websocket.Conn]struct{}
}

// NewHub returns a Hub that accepts same-origin upgrades only.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{ReadBufferSize: 512, WriteBufferSize: 512},
		log:      log,
		subs:     make(map[string]map[*websocket.Conn]struct{}),
	}
}

// Serve upgrades the request and holds the connection open under key until
// the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, key string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.add(key, conn)
	defer h.remove(key, conn)

	for {
		// Reads only detect the disconnect; clients send nothing.
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

func (h *Hub) add(key string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[key]
	if set == nil {
		set = make(map[*websocket.Conn]struct{})
		h.subs[key] = set
	}
	set[conn] = struct{}{}
	metrics.LiveSubscribers.Inc()
}

func (h *Hub) remove(key string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[key]; ok {
		if _, ok := set[conn]; ok {
			delete(set, conn)
			metrics.LiveSubscribers.Dec()
			conn.Close()
		}
		if len(set) == 0 {
			delete(h.subs, key)
		}
	}
}

// Subscribers returns the number of open connections under key.
func (h *Hub) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

// Broadcast sends a "changed" message to every subscriber of key. Connections
// that fail the write are dropped.
func (h *Hub) Broadcast(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.subs[key] {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte("changed")); err != nil {
			if h.log != nil {
				h.log.Debug("drop live subscriber", "key", key, "error", err)
			}
			delete(h.subs[key], conn)
			metrics.LiveSubscribers.Dec()
			conn.Close()
		}
	}
	if len(h.subs[key]) == 0 {
		delete(h.subs, key)
	}
}
