package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mobility/internal/monitoring"
	"mobility/pipeline"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Hub fans frame reports out to WebSocket subscribers, grouped by junction.
type Hub struct {
	// clients maps junction id -> set of connections
	clients map[int]map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[int]map[*websocket.Conn]bool),
	}
}

// Register adds a connection for a junction.
func (h *Hub) Register(junction int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[junction] == nil {
		h.clients[junction] = make(map[*websocket.Conn]bool)
	}
	h.clients[junction][conn] = true
	monitoring.Logf("ws: client registered for junction %d (total %d)", junction, len(h.clients[junction]))
}

// Unregister removes a connection for a junction.
func (h *Hub) Unregister(junction int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[junction]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, junction)
		}
	}
}

// HasClients reports whether any client subscribes to the junction.
func (h *Hub) HasClients(junction int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[junction]
	return ok && len(conns) > 0
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, conns := range h.clients {
		count += len(conns)
	}
	return count
}

// Broadcast sends a raw message to all subscribers of the junction. Failed
// connections are dropped.
func (h *Hub) Broadcast(junction int, message []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[junction]))
	for conn := range h.clients[junction] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			monitoring.Logf("ws: send to junction %d client: %v", junction, err)
			h.Unregister(junction, conn)
			conn.Close()
		}
	}
}

// BroadcastReport marshals and broadcasts one frame report. No-op without
// subscribers.
func (h *Hub) BroadcastReport(report pipeline.FrameReport) {
	if !h.HasClients(report.Junction) {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		monitoring.Logf("ws: marshal report: %v", err)
		return
	}
	h.Broadcast(report.Junction, data)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and subscribes the client to a junction.
// Expected URL format: /ws/junctions/{id}
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/ws/junctions/")
	junction, err := strconv.Atoi(strings.TrimSuffix(path, "/"))
	if err != nil {
		http.Error(w, "junction id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("ws: upgrade: %v", err)
		return
	}

	h.Register(junction, conn)
	go h.readPump(junction, conn)
}

// readPump keeps the connection alive and detects client disconnects. The
// client is not expected to send application messages.
func (h *Hub) readPump(junction int, conn *websocket.Conn) {
	done := make(chan struct{})
	defer func() {
		close(done)
		h.Unregister(junction, conn)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The ping loop must exit with the pump; a stopped ticker never closes
	// its channel.
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				monitoring.Logf("ws: read for junction %d: %v", junction, err)
			}
			return
		}
	}
}
