package bridge

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"fpbridge/internal/logging"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is one message pushed to /ws subscribers.
type Event struct {
	Type string      `json:"type"`
	Time int64       `json:"time"`
	Data interface{} `json:"data,omitempty"`
}

// Hub fans out bridge events (receipt lifecycle, sale results,
// reports) to connected websocket clients. The POS page subscribes so
// its display follows the printer without polling /status.
type Hub struct {
	logger  *logging.Logger
	clients map[*websocket.Conn]bool
	mutex   sync.Mutex
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeWS upgrades the request and keeps the connection registered
// until the client goes away. Inbound messages are drained and
// ignored; the feed is one-way.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn(fmt.Sprintf("Websocket upgrade failed: %v", err))
		}
		return
	}

	// Welcome goes out before the conn joins the broadcast set; gorilla
	// allows only one concurrent writer per connection.
	conn.WriteJSON(Event{Type: "connected", Time: time.Now().Unix()})

	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mutex.Lock()
	delete(h.clients, conn)
	h.mutex.Unlock()
	conn.Close()
}

// Broadcast sends an event to every client; clients that fail to
// write are dropped.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	event := Event{Type: eventType, Time: time.Now().Unix(), Data: data}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}
