package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/warungpos/print-bridge/internal/printer"
)

// WebSocket event names pushed to POS UI clients.
const (
	EventConnectSuccess       = "connect_success"
	EventConnectFailure       = "connect_failure"
	EventUnexpectedDisconnect = "unexpected_disconnect"
	EventPrintSuccess         = "print_success"
	EventPrintFailure         = "print_failure"
	EventScanResult           = "scan_result"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WSMessage is the envelope every event travels in.
type WSMessage struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// Hub fans printer session events out to connected WebSocket clients. It is
// broadcast-only: client messages are read for connection liveness and
// discarded.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]bool
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // LAN UI, origin enforcement is the router's job
			},
		},
		clients: make(map[*wsClient]bool),
	}
}

type wsClient struct {
	conn *websocket.Conn
	send chan WSMessage
}

// HandleWS upgrades the request and starts the client pumps.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan WSMessage, 256),
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	h.log.Debug("websocket client connected", "remote", conn.RemoteAddr())

	go h.writePump(client)
	go h.readPump(client)
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends an event to every client. Clients too slow to drain their
// buffer are dropped so a stuck UI cannot stall the bridge.
func (h *Hub) Broadcast(event string, data map[string]interface{}) {
	msg := WSMessage{Event: event, Data: data}

	h.mu.Lock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
	h.mu.Unlock()
}

// Close disconnects every client, for shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

func (h *Hub) drop(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(client *wsClient) {
	defer func() {
		h.drop(client)
		client.conn.Close()
		h.log.Debug("websocket client disconnected", "remote", client.conn.RemoteAddr())
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", "error", err)
			}
			return
		}
	}
}

// The hub doubles as the session notifier so every state change reaches the
// POS UI as it happens.
var _ printer.Notifier = (*Hub)(nil)

func (h *Hub) Connected(id, name string) {
	h.Broadcast(EventConnectSuccess, map[string]interface{}{
		"device_id":   id,
		"device_name": name,
	})
}

func (h *Hub) ConnectFailed(id, reason string) {
	h.Broadcast(EventConnectFailure, map[string]interface{}{
		"device_id": id,
		"reason":    reason,
	})
}

func (h *Hub) Disconnected(id string) {
	h.Broadcast(EventUnexpectedDisconnect, map[string]interface{}{
		"device_id": id,
	})
}

func (h *Hub) PrintSucceeded(id string) {
	h.Broadcast(EventPrintSuccess, map[string]interface{}{
		"device_id": id,
	})
}

func (h *Hub) PrintFailed(id, reason string) {
	h.Broadcast(EventPrintFailure, map[string]interface{}{
		"device_id": id,
		"reason":    reason,
	})
}
