package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/engine"
	"github.com/ayusman/mindfultouch/internal/log"
	"github.com/ayusman/mindfultouch/internal/notify"
	"github.com/ayusman/mindfultouch/internal/region"
)

// Message types exchanged over the WebSocket.
const (
	TypeDetectionData  = "detection_data"
	TypeNotification   = "notification"
	TypeToggleRegion   = "toggle_region"
	TypeToggleResponse = "region_toggle_response"
	TypePing           = "ping"
	TypePong           = "pong"
	TypeError          = "error"
)

const (
	sendBuffer = 16
	writeWait  = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// ToggleSink accepts region toggles from clients. Toggles are applied by the
// detection loop between frames.
type ToggleSink interface {
	ToggleRegion(t config.Toggle) error
}

// envelope is the server to client message.
type envelope struct {
	Type      string  `json:"type"`
	Data      any     `json:"data,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// inbound is the client to server message.
type inbound struct {
	Type    string `json:"type"`
	Region  string `json:"region"`
	Enabled bool   `json:"enabled"`
}

type toggleReply struct {
	Type    string `json:"type"`
	Region  string `json:"region"`
	Enabled bool   `json:"enabled"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans detection results out to WebSocket clients and forwards their
// region toggles to a ToggleSink.
type Hub struct {
	sink    ToggleSink
	clients map[*client]struct{}
	latest  []byte
	closed  bool
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewHub creates a hub forwarding toggles to sink.
func NewHub(sink ToggleSink) *Hub {
	return &Hub{
		sink:    sink,
		clients: make(map[*client]struct{}),
		logger:  log.Component("ws"),
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// BroadcastDetection sends a detection result to every client and keeps it
// for clients that connect later.
func (h *Hub) BroadcastDetection(res engine.DetectionResult) {
	msg, err := json.Marshal(envelope{Type: TypeDetectionData, Data: res, Timestamp: unixSeconds(res.Timestamp)})
	if err != nil {
		h.logger.Error("failed to encode detection", "error", err)
		return
	}

	h.mu.Lock()
	h.latest = msg
	h.mu.Unlock()

	h.broadcast(msg)
}

// BroadcastAlert tells clients a notification was shown.
func (h *Hub) BroadcastAlert(a notify.Alert) {
	msg, err := json.Marshal(envelope{Type: TypeNotification, Data: a, Timestamp: unixSeconds(a.Timestamp)})
	if err != nil {
		h.logger.Error("failed to encode alert", "error", err)
		return
	}
	h.broadcast(msg)
}

// broadcast queues msg on every client. Slow clients miss messages rather
// than stall the detection loop.
func (h *Hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("dropping message for slow client", "remote", c.conn.RemoteAddr())
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		c.conn.Close()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.latest != nil {
		c.send <- h.latest
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}
	h.logger.Info("client connected", "remote", conn.RemoteAddr(), "clients", h.ClientCount())

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()

	h.readPump(c)
	h.unregister(c)
	<-done
	conn.Close()
	h.logger.Info("client disconnected", "remote", conn.RemoteAddr())
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			// Unblock readPump.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) readPump(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			h.reply(c, envelope{Type: TypeError, Data: "invalid JSON"})
			continue
		}

		switch in.Type {
		case TypeToggleRegion:
			h.reply(c, h.toggle(in))
		case TypePing:
			h.reply(c, envelope{Type: TypePong})
		default:
			h.reply(c, envelope{Type: TypeError, Data: "unknown message type: " + in.Type})
		}
	}
}

func (h *Hub) toggle(in inbound) toggleReply {
	reply := toggleReply{Type: TypeToggleResponse, Region: in.Region, Enabled: in.Enabled, Status: "success"}

	t := config.Toggle{Region: region.Name(in.Region), Enabled: in.Enabled}
	if !t.Region.Valid() {
		reply.Status = "error"
		reply.Error = "unknown region: " + in.Region
		return reply
	}
	if err := h.sink.ToggleRegion(t); err != nil {
		reply.Status = "error"
		reply.Error = err.Error()
		return reply
	}
	h.logger.Info("region toggle queued", "region", t.Region, "enabled", t.Enabled)
	return reply
}

func (h *Hub) reply(c *client, v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
