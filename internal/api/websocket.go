package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// ProtocolVersion1 is the only supported event stream protocol
	ProtocolVersion1 = "openlaptop-v1"

	// Event types pushed to viewers
	EventManifestUpdated    = "manifest_updated"
	EventWorkflowDispatched = "workflow_dispatched"

	defaultPingInterval = 30 * time.Second
	pongWait            = 60 * time.Second
	writeTimeout        = 10 * time.Second
	maxMessageSize      = 4096
	sendBufferSize      = 32
)

// Event is a server push message
type Event struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// clientMessage is what viewers may send to the server
type clientMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

type eventError struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// eventClient is one connected viewer
type eventClient struct {
	conn    *websocket.Conn
	send    chan []byte
	hub     *EventHub
	version string
}

// EventHub fans events out to all connected viewers
type EventHub struct {
	clients    map[*eventClient]bool
	broadcast  chan []byte
	register   chan *eventClient
	unregister chan *eventClient
	done       chan struct{}
	mu         sync.RWMutex

	allowedOrigins []string
	upgrader       websocket.Upgrader
	log            *zap.Logger
}

// NewEventHub creates a hub. Call Run to start delivering events.
func NewEventHub(allowedOrigins []string, log *zap.Logger) *EventHub {
	h := &EventHub{
		clients:        make(map[*eventClient]bool),
		broadcast:      make(chan []byte, 64),
		register:       make(chan *eventClient),
		unregister:     make(chan *eventClient),
		done:           make(chan struct{}),
		allowedOrigins: allowedOrigins,
		log:            log.With(zap.String("component", "events")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(h.allowedOrigins, r.Header.Get("Origin"))
		},
	}
	return h
}

// Run delivers events until ctx is cancelled, then disconnects every client
func (h *EventHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("Viewer connected", zap.String("version", client.version))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debug("Viewer disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish sends an event to every connected viewer. It never blocks: when
// the hub is stopped or its queue is full the event is dropped.
func (h *EventHub) Publish(eventType string, data interface{}) {
	event := Event{Type: eventType, Timestamp: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			h.log.Error("Failed to marshal event", zap.String("type", eventType), zap.Error(err))
			return
		}
		event.Data = raw
	}

	message, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Failed to marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		h.log.Warn("Event queue full, dropping event", zap.String("type", eventType))
	}
}

// ClientCount returns the number of connected viewers
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades GET /ws to an event stream
func (h *EventHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	requested := r.Header.Get("Sec-WebSocket-Protocol")
	selectedVersion := negotiateVersion(requested)
	if selectedVersion == "" {
		h.log.Info("WebSocket version negotiation failed", zap.String("requested", requested))
		respondWithError(w, http.StatusBadRequest, "Unsupported protocol version")
		return
	}

	var responseHeaders http.Header
	if requested != "" {
		responseHeaders = http.Header{}
		responseHeaders.Set("Sec-WebSocket-Protocol", selectedVersion)
	}

	conn, err := h.upgrader.Upgrade(w, r, responseHeaders)
	if err != nil {
		// Upgrade has already written an error response
		h.log.Info("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &eventClient{
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		hub:     h,
		version: selectedVersion,
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// negotiateVersion selects the highest supported protocol version
func negotiateVersion(requested string) string {
	if requested == "" {
		return ProtocolVersion1
	}

	supportedVersions := []string{ProtocolVersion1}
	for _, supported := range supportedVersions {
		for _, candidate := range strings.Split(requested, ",") {
			if strings.TrimSpace(candidate) == supported {
				return supported
			}
		}
	}
	return ""
}

// readPump consumes client messages until the connection fails
func (c *eventClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Info("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("", "Invalid message format", "InvalidMessageFormat")
			continue
		}

		switch msg.Type {
		case "ping":
			c.sendJSON(Event{Type: "pong", ID: msg.ID, Timestamp: time.Now().UTC()})
		default:
			c.sendError(msg.ID, "Unknown message type", "UnknownMessageType")
		}
	}
}

// writePump delivers queued messages and keeps the connection alive
func (c *eventClient) writePump() {
	ticker := time.NewTicker(defaultPingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *eventClient) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.hub.log.Error("Failed to marshal message", zap.Error(err))
		return
	}

	// The hub may close send concurrently; hold the read lock while sending
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.log.Warn("Failed to send message: channel full")
	}
}

func (c *eventClient) sendError(id, message, code string) {
	c.sendJSON(eventError{Type: "error", ID: id, Error: message, Code: code})
}
