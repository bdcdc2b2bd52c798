package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-blink/internal/auth"
	blinkbridge "github.com/nerrad567/gray-logic-blink/internal/bridges/blink"
	"github.com/nerrad567/gray-logic-blink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-blink/internal/infrastructure/logging"
)

// Frame types on the /ws stream.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameAck         = "ack"
	FrameEvent       = "event"
	FrameError       = "error"

	clientQueueSize = 64
)

// eventChannels are the bridge events a client can follow.
var eventChannels = []string{blinkbridge.EventNetworkState, blinkbridge.EventNetworkCommand}

// ClientFrame is a request from a WebSocket client. An empty Channels list
// on subscribe or unsubscribe means every channel.
type ClientFrame struct {
	Type     string   `json:"type"`
	ID       string   `json:"id,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// ServerFrame is pushed to a WebSocket client.
type ServerFrame struct {
	Type      string    `json:"type"`
	ID        string    `json:"id,omitempty"`
	Event     string    `json:"event,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Hub fans bridge events out to WebSocket clients. It satisfies the
// bridge's EventBroadcaster.
type Hub struct {
	logger  *logging.Logger
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	dropped atomic.Uint64
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

// Broadcast queues event for every client following it. Clients whose
// queue is full miss the event; DroppedEvents counts them.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := json.Marshal(ServerFrame{
		Type:      FrameEvent,
		Event:     event,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding websocket event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		if c.follows(event) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			h.dropped.Add(1)
			h.logger.Warn("websocket client too slow, event dropped", "event", event, "user_id", c.userID)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedEvents returns how many events were skipped for slow clients.
func (h *Hub) DroppedEvents() uint64 {
	return h.dropped.Load()
}

func (h *Hub) add(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "user_id", c.userID, "clients", n)
}

func (h *Hub) remove(c *WSClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.close()
	h.logger.Debug("websocket client disconnected", "user_id", c.userID, "clients", n)
}

// WSClient is one authenticated /ws connection.
type WSClient struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	role   auth.Role

	// snapshot yields the current state of every network; sent when the
	// client starts following network.state.
	snapshot func() []blinkbridge.StateMessage

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.RWMutex
	channels map[string]bool
}

func newWSClient(hub *Hub, conn *websocket.Conn, userID string, role auth.Role) *WSClient {
	return &WSClient{
		hub:      hub,
		conn:     conn,
		userID:   userID,
		role:     role,
		queue:    make(chan []byte, clientQueueSize),
		done:     make(chan struct{}),
		channels: make(map[string]bool),
	}
}

// close stops the write loop and the connection. Safe to call repeatedly.
func (c *WSClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// enqueue reports false when the client's queue is full. Frames for a
// closed client are discarded silently.
func (c *WSClient) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.queue <- data:
		return true
	default:
		return false
	}
}

func (c *WSClient) follows(event string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channels[event]
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWebSocket upgrades a request carrying a valid ticket from
// POST /auth/ws-ticket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	entry, ok := s.tickets.consume(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	up := upgrader
	up.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || s.isAllowedOrigin(origin)
	}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newWSClient(s.hub, conn, entry.userID, entry.role)
	c.snapshot = s.stateSnapshot
	s.hub.add(c)

	ka := newKeepalive(s.wsCfg)
	go c.writeLoop(ka)
	go c.readLoop(ka)
}

// stateSnapshot renders the bridge's cached networks as state messages.
// It returns nil before the first successful refresh.
func (s *Server) stateSnapshot() []blinkbridge.StateMessage {
	networks, err := s.bridge.Networks()
	if err != nil {
		return nil
	}
	out := make([]blinkbridge.StateMessage, len(networks))
	for i, n := range networks {
		out[i] = blinkbridge.NewStateMessage(i, n)
	}
	return out
}

type keepalive struct {
	ping  time.Duration
	wait  time.Duration
	limit int64
}

func newKeepalive(cfg config.WebSocketConfig) keepalive {
	return keepalive{
		ping:  time.Duration(cfg.PingInterval) * time.Second,
		wait:  time.Duration(cfg.PongTimeout) * time.Second,
		limit: int64(cfg.MaxMessageSize),
	}
}

func (c *WSClient) readLoop(ka keepalive) {
	defer c.hub.remove(c)

	extend := func() {
		//nolint:errcheck // A failed deadline surfaces on the next read
		c.conn.SetReadDeadline(time.Now().Add(ka.ping + ka.wait))
	}
	c.conn.SetReadLimit(ka.limit)
	extend()
	c.conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", "user_id", c.userID, "error", err)
			}
			return
		}
		extend()
		c.handleFrame(data)
	}
}

func (c *WSClient) writeLoop(ka keepalive) {
	ticker := time.NewTicker(ka.ping)
	defer ticker.Stop()

	for {
		var (
			kind = websocket.TextMessage
			data []byte
		)
		select {
		case <-c.done:
			//nolint:errcheck // Connection is going away either way
			c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(time.Second))
			return
		case data = <-c.queue:
		case <-ticker.C:
			kind = websocket.PingMessage
		}

		//nolint:errcheck // A failed deadline surfaces on the write
		c.conn.SetWriteDeadline(time.Now().Add(ka.wait))
		if err := c.conn.WriteMessage(kind, data); err != nil {
			c.close()
			return
		}
	}
}

func (c *WSClient) handleFrame(data []byte) {
	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		c.reply(FrameError, "", "invalid JSON frame")
		return
	}

	switch f.Type {
	case FramePing:
		c.reply(FramePong, f.ID, nil)
	case FrameSubscribe:
		c.subscribe(f)
	case FrameUnsubscribe:
		channels, err := resolveChannels(f.Channels)
		if err != nil {
			c.reply(FrameError, f.ID, err.Error())
			return
		}
		c.mu.Lock()
		for _, ch := range channels {
			delete(c.channels, ch)
		}
		c.mu.Unlock()
		c.reply(FrameAck, f.ID, map[string][]string{"unsubscribed": channels})
	default:
		c.reply(FrameError, f.ID, fmt.Sprintf("unknown frame type %q", f.Type))
	}
}

func (c *WSClient) subscribe(f ClientFrame) {
	if !auth.HasPermission(c.role, auth.PermNetworkRead) {
		c.reply(FrameError, f.ID, "role may not read network state")
		return
	}
	channels, err := resolveChannels(f.Channels)
	if err != nil {
		c.reply(FrameError, f.ID, err.Error())
		return
	}

	c.mu.Lock()
	newState := !c.channels[blinkbridge.EventNetworkState]
	for _, ch := range channels {
		c.channels[ch] = true
	}
	c.mu.Unlock()

	c.reply(FrameAck, f.ID, map[string][]string{"subscribed": channels})

	if newState && slices.Contains(channels, blinkbridge.EventNetworkState) && c.snapshot != nil {
		for _, msg := range c.snapshot() {
			c.push(ServerFrame{Type: FrameEvent, Event: blinkbridge.EventNetworkState, Payload: msg})
		}
	}
}

// resolveChannels validates requested channels; none means all of them.
func resolveChannels(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return slices.Clone(eventChannels), nil
	}
	for _, ch := range requested {
		if !slices.Contains(eventChannels, ch) {
			return nil, fmt.Errorf("unknown channel %q", ch)
		}
	}
	return requested, nil
}

func (c *WSClient) reply(frameType, id string, payload any) {
	if frameType == FrameError {
		payload = map[string]any{"message": payload}
	}
	c.push(ServerFrame{Type: frameType, ID: id, Payload: payload})
}

func (c *WSClient) push(f ServerFrame) {
	f.Timestamp = time.Now().UTC()
	data, err := json.Marshal(f)
	if err != nil {
		c.hub.logger.Error("encoding websocket frame", "type", f.Type, "error", err)
		return
	}
	if !c.enqueue(data) {
		c.hub.dropped.Add(1)
	}
}
