// Package hub implements the WebSocket server surface: accepting
// connections, tracking per-channel subscriptions, and broadcasting
// events, action results, and pipeline notifications to subscribed
// clients. Adapted from the client-side connection-management shape of
// a Home Assistant WebSocket client (dedicated read loop, serialized
// writes) turned inside-out for gorilla/websocket's server Upgrader.
package hub

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Channel is the closed set of broadcast channels clients may subscribe to.
type Channel string

const (
	ChannelEvents    Channel = "events"
	ChannelActions   Channel = "actions"
	ChannelPipelines Channel = "pipelines"
	ChannelSystem    Channel = "system"
)

// inbound is the shape of a client-sent frame.
type inbound struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// Each outbound frame shape below matches the wire protocol exactly —
// one struct per message type rather than a single generic envelope,
// so a client decoding by "type" finds the fields it expects at the
// top level instead of nested under a catch-all "data" key.

type welcomeFrame struct {
	Type      string    `json:"type"`
	ClientID  string    `json:"client_id"`
	Timestamp time.Time `json:"timestamp"`
}

type subscribedFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

type unsubscribedFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

type pongFrame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type eventFrame struct {
	Type      string    `json:"type"`
	Event     any       `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

type actionFrame struct {
	Type       string    `json:"type"`
	Result     any       `json:"result"`
	PipelineID string    `json:"pipeline_id"`
	NodeID     string    `json:"node_id"`
	Timestamp  time.Time `json:"timestamp"`
}

type pipelineFrame struct {
	Type       string    `json:"type"`
	PipelineID string    `json:"pipeline_id"`
	Status     any       `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

type statusFrame struct {
	Type      string    `json:"type"`
	Status    any       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ActionPayload is what cmd/signaldockd broadcasts on ChannelActions —
// an action result scoped to the pipeline/node that produced it.
type ActionPayload struct {
	PipelineID string
	NodeID     string
	Result     any
}

// PipelineStatus is what cmd/signaldockd broadcasts on ChannelPipelines.
type PipelineStatus struct {
	PipelineID string
	Status     any
}

const (
	outboundQueueSize = 64
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
)

// Hub tracks connected clients and their channel subscriptions, and
// broadcasts messages to them.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
	// subs[channel][clientID] tracks subscription membership; a client
	// not present under a channel receives nothing broadcast to it.
	subs map[Channel]map[string]bool
}

// New creates a Hub. Origin checking is left permissive (no browser
// same-origin auth model applies to a local host-signal tool); callers
// needing stricter CORS can wrap ServeHTTP.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[string]*client),
		subs:    make(map[Channel]map[string]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

type client struct {
	id      string
	conn    *websocket.Conn
	send    chan any
	closeMu sync.Once
	done    chan struct{}
}

// ServeHTTP upgrades the request to a WebSocket connection, registers
// the client, and starts its reader and writer goroutines.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("hub: upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan any, outboundQueueSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Info("hub: client connected", "client_id", c.id)

	go h.writeLoop(c)
	c.enqueue(welcomeFrame{Type: "welcome", ClientID: c.id, Timestamp: time.Now().UTC()})

	h.readLoop(c)
}

// readLoop owns conn.ReadJSON; only this goroutine ever reads from the
// connection, matching the one-reader invariant gorilla/websocket requires.
func (h *Hub) readLoop(c *client) {
	defer h.disconnect(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("hub: read error, disconnecting client", "client_id", c.id, "error", err)
			}
			return
		}
		h.handleInbound(c, msg)
	}
}

func (h *Hub) handleInbound(c *client, msg inbound) {
	switch msg.Type {
	case "subscribe":
		ch := Channel(msg.Channel)
		if !validChannel(ch) {
			c.enqueue(errorFrame{Type: "error", Message: "unknown channel: " + msg.Channel})
			return
		}
		h.mu.Lock()
		if h.subs[ch] == nil {
			h.subs[ch] = make(map[string]bool)
		}
		h.subs[ch][c.id] = true
		h.mu.Unlock()
		c.enqueue(subscribedFrame{Type: "subscribed", Channel: msg.Channel})

	case "unsubscribe":
		ch := Channel(msg.Channel)
		h.mu.Lock()
		delete(h.subs[ch], c.id)
		h.mu.Unlock()
		c.enqueue(unsubscribedFrame{Type: "unsubscribed", Channel: msg.Channel})

	case "ping":
		c.enqueue(pongFrame{Type: "pong", Timestamp: time.Now().UTC()})

	default:
		c.enqueue(errorFrame{Type: "error", Message: "unknown message type: " + msg.Type})
	}
}

func validChannel(ch Channel) bool {
	switch ch {
	case ChannelEvents, ChannelActions, ChannelPipelines, ChannelSystem:
		return true
	default:
		return false
	}
}

// writeLoop is the single goroutine allowed to write to conn, draining
// c.send so Broadcast never blocks on a slow client. c.send is never
// closed — only c.done is — so a concurrent enqueue can never race a
// send on a closed channel; this goroutine is simply the last reader
// to stop looking at it.
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pongWait / 2)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Warn("hub: write error, disconnecting client", "client_id", c.id, "error", err)
				h.disconnect(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.disconnect(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// enqueue drops the message (rather than blocking Broadcast or the
// read loop) when a client's outbound queue is full, and never blocks
// or panics once the client has disconnected — c.send is never closed,
// so this send is always safe to attempt.
func (c *client) enqueue(msg any) {
	select {
	case c.send <- msg:
	default:
	}
}

// disconnect purges c from every channel and the client map under a
// single lock, and is safe to call more than once. It deliberately
// never closes c.send: a concurrent Broadcast or handleInbound call
// may still be enqueuing on it, and closing would turn that into a
// send-on-closed-channel panic instead of a harmless dropped message
// after writeLoop has already stopped reading.
func (h *Hub) disconnect(c *client) {
	c.closeMu.Do(func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		for _, members := range h.subs {
			delete(members, c.id)
		}
		h.mu.Unlock()
		close(c.done)
		h.logger.Info("hub: client disconnected", "client_id", c.id)
	})
}

// Broadcast enqueues a channel-appropriate frame onto every client
// currently subscribed to channel. The subscriber set is read under
// RLock; enqueuing itself happens outside the lock so a slow client's
// full queue never blocks delivery to everyone else.
func (h *Hub) Broadcast(channel Channel, data any) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.subs[channel]))
	for id := range h.subs[channel] {
		ids = append(ids, id)
	}
	clients := make([]*client, 0, len(ids))
	for _, id := range ids {
		if c, ok := h.clients[id]; ok {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	msg := frameFor(channel, data)
	for _, c := range clients {
		c.enqueue(msg)
	}
}

// frameFor shapes data into the wire frame for channel: events carry
// the raw SignalEvent under "event", actions and pipelines carry their
// pipeline/node scoping alongside their payload, and system carries an
// opaque status blob.
func frameFor(channel Channel, data any) any {
	now := time.Now().UTC()
	switch channel {
	case ChannelEvents:
		return eventFrame{Type: "event", Event: data, Timestamp: now}
	case ChannelActions:
		if ap, ok := data.(ActionPayload); ok {
			return actionFrame{Type: "action", Result: ap.Result, PipelineID: ap.PipelineID, NodeID: ap.NodeID, Timestamp: now}
		}
		return actionFrame{Type: "action", Result: data, Timestamp: now}
	case ChannelPipelines:
		if ps, ok := data.(PipelineStatus); ok {
			return pipelineFrame{Type: "pipeline", PipelineID: ps.PipelineID, Status: ps.Status, Timestamp: now}
		}
		return pipelineFrame{Type: "pipeline", Status: data, Timestamp: now}
	default:
		return statusFrame{Type: "status", Status: data, Timestamp: now}
	}
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
