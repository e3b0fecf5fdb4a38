package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"projectgen/pkg/logx"
)

// Topics carried on the websocket.
const (
	TopicPipeline = "pipeline"
	TopicLogs     = "logs"
	TopicSync     = "sync"
)

const sendBuffer = 256

//nolint:gochecknoglobals // stateless upgrader
var upgrader = websocket.Upgrader{
	// The server binds to an operator-chosen address and serves read-only data.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Event is one websocket message.
type Event struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
}

type clientCommand struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics,omitempty"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu sync.RWMutex
	// nil receives every topic
	subscriptions map[string]bool
}

// Hub fans events out to connected websocket clients. Slow clients are dropped.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex

	stateProvider func() any
	logger        *logx.Logger
	dropped       atomic.Int64
}

// NewHub creates a hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logx.NewLogger("ws"),
	}
}

// Run dispatches until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Debug("client connected (%d total)", h.ClientCount())
			h.sendInitialState(c)

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client disconnected (%d total)", h.ClientCount())

		case ev := <-h.broadcast:
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("marshal %s/%s: %v", ev.Topic, ev.Type, err)
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				if !c.wantsTopic(ev.Topic) {
					continue
				}
				select {
				case c.send <- data:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues ev. It never blocks: when the queue is full the event is
// dropped and counted. Drops are not logged since log entries are themselves broadcast.
func (h *Hub) Broadcast(ev Event) {
	select {
	case h.broadcast <- ev:
	default:
		h.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded on a full queue.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Publish marshals data and broadcasts it under topic.
func (h *Hub) Publish(topic, eventType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Warn("marshal %s/%s: %v", topic, eventType, err)
		return
	}
	h.Broadcast(Event{Topic: topic, Type: eventType, Data: raw})
}

// SetStateProvider sets what a newly connected client receives first.
func (h *Hub) SetStateProvider(fn func() any) {
	h.mu.Lock()
	h.stateProvider = fn
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and registers the connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed: %v", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) sendInitialState(c *client) {
	h.mu.RLock()
	provider := h.stateProvider
	h.mu.RUnlock()
	if provider == nil {
		return
	}
	state := provider()
	if state == nil {
		return
	}
	raw, err := json.Marshal(state)
	if err != nil {
		h.logger.Warn("marshal initial state: %v", err)
		return
	}
	data, _ := json.Marshal(Event{Topic: TopicSync, Type: "initial_state", Data: raw})
	select {
	case c.send <- data:
	default:
	}
}

func (c *client) wantsTopic(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions == nil || c.subscriptions[topic]
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("read error: %v", err)
			}
			return
		}
		c.handleCommand(message)
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *client) handleCommand(message []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch cmd.Type {
	case "subscribe":
		if c.subscriptions == nil {
			c.subscriptions = make(map[string]bool)
		}
		for _, t := range cmd.Topics {
			c.subscriptions[t] = true
		}
	case "unsubscribe":
		for _, t := range cmd.Topics {
			delete(c.subscriptions, t)
		}
	}
}
