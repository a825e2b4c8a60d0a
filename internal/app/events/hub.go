// Package events broadcasts settled swaps, gateway operations and governance
// changes to WebSocket subscribers. Delivery is best effort: slow consumers
// are disconnected rather than allowed to stall the publishers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OmniStable-Network/bridge_layer/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Envelope is the wire form of one published event.
type Envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu sync.RWMutex
	// filter holds the subscribed event names. Empty means every event.
	filter map[string]struct{}
}

type subscription struct {
	c      *client
	events []string
	clear  bool
}

// Hub fans published events out to connected WebSocket clients. It
// implements system.Service; Publish before Start or after Stop is a no-op.
type Hub struct {
	log *logger.Logger

	register    chan *client
	unregister  chan *client
	subscribe   chan subscription
	broadcastEv chan envelopeMsg

	mu      sync.Mutex
	running bool
	done    chan struct{}
	stopped chan struct{}

	clientsMu sync.RWMutex
	clients   map[*client]struct{}
}

type envelopeMsg struct {
	event   string
	payload []byte
}

// NewHub constructs a hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewDefault("events")
	}
	return &Hub{
		log:         log,
		register:    make(chan *client),
		unregister:  make(chan *client),
		subscribe:   make(chan subscription),
		broadcastEv: make(chan envelopeMsg, 256),
		clients:     make(map[*client]struct{}),
	}
}

// Name implements system.Service.
func (h *Hub) Name() string { return "events" }

// Start launches the fan-out loop.
func (h *Hub) Start(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return fmt.Errorf("event hub already running")
	}
	h.done = make(chan struct{})
	h.stopped = make(chan struct{})
	h.running = true
	go h.run(h.done, h.stopped)
	h.log.Info("event hub started")
	return nil
}

// Stop disconnects all clients and halts the loop.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	close(h.done)
	stopped := h.stopped
	h.mu.Unlock()

	select {
	case <-stopped:
	case <-ctx.Done():
		return fmt.Errorf("event hub shutdown: %w", ctx.Err())
	}
	h.log.Info("event hub stopped")
	return nil
}

// Publish broadcasts an event to all subscribed clients. Payloads that do
// not marshal are dropped with a warning; a full broadcast queue drops the
// event rather than blocking the caller.
func (h *Hub) Publish(event string, payload any) {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()
	if !running {
		return
	}

	raw, err := json.Marshal(Envelope{Event: event, Timestamp: time.Now().UTC(), Data: payload})
	if err != nil {
		h.log.WithError(err).Warnf("dropping unmarshalable %s event", event)
		return
	}

	select {
	case h.broadcastEv <- envelopeMsg{event: event, payload: raw}:
	default:
		h.log.Warnf("event queue full, dropping %s", event)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Handler upgrades an HTTP request to a WebSocket subscription.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		running := h.running
		done := h.done
		h.mu.Unlock()
		if !running {
			http.Error(w, "event hub unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.WithError(err).Warn("websocket upgrade failed")
			return
		}

		c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
		select {
		case h.register <- c:
			go c.writePump()
			go c.readPump()
		case <-done:
			_ = conn.Close()
		}
	}
}

// drop hands a client back to the run loop, or gives up if the hub has
// already shut down and closed everything itself.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()
	if done == nil {
		return
	}
	select {
	case h.unregister <- c:
	case <-done:
	}
}

func (h *Hub) route(sub subscription) {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()
	if done == nil {
		return
	}
	select {
	case h.subscribe <- sub:
	case <-done:
	}
}

func (h *Hub) run(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	for {
		select {
		case <-done:
			h.clientsMu.Lock()
			for c := range h.clients {
				close(c.send)
				_ = c.conn.Close()
				delete(h.clients, c)
			}
			h.clientsMu.Unlock()
			return

		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.clientsMu.Unlock()
			h.log.Debugf("client connected, %d total", total)

		case c := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.clientsMu.Unlock()
			h.log.Debugf("client disconnected, %d total", total)

		case sub := <-h.subscribe:
			sub.c.mu.Lock()
			if sub.clear {
				sub.c.filter = nil
			} else {
				if sub.c.filter == nil {
					sub.c.filter = make(map[string]struct{})
				}
				for _, ev := range sub.events {
					sub.c.filter[ev] = struct{}{}
				}
			}
			sub.c.mu.Unlock()

		case msg := <-h.broadcastEv:
			h.clientsMu.RLock()
			var stalled []*client
			for c := range h.clients {
				if !c.wants(msg.event) {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					stalled = append(stalled, c)
				}
			}
			h.clientsMu.RUnlock()

			// Drop stalled clients so one slow reader cannot back up
			// the hub.
			for _, c := range stalled {
				h.clientsMu.Lock()
				if _, ok := h.clients[c]; ok {
					delete(h.clients, c)
					close(c.send)
					_ = c.conn.Close()
				}
				h.clientsMu.Unlock()
			}
		}
	}
}

func (c *client) wants(event string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.filter) == 0 {
		return true
	}
	_, ok := c.filter[event]
	return ok
}

// clientMessage is the inbound control protocol: subscribe narrows the
// event filter, reset widens it back to everything.
type clientMessage struct {
	Type   string   `json:"type"`
	Events []string `json:"events,omitempty"`
}

func (c *client) readPump() {
	defer func() {
		c.hub.drop(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.WithError(err).Debug("websocket read failed")
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "subscribe":
			if len(msg.Events) > 0 {
				c.hub.route(subscription{c: c, events: msg.Events})
			}
		case "reset":
			c.hub.route(subscription{c: c, clear: true})
		case "ping":
			select {
			case c.send <- []byte(`{"type":"pong"}`):
			default:
			}
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
