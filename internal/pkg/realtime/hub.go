// Package realtime pushes events to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/smartcity/civicdash/internal/pkg/events"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pingInterval = 25 * time.Second
)

// Event is what a client receives.
type Event struct {
	Type   string          `json:"type"`
	Action string          `json:"action,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// Subscription says which events a connection wants. Officials follow their
// department; admins follow every department.
type Subscription struct {
	UserID         string
	Department     string
	AllDepartments bool
}

type Client struct {
	sub  Subscription
	conn *websocket.Conn
	send chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: map[*Client]struct{}{},
		byUser:  map[string]map[*Client]struct{}{},
	}
}

// AddClient registers conn and starts its writer and keep-alive loops.
func (h *Hub) AddClient(sub Subscription, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		sub:    sub,
		conn:   conn,
		send:   make(chan Event, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.byUser[sub.UserID] == nil {
		h.byUser[sub.UserID] = map[*Client]struct{}{}
	}
	h.byUser[sub.UserID][c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	go c.keepAliveLoop()
	return c
}

func (h *Hub) RemoveClient(c *Client) {
	c.cancel()

	h.mu.Lock()
	delete(h.clients, c)
	if set, ok := h.byUser[c.sub.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byUser, c.sub.UserID)
		}
	}
	h.mu.Unlock()

	_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Deliver routes an envelope to the named users and to everyone following its
// department. A connection receives each envelope at most once.
func (h *Hub) Deliver(env events.Envelope) {
	ev := Event{Type: env.Type, Action: env.Action, Data: env.Data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make(map[*Client]struct{})
	for _, uid := range env.UserIDs {
		for c := range h.byUser[uid] {
			targets[c] = struct{}{}
		}
	}
	if env.Department != "" {
		for c := range h.clients {
			if c.sub.AllDepartments || c.sub.Department == env.Department {
				targets[c] = struct{}{}
			}
		}
	}

	for c := range targets {
		select {
		case c.send <- ev:
		default:
			log.Warnf("[Realtime] Send buffer full for %s, dropping %s.%s", c.sub.UserID, ev.Type, ev.Action)
		}
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.send:
			writeCtx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, ev)
			cancel()
			if err != nil {
				log.Debugf("[Realtime] Write to %s failed: %v", c.sub.UserID, err)
			}
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
			_ = c.conn.Ping(pingCtx)
			cancel()
		}
	}
}
