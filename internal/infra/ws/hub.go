package ws

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pingInterval = 25 * time.Second
	pingTimeout  = 5 * time.Second
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type Client struct {
	UserID uuid.UUID
	conn   *websocket.Conn
	send   chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// Done is closed once the client has been removed from the hub.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		clients: map[uuid.UUID]map[*Client]struct{}{},
	}
}

func (h *Hub) AddClient(userID uuid.UUID, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan Event, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop(h)
	go c.keepAliveLoop(h)

	return c
}

func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if ok {
		if _, present := set[c]; !present {
			ok = false
		}
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// Push delivers ev to every open connection of userID. Full buffers drop the
// event; the outbox relay remains the durable path. Returns the number of
// connections the event was queued on.
func (h *Hub) Push(userID uuid.UUID, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	queued := 0
	for c := range h.clients[userID] {
		select {
		case c.send <- ev:
			queued++
		default:
			h.dropped.Add(1)
		}
	}
	return queued
}

// Dropped counts events discarded because a client buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (c *Client) writeLoop(h *Hub) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.send:
			writeCtx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, ev)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed", "user_id", c.UserID.String(), "error", err.Error())
				h.RemoveClient(c)
				return
			}
		}
	}
}

func (c *Client) keepAliveLoop(h *Hub) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(c.ctx, pingTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.RemoveClient(c)
				return
			}
		}
	}
}

// Serve registers a push-only connection and blocks until the peer goes
// away. Reads are discarded so control frames keep being processed.
func (h *Hub) Serve(ctx context.Context, userID uuid.UUID, conn *websocket.Conn) {
	readCtx := conn.CloseRead(ctx)
	c := h.AddClient(userID, conn)
	defer h.RemoveClient(c)

	select {
	case <-readCtx.Done():
	case <-c.Done():
	}
}
