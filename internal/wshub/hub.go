package wshub

import (
	"context"
	"encoding/json"
	"sync"

	"quickdraw/internal/events"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// Conn is the part of a websocket connection the pumps use.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Client represents a single WebSocket connection in the hub.
type Client struct {
	ID   string
	Room string
	Conn Conn
	Send <-chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
// It returns when ctx ends, Send is closed or a write fails.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				log.Debug().Err(err).Str("client", c.ID).Msg("websocket write failed")
				return
			}
		}
	}
}

// ReadPump decodes client messages and hands them to handle until the
// connection closes or ctx ends. Malformed frames are skipped.
func (c *Client) ReadPump(ctx context.Context, handle func(events.ClientMessage)) error {
	for {
		typ, data, err := c.Conn.Read(ctx)
		if err != nil {
			if isClosed(err) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		var msg events.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Str("client", c.ID).Msg("ignoring malformed message")
			continue
		}
		handle(msg)
	}
}

func isClosed(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusNoStatusRcvd:
		return true
	}
	return false
}

// Hub tracks every live connection across rooms.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Unregister removes a client.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every registered connection with StatusGoingAway.
func (h *Hub) CloseAll(reason string) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Conn.Close(websocket.StatusGoingAway, reason)
	}
}
