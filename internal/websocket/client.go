package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second

	// A client that sends nothing and answers no ping for this long is gone
	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	// Clients only send pings, so inbound frames stay small
	maxMessageSize = 4 * 1024

	sendBufferSize = 64
)

// Client is one websocket connection of one user
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	UserID   string
	Username string

	// Outbound frames; closed by the hub on unregister
	send chan []byte

	ConnectedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

// NewClient creates a client bound to the lifetime of parent
func NewClient(parent context.Context, hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	ctx, cancel := context.WithCancel(parent)
	return &Client{
		conn:        conn,
		hub:         hub,
		UserID:      userID,
		Username:    username,
		send:        make(chan []byte, sendBufferSize),
		ConnectedAt: time.Now().UTC(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ReadPump reads client frames until the connection drops. It blocks.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, readCancel := context.WithTimeout(c.ctx, pongWait)
		_, data, err := c.conn.Read(readCtx)
		readCancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && c.ctx.Err() == nil {
				logger.Log.Debug("WebSocket read ended", logger.WithUserID(c.UserID), zap.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.queue(NewErrorMessage("invalid_json", "failed to parse message"))
			continue
		}
		c.handleMessage(&message)
	}
}

// WritePump drains the send channel and keeps the connection alive with
// pings. It returns when the hub closes the channel or the client closes.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case data, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "closing")
				return
			}

			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Log.Debug("WebSocket write failed", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Debug("WebSocket ping failed", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case MessageTypePing:
		var ping PingPayload
		_ = message.ParsePayload(&ping)

		serverTime := time.Now().UnixMilli()
		pong := NewMessage(MessageTypePong, PongPayload{
			ClientTime: ping.ClientTime,
			ServerTime: serverTime,
			Latency:    serverTime - ping.ClientTime,
		})
		pong.ReplyTo = message.ID
		c.queue(pong)
	default:
		c.queue(NewErrorMessage("unknown_type", "unsupported message type: "+message.Type))
	}
}

// queue sends a reply to this connection only. The hub owns the send
// channel, so replies go through it as well.
func (c *Client) queue(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.UserID][c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Close cancels the client and closes the connection. Safe to call twice.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close(websocket.StatusNormalClosure, "closing")
	})
}
