// Package websocket pushes committed engagement and chat events to the
// users they concern. Built on github.com/coder/websocket.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/metrics"
	"go.uber.org/zap"
)

const unicastBufferSize = 1024

// Hub tracks connected clients by user id and fans messages out to them.
// All map mutation happens on the Run goroutine.
type Hub struct {
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	unicast    chan *unicastMessage

	mu sync.RWMutex

	metrics *metrics.Metrics

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
}

type unicastMessage struct {
	userID string
	data   []byte
}

// NewHub creates a hub. Call Run in its own goroutine.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		unicast:    make(chan *unicastMessage, unicastBufferSize),
		metrics:    metrics.Get(),
		ctx:        ctx,
		cancel:     cancel,
		stopped:    make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.stopped)
	logger.Log.Info("🔌 WebSocket hub starting")

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.unicast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
	h.metrics.WebSocketConnections.Inc()

	logger.Log.Debug("WebSocket client connected", logger.WithUserID(client.UserID))
}

// unregisterClient is a no-op for clients already removed, so the send
// channel is closed exactly once.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.UserID)
	}
	close(client.send)
	h.metrics.WebSocketConnections.Dec()

	logger.Log.Debug("WebSocket client disconnected", logger.WithUserID(client.UserID))
}

func (h *Hub) deliver(msg *unicastMessage) {
	h.mu.RLock()
	var slow []*Client
	for client := range h.clients[msg.userID] {
		select {
		case client.send <- msg.data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// A client that cannot keep up is dropped; it reconnects and re-reads.
	for _, client := range slow {
		logger.Log.Warn("Dropping slow WebSocket client", logger.WithUserID(client.UserID))
		h.unregisterClient(client)
	}
}

// SendToUser queues message for every connection of userID. It never
// blocks: when the queue is full the message is dropped.
func (h *Hub) SendToUser(userID string, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Failed to marshal websocket message", zap.String("type", message.Type), zap.Error(err))
		return
	}

	select {
	case h.unicast <- &unicastMessage{userID: userID, data: data}:
	case <-h.ctx.Done():
	default:
		logger.Log.Warn("WebSocket queue full, dropping message",
			logger.WithUserID(userID),
			zap.String("type", message.Type),
		)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsUserOnline reports whether userID has at least one open connection
func (h *Hub) IsUserOnline(userID string) bool {
	return h.GetUserConnectionCount(userID) > 0
}

// GetUserConnectionCount returns the number of connections for a user
func (h *Hub) GetUserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Shutdown stops the event loop and closes every connection.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()

	select {
	case <-h.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("websocket hub shutdown: %w", ctx.Err())
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, _ := json.Marshal(NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"}))

	closed := 0
	for _, clients := range h.clients {
		for client := range clients {
			select {
			case client.send <- data:
			default:
			}
			close(client.send)
			h.metrics.WebSocketConnections.Dec()
			closed++
		}
	}
	h.clients = make(map[string]map[*Client]struct{})

	logger.Log.Info("🔌 WebSocket hub stopped", zap.Int("closed", closed), zap.Time("at", time.Now().UTC()))
}
