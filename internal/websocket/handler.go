package websocket

import (
	"encoding/json"
	"time"

	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/models"
	"github.com/agora-social/agora/backend/internal/util"
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler upgrades authenticated requests to websocket connections.
type Handler struct {
	hub            *Hub
	originPatterns []string
}

// NewHandler creates a websocket handler. originPatterns are host
// patterns accepted in the Origin header; "*" accepts any origin.
func NewHandler(hub *Hub, originPatterns []string) *Handler {
	return &Handler{hub: hub, originPatterns: originPatterns}
}

// HandleWebSocket runs behind the auth middleware, which reads the token
// from the query string for browsers.
// GET /api/v1/ws?token=...
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	username := ""
	if u, exists := c.Get("user"); exists {
		if user, ok := u.(*models.User); ok {
			username = user.Username
		}
	}

	opts := &websocket.AcceptOptions{OriginPatterns: h.originPatterns}
	for _, p := range h.originPatterns {
		if p == "*" {
			opts.InsecureSkipVerify = true
		}
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", logger.WithUserID(userID), zap.Error(err))
		return
	}

	client := NewClient(c.Request.Context(), h.hub, conn, userID, username)

	// Queued before Register, while nothing else can close the channel
	welcome, _ := json.Marshal(NewMessage(MessageTypeSystem, SystemPayload{
		Event: "connected",
		Data: map[string]interface{}{
			"user_id":     userID,
			"server_time": time.Now().UTC().UnixMilli(),
		},
	}))
	client.send <- welcome
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump()
}
