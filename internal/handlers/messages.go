package handlers

import (
	"net/http"

	"github.com/agora-social/agora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// ListChats returns the caller's conversations, most recent first
// GET /api/v1/chats
func (h *Handlers) ListChats(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c)

	chats, err := h.chats.ListChats(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, "list_chats", "chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats, "limit": limit, "offset": offset})
}

// StartChat sends a message to a user, creating the chat on first contact
// POST /api/v1/chats
func (h *Handlers) StartChat(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		RecipientID string `json:"recipient_id" binding:"required"`
		Text        string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	msg, err := h.chats.SendMessage(c.Request.Context(), userID, req.RecipientID, req.Text)
	if err != nil {
		respondError(c, "send_message", "user", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// GetMessages lists a chat's messages, oldest first
// GET /api/v1/chats/:id/messages
func (h *Handlers) GetMessages(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c)

	messages, err := h.chats.Messages(c.Request.Context(), c.Param("id"), userID, limit, offset)
	if err != nil {
		respondError(c, "list_messages", "chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "limit": limit, "offset": offset})
}

// SendMessage appends a message to an existing chat
// POST /api/v1/chats/:id/messages
func (h *Handlers) SendMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	msg, err := h.chats.SendToChat(c.Request.Context(), c.Param("id"), userID, req.Text)
	if err != nil {
		respondError(c, "send_message", "chat", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkRead marks the other participant's messages in a chat as read
// POST /api/v1/chats/:id/read
func (h *Handlers) MarkRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	n, err := h.chats.MarkRead(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, "mark_read", "chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}
