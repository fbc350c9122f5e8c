package handlers

import (
	"net/http"

	"github.com/agora-social/agora/backend/internal/auth"
	"github.com/agora-social/agora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// Register creates an account and returns a session token
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, "register", "user", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login exchanges email and password for a session token
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, "login", "user", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user with fresh counters
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "me", "user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
