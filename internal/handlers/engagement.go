package handlers

import (
	"net/http"

	"github.com/agora-social/agora/backend/internal/ledger"
	"github.com/agora-social/agora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// ToggleLike likes the post, or unlikes it if the caller already does
// POST /api/v1/posts/:id/like
func (h *Handlers) ToggleLike(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	h.idempotent(c, ledger.OpToggleLike, userID, "post", http.StatusOK, func() (interface{}, error) {
		return h.ledger.ToggleLike(c.Request.Context(), postID, userID)
	})
}

// CheckLiked reports whether the caller likes the post
// GET /api/v1/posts/:id/like
func (h *Handlers) CheckLiked(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	liked, err := h.ledger.CheckLiked(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, ledger.OpCheckLiked, "post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// ToggleFollow follows the user, or unfollows if already following
// POST /api/v1/users/:id/follow
func (h *Handlers) ToggleFollow(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	targetID := c.Param("id")

	h.idempotent(c, ledger.OpToggleFollow, userID, "user", http.StatusOK, func() (interface{}, error) {
		return h.ledger.ToggleFollow(c.Request.Context(), userID, targetID)
	})
}

// CheckFollowing reports whether the caller follows the user
// GET /api/v1/users/:id/follow
func (h *Handlers) CheckFollowing(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	following, err := h.ledger.CheckFollowing(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, ledger.OpCheckFollowing, "user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

// AddComment appends a comment to a post
// POST /api/v1/posts/:id/comments
func (h *Handlers) AddComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	h.idempotent(c, ledger.OpAddComment, userID, "post", http.StatusCreated, func() (interface{}, error) {
		return h.ledger.AddComment(c.Request.Context(), postID, userID, callerName(c), req.Body)
	})
}
