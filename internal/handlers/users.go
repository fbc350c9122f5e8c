package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/agora-social/agora/backend/internal/content"
	"github.com/agora-social/agora/backend/internal/models"
	"github.com/agora-social/agora/backend/internal/repository"
	"github.com/agora-social/agora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// profileView is a user as other users see it
type profileView struct {
	models.User
	IsFollowing bool `json:"is_following"`
	IsSelf      bool `json:"is_self"`
}

// GetProfile returns a user's profile with counters and whether the
// caller follows them
// GET /api/v1/users/:id
func (h *Handlers) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	callerID := util.OptionalUserID(c)

	user, err := h.users.GetUser(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "get_profile", "user", err)
		return
	}

	view := profileView{User: *user, IsSelf: callerID == user.ID}
	if !view.IsSelf {
		view.Email = ""
	}
	if callerID != "" && !view.IsSelf {
		view.IsFollowing, err = h.ledger.CheckFollowing(ctx, callerID, user.ID)
		if err != nil {
			respondError(c, "get_profile", "user", err)
			return
		}
	}
	c.JSON(http.StatusOK, view)
}

// UpdateMe edits the caller's profile. Omitted fields stay unchanged.
// PUT /api/v1/users/me
func (h *Handlers) UpdateMe(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		DisplayName *string `json:"display_name" binding:"omitempty,max=50"`
		Username    *string `json:"username" binding:"omitempty,min=3,max=30"`
		Bio         *string `json:"bio" binding:"omitempty,max=500"`
		AvatarURL   *string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var update repository.ProfileUpdate
	if req.DisplayName != nil {
		name := content.Plain(*req.DisplayName)
		if name == "" {
			util.RespondValidationError(c, "display_name", "display name cannot be empty")
			return
		}
		update.DisplayName = &name
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if !validUsername(username) {
			util.RespondValidationError(c, "username", "username may only contain letters, digits, '.' and '_'")
			return
		}
		update.Username = &username
	}
	if req.Bio != nil {
		bio := content.Plain(*req.Bio)
		update.Bio = &bio
	}
	if req.AvatarURL != nil {
		if !models.IsAvailableAvatar(*req.AvatarURL) {
			util.RespondValidationError(c, "avatar_url", "avatar must be one of the preset avatars")
			return
		}
		update.AvatarURL = req.AvatarURL
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, update)
	if err != nil {
		respondError(c, "update_profile", "user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func validUsername(s string) bool {
	if len(s) < 3 || len(s) > 30 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// SearchUsers finds users whose username starts with q, excluding the
// caller
// GET /api/v1/users/search?q=
func (h *Handlers) SearchUsers(c *gin.Context) {
	limit, _ := util.Pagination(c)

	users, err := h.users.SearchUsers(c.Request.Context(), c.Query("q"), util.OptionalUserID(c), limit)
	if err != nil {
		respondError(c, "search_users", "user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetFollowers lists who follows a user, newest first
// GET /api/v1/users/:id/followers
func (h *Handlers) GetFollowers(c *gin.Context) {
	h.followList(c, h.users.GetFollowers)
}

// GetFollowing lists who a user follows, newest first
// GET /api/v1/users/:id/following
func (h *Handlers) GetFollowing(c *gin.Context) {
	h.followList(c, h.users.GetFollowing)
}

func (h *Handlers) followList(c *gin.Context, list func(ctx context.Context, userID string, limit, offset int) ([]*models.User, error)) {
	ctx := c.Request.Context()
	userID := c.Param("id")
	limit, offset := util.Pagination(c)

	if _, err := h.users.GetUser(ctx, userID); err != nil {
		respondError(c, "follow_list", "user", err)
		return
	}

	users, err := list(ctx, userID, limit, offset)
	if err != nil {
		respondError(c, "follow_list", "user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "limit": limit, "offset": offset})
}

// GetUserPosts lists a user's posts, newest first
// GET /api/v1/users/:id/posts
func (h *Handlers) GetUserPosts(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")
	limit, offset := util.Pagination(c)

	if _, err := h.users.GetUser(ctx, userID); err != nil {
		respondError(c, "user_posts", "user", err)
		return
	}

	posts, err := h.posts.GetUserPosts(ctx, userID, limit, offset)
	if err != nil {
		respondError(c, "user_posts", "user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"posts":  h.views(ctx, util.OptionalUserID(c), posts),
		"limit":  limit,
		"offset": offset,
	})
}
