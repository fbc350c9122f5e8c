package handlers

import (
	"context"
	"net/http"

	"github.com/agora-social/agora/backend/internal/content"
	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/models"
	"github.com/agora-social/agora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// postView is a post as the API returns it
type postView struct {
	*models.Post
	BodyHTML  string `json:"body_html"`
	LikedByMe bool   `json:"liked_by_me"`
}

type commentView struct {
	*models.Comment
	BodyHTML string `json:"body_html"`
}

// views renders bodies and marks the posts callerID has liked. Anonymous
// callers get liked_by_me=false everywhere.
func (h *Handlers) views(ctx context.Context, callerID string, posts []*models.Post) []postView {
	var liked map[string]bool
	if callerID != "" && len(posts) > 0 {
		ids := make([]string, len(posts))
		for i, p := range posts {
			ids[i] = p.ID
		}
		var err error
		if liked, err = h.posts.LikedPostIDs(ctx, callerID, ids); err != nil {
			logger.WarnWithFields("Failed to load liked posts", err)
		}
	}

	out := make([]postView, len(posts))
	for i, p := range posts {
		out[i] = postView{
			Post:      p,
			BodyHTML:  content.RenderMarkdown(p.Body),
			LikedByMe: liked[p.ID],
		}
	}
	return out
}

// GetFeed returns every post, newest first
// GET /api/v1/feed
func (h *Handlers) GetFeed(c *gin.Context) {
	limit, offset := util.Pagination(c)

	posts, err := h.posts.GetFeed(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, "feed", "feed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":  h.views(c.Request.Context(), util.OptionalUserID(c), posts),
		"limit":  limit,
		"offset": offset,
	})
}

// GetTimeline returns the caller's posts and those of users they follow
// GET /api/v1/feed/timeline
func (h *Handlers) GetTimeline(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.Pagination(c)

	posts, err := h.posts.GetTimeline(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, "timeline", "timeline", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":  h.views(c.Request.Context(), userID, posts),
		"limit":  limit,
		"offset": offset,
	})
}

// CreatePost publishes a new post
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	post := &models.Post{UserID: userID, Body: req.Body}
	if err := h.posts.CreatePost(c.Request.Context(), post); err != nil {
		respondError(c, "create_post", "post", err)
		return
	}

	// Reload for the author
	created, err := h.posts.GetPost(c.Request.Context(), post.ID)
	if err != nil {
		respondError(c, "create_post", "post", err)
		return
	}
	c.JSON(http.StatusCreated, h.views(c.Request.Context(), userID, []*models.Post{created})[0])
}

// GetPost returns one post
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	post, err := h.posts.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get_post", "post", err)
		return
	}
	c.JSON(http.StatusOK, h.views(c.Request.Context(), util.OptionalUserID(c), []*models.Post{post})[0])
}

// DeletePost removes a post with its likes and comments. Author only.
// DELETE /api/v1/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.posts.DeletePost(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, "delete_post", "post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetLikers lists the users who liked a post, most recent first
// GET /api/v1/posts/:id/likes
func (h *Handlers) GetLikers(c *gin.Context) {
	postID := c.Param("id")
	limit, offset := util.Pagination(c)

	if _, err := h.posts.GetPost(c.Request.Context(), postID); err != nil {
		respondError(c, "likers", "post", err)
		return
	}

	users, err := h.posts.GetLikers(c.Request.Context(), postID, limit, offset)
	if err != nil {
		respondError(c, "likers", "post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "limit": limit, "offset": offset})
}

// GetComments lists the comments of a post, oldest first
// GET /api/v1/posts/:id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	postID := c.Param("id")
	limit, offset := util.Pagination(c)

	if _, err := h.posts.GetPost(c.Request.Context(), postID); err != nil {
		respondError(c, "comments", "post", err)
		return
	}

	comments, err := h.posts.GetComments(c.Request.Context(), postID, limit, offset)
	if err != nil {
		respondError(c, "comments", "post", err)
		return
	}

	views := make([]commentView, len(comments))
	for i, cm := range comments {
		views[i] = commentView{Comment: cm, BodyHTML: content.RenderMarkdown(cm.Body)}
	}
	c.JSON(http.StatusOK, gin.H{"comments": views, "limit": limit, "offset": offset})
}
