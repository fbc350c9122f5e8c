package handlers

import "github.com/gin-gonic/gin"

// RouteMiddleware is installed per route group by RegisterRoutes. Nil
// entries are skipped, so tests can leave the limiters out.
type RouteMiddleware struct {
	// Auth rejects anonymous requests; OptionalAuth identifies callers
	// when it can
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc

	// AuthLimit guards register and login; WriteLimit guards likes,
	// follows, comments, posts and messages
	AuthLimit  gin.HandlerFunc
	WriteLimit gin.HandlerFunc
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// RegisterRoutes mounts the API under api (normally /api/v1)
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup, mw RouteMiddleware) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", chain(mw.AuthLimit, h.Register)...)
		authGroup.POST("/login", chain(mw.AuthLimit, h.Login)...)
		authGroup.GET("/me", chain(mw.Auth, h.Me)...)
	}

	feed := api.Group("/feed")
	{
		feed.GET("", chain(mw.OptionalAuth, h.GetFeed)...)
		feed.GET("/timeline", chain(mw.Auth, h.GetTimeline)...)
	}

	posts := api.Group("/posts")
	{
		posts.POST("", chain(mw.Auth, mw.WriteLimit, h.CreatePost)...)
		posts.GET("/:id", chain(mw.OptionalAuth, h.GetPost)...)
		posts.DELETE("/:id", chain(mw.Auth, h.DeletePost)...)

		posts.POST("/:id/like", chain(mw.Auth, mw.WriteLimit, h.ToggleLike)...)
		posts.GET("/:id/like", chain(mw.Auth, h.CheckLiked)...)
		posts.GET("/:id/likes", h.GetLikers)

		posts.GET("/:id/comments", h.GetComments)
		posts.POST("/:id/comments", chain(mw.Auth, mw.WriteLimit, h.AddComment)...)
	}

	users := api.Group("/users")
	{
		users.GET("/search", chain(mw.OptionalAuth, h.SearchUsers)...)
		users.PUT("/me", chain(mw.Auth, h.UpdateMe)...)
		users.GET("/:id", chain(mw.OptionalAuth, h.GetProfile)...)
		users.GET("/:id/posts", chain(mw.OptionalAuth, h.GetUserPosts)...)
		users.GET("/:id/followers", h.GetFollowers)
		users.GET("/:id/following", h.GetFollowing)

		users.POST("/:id/follow", chain(mw.Auth, mw.WriteLimit, h.ToggleFollow)...)
		users.GET("/:id/follow", chain(mw.Auth, h.CheckFollowing)...)
	}

	chats := api.Group("/chats")
	chats.Use(chain(mw.Auth)...)
	{
		chats.GET("", h.ListChats)
		chats.POST("", chain(mw.WriteLimit, h.StartChat)...)
		chats.GET("/:id/messages", h.GetMessages)
		chats.POST("/:id/messages", chain(mw.WriteLimit, h.SendMessage)...)
		chats.POST("/:id/read", h.MarkRead)
	}
}
