package middleware

import (
	"strings"

	"github.com/agora-social/agora/backend/internal/auth"
	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// bearerToken reads the session token from the Authorization header, or
// from the token query parameter for websocket upgrades, which cannot set
// headers from a browser.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}

// AuthMiddleware requires a valid session token and stores the caller in
// the context as "user" and "user_id".
func AuthMiddleware(authService auth.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "missing bearer token")
			return
		}

		user, err := authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.Log.Debug("Token rejected", zap.Error(err))
			util.RespondUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the caller when a valid token is sent
// and lets anonymous requests through otherwise.
func OptionalAuthMiddleware(authService auth.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := authService.ValidateToken(c.Request.Context(), token); err == nil {
				c.Set("user", user)
				c.Set("user_id", user.ID)
			}
		}
		c.Next()
	}
}
