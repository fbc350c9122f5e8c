package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/agora-social/agora/backend/internal/cache"
	"github.com/agora-social/agora/backend/internal/errors"
	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware creates a distributed fixed-window rate limiter
func RedisRateLimitMiddleware(rc *cache.RedisClient, config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientKey
	}

	return func(c *gin.Context) {
		client := config.KeyFunc(c)
		key := fmt.Sprintf("rate_limit:%s:%s", config.Scope, client)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		n, err := rc.IncrWindow(ctx, key, config.Window)
		if err != nil {
			// A broken limiter must not open the API up; reject instead.
			logger.Log.Error("Rate limit check failed, rejecting request",
				zap.String("client", client),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, errors.ServiceUnavailable("rate limiter"))
			return
		}

		if n > int64(config.Limit) {
			logger.Log.Warn("Rate limit exceeded",
				zap.String("client", client),
				zap.String("scope", config.Scope),
				zap.Int64("current_requests", n),
			)
			rejectRateLimited(c, config, int(config.Window.Seconds()))
			return
		}

		c.Next()
	}
}
