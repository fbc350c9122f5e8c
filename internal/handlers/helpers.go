package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/agora-social/agora/backend/internal/auth"
	"github.com/agora-social/agora/backend/internal/cache"
	"github.com/agora-social/agora/backend/internal/chat"
	apierrors "github.com/agora-social/agora/backend/internal/errors"
	"github.com/agora-social/agora/backend/internal/ledger"
	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/repository"
	"github.com/agora-social/agora/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader lets a client resubmit a mutation without it
// being applied twice.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

// respondError maps domain errors onto API errors. resource names the
// thing a NOT_FOUND refers to; op names what a CONFLICT interrupted.
func respondError(c *gin.Context, op, resource string, err error) {
	switch {
	case errors.Is(err, ledger.ErrUnauthenticated):
		util.RespondUnauthorized(c)
	case errors.Is(err, ledger.ErrInvalidArgument),
		errors.Is(err, chat.ErrInvalidArgument),
		errors.Is(err, repository.ErrInvalidInput):
		util.RespondValidationError(c, "", validationMessage(err))
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, chat.ErrNotFound),
		errors.Is(err, repository.ErrPostNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		util.RespondNotFound(c, resource)
	case errors.Is(err, chat.ErrForbidden), errors.Is(err, repository.ErrForbidden):
		util.RespondForbidden(c)
	case errors.Is(err, ledger.ErrTransientConflict):
		util.RespondConflict(c, op)
	case errors.Is(err, ledger.ErrUnavailable):
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("database"))
	case errors.Is(err, repository.ErrUsernameTaken), errors.Is(err, auth.ErrUsernameExists):
		util.RespondWithAPIError(c, apierrors.AlreadyExists("username"))
	case errors.Is(err, auth.ErrUserExists):
		util.RespondWithAPIError(c, apierrors.AlreadyExists("account"))
	case errors.Is(err, auth.ErrInvalidCredentials):
		util.RespondUnauthorized(c, "invalid email or password")
	default:
		_ = c.Error(err)
		logger.Log.Error("Unhandled error",
			zap.String("op", op),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		util.RespondInternalError(c, "")
	}
}

// validationMessage drops the sentinel prefix, so "ledger: invalid
// argument: comment body is empty" becomes "comment body is empty".
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

// idempotent runs fn and writes its result as JSON with status. When the
// request carries an Idempotency-Key, the first result for (caller, op,
// target, key) is stored and replayed for every resubmission instead of
// running fn again.
func (h *Handlers) idempotent(c *gin.Context, op, callerID, resource string, status int, fn func() (interface{}, error)) {
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if key == "" || h.idempotency == nil {
		result, err := fn()
		if err != nil {
			respondError(c, op, resource, err)
			return
		}
		c.JSON(status, result)
		return
	}
	if len(key) > maxIdempotencyKeyLength {
		util.RespondValidationError(c, IdempotencyKeyHeader, "idempotency key is too long")
		return
	}

	ctx := c.Request.Context()
	storeKey := strings.Join([]string{callerID, op, c.Param("id"), key}, ":")

	stored, err := h.idempotency.Begin(ctx, storeKey)
	switch {
	case errors.Is(err, cache.ErrInFlight):
		util.RespondWithAPIError(c, apierrors.InFlight())
		return
	case err != nil:
		// The store is down. The ledger still guards counter integrity.
		logger.Log.Warn("Idempotency store unavailable, running without it",
			zap.String("op", op),
			zap.Error(err),
		)
		result, err := fn()
		if err != nil {
			respondError(c, op, resource, err)
			return
		}
		c.JSON(status, result)
		return
	case stored != nil:
		h.metrics.IdempotentReplaysTotal.WithLabelValues(op).Inc()
		c.Header("Idempotent-Replayed", "true")
		c.Data(status, "application/json; charset=utf-8", stored)
		return
	}

	// The key must be settled even if the client has gone away, or it
	// stays pending until the TTL expires.
	settleCtx := context.WithoutCancel(ctx)

	result, err := fn()
	if err != nil {
		if abortErr := h.idempotency.Abort(settleCtx, storeKey); abortErr != nil {
			logger.WarnWithFields("Failed to release idempotency key", abortErr)
		}
		respondError(c, op, resource, err)
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		_ = h.idempotency.Abort(settleCtx, storeKey)
		respondError(c, op, resource, err)
		return
	}
	if err := h.idempotency.Complete(settleCtx, storeKey, data); err != nil {
		logger.WarnWithFields("Failed to store idempotent result", err)
	}
	c.Data(status, "application/json; charset=utf-8", data)
}

// callerName is the display name stamped on new comments.
func callerName(c *gin.Context) string {
	if user, ok := c.Get("user"); ok {
		if u, ok := user.(interface{ Name() string }); ok {
			return u.Name()
		}
	}
	return ""
}
