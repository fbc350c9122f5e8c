package handlers

import (
	"github.com/agora-social/agora/backend/internal/auth"
	"github.com/agora-social/agora/backend/internal/cache"
	"github.com/agora-social/agora/backend/internal/chat"
	"github.com/agora-social/agora/backend/internal/ledger"
	"github.com/agora-social/agora/backend/internal/metrics"
	"github.com/agora-social/agora/backend/internal/repository"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	ledger      *ledger.Ledger
	users       repository.UserRepository
	posts       repository.PostRepository
	chats       *chat.Service
	auth        auth.AuthServiceInterface
	idempotency cache.IdempotencyStore
	metrics     *metrics.Metrics
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	l *ledger.Ledger,
	users repository.UserRepository,
	posts repository.PostRepository,
	chats *chat.Service,
	authService auth.AuthServiceInterface,
) *Handlers {
	return &Handlers{
		ledger:  l,
		users:   users,
		posts:   posts,
		chats:   chats,
		auth:    authService,
		metrics: metrics.Get(),
	}
}

// SetIdempotencyStore enables Idempotency-Key handling on toggle and
// comment endpoints
func (h *Handlers) SetIdempotencyStore(store cache.IdempotencyStore) {
	h.idempotency = store
}
