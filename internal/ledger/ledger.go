// Package ledger keeps engagement counters in lockstep with the edges that
// justify them: post likes, follows and comments.
//
// Every mutation runs as one database transaction that locks the owning
// row, re-reads the edge, applies the edge change and the counter delta,
// and commits both or neither. A transaction aborted by a concurrent writer
// is retried from scratch, so a retry can never flip an edge twice.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Operation names used in metrics labels, spans and idempotency keys.
const (
	OpToggleLike     = "toggle_like"
	OpToggleFollow   = "toggle_follow"
	OpAddComment     = "add_comment"
	OpCheckLiked     = "check_liked"
	OpCheckFollowing = "check_following"
	OpReconcile      = "reconcile"
)

// DefaultConflictRetries is how many times a conflicted transaction is
// re-run before ErrTransientConflict reaches the caller.
const DefaultConflictRetries = 1

// Ledger owns every write to likes_count, comments_count, followers_count
// and following_count.
type Ledger struct {
	db       *gorm.DB
	retries  int
	notifier Notifier
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithConflictRetries sets the number of automatic re-runs after a
// transient conflict. Zero disables retrying.
func WithConflictRetries(n int) Option {
	return func(l *Ledger) {
		if n >= 0 {
			l.retries = n
		}
	}
}

// WithNotifier registers a receiver for committed events.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) {
		l.notifier = n
	}
}

// WithMetrics overrides the process-wide metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// New creates a Ledger on db.
func New(db *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{
		db:      db,
		retries: DefaultConflictRetries,
		tracer:  otel.Tracer("ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.metrics == nil {
		l.metrics = metrics.Get()
	}
	return l
}

// begin starts the span and timer for op. The returned func records the
// outcome and must be called exactly once.
func (l *Ledger) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := l.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		l.metrics.LedgerOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		l.metrics.LedgerOperationsTotal.WithLabelValues(op, outcome(err)).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// transact runs fn in a transaction, re-running it on transient conflicts.
// fn must only touch the database through the tx it is given and must
// reset any captured results at the top, since it may run more than once.
func (l *Ledger) transact(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt <= l.retries; attempt++ {
		err = classify(l.db.WithContext(ctx).Transaction(fn))
		if !errors.Is(err, ErrTransientConflict) {
			return err
		}

		l.metrics.LedgerConflictsTotal.WithLabelValues(op).Inc()
		trace.SpanFromContext(ctx).AddEvent("conflict", trace.WithAttributes(attribute.Int("attempt", attempt)))
		logger.Log.Warn("Ledger transaction conflicted",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if ctx.Err() != nil {
			break
		}
	}
	return err
}

func (l *Ledger) publish(ev Event) {
	if l.notifier == nil {
		return
	}
	l.notifier.Publish(ev)
}

// forUpdate locks the selected rows until the transaction ends. The SQLite
// dialect drops the clause; SQLite already serialises writers.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

// bump adds delta to column on the row id of model's table and returns the
// stored result.
func bump(tx *gorm.DB, model interface{}, id, column string, delta int) (int64, error) {
	res := tx.Model(model).Where("id = ?", id).UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var value int64
	if err := tx.Model(model).Select(column).Where("id = ?", id).Row().Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}
