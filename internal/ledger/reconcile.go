package ledger

import (
	"context"
	"fmt"

	"github.com/agora-social/agora/backend/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// counterCheck ties a stored counter to the edge table that justifies it.
type counterCheck struct {
	Counter   string
	Table     string
	EdgeTable string
	EdgeKey   string
}

var counterChecks = []counterCheck{
	{Counter: "likes_count", Table: "posts", EdgeTable: "post_likes", EdgeKey: "post_id"},
	{Counter: "comments_count", Table: "posts", EdgeTable: "comments", EdgeKey: "post_id"},
	{Counter: "followers_count", Table: "users", EdgeTable: "follows", EdgeKey: "following_id"},
	{Counter: "following_count", Table: "users", EdgeTable: "follows", EdgeKey: "follower_id"},
}

// Drift is one row whose stored counter disagrees with its edges. Stored
// is nil for rows written before the counter existed.
type Drift struct {
	Table   string `json:"table"`
	Counter string `json:"counter"`
	ID      string `json:"id"`
	Stored  *int64 `json:"stored"`
	Actual  int64  `json:"actual"`
}

// DriftReport lists every drifted counter found by Reconcile.
type DriftReport struct {
	Drifts []Drift `json:"drifts"`
	Fixed  bool    `json:"fixed"`
}

// Clean reports whether no drift was found.
func (r *DriftReport) Clean() bool {
	return len(r.Drifts) == 0
}

// Reconcile recomputes every counter from its edges. With fix set the
// drifted counters are rewritten in the same transaction that found them.
func (l *Ledger) Reconcile(ctx context.Context, fix bool) (report *DriftReport, err error) {
	ctx, done := l.begin(ctx, OpReconcile)
	defer func() { done(err) }()

	err = l.transact(ctx, OpReconcile, func(tx *gorm.DB) error {
		report = &DriftReport{}
		for _, check := range counterChecks {
			drifts, err := findDrift(tx, check)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", check.Table, check.Counter, err)
			}
			l.metrics.LedgerCounterDrift.WithLabelValues(check.Counter).Set(float64(len(drifts)))
			report.Drifts = append(report.Drifts, drifts...)

			if !fix || len(drifts) == 0 {
				continue
			}
			if err := repair(tx, check, drifts); err != nil {
				return fmt.Errorf("repair %s.%s: %w", check.Table, check.Counter, err)
			}
		}
		report.Fixed = fix
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !report.Clean() {
		logger.Log.Warn("Counter drift detected",
			zap.Int("rows", len(report.Drifts)),
			zap.Bool("fixed", fix))
	}
	return report, nil
}

func findDrift(tx *gorm.DB, c counterCheck) ([]Drift, error) {
	edgeCount := fmt.Sprintf("(SELECT COUNT(*) FROM %s e WHERE e.%s = t.id)", c.EdgeTable, c.EdgeKey)
	query := fmt.Sprintf(
		"SELECT t.id AS id, t.%[1]s AS stored, %[2]s AS actual FROM %[3]s t "+
			"WHERE t.%[1]s IS NULL OR t.%[1]s <> %[2]s ORDER BY t.id",
		c.Counter, edgeCount, c.Table)

	var drifts []Drift
	if err := tx.Raw(query).Scan(&drifts).Error; err != nil {
		return nil, err
	}
	for i := range drifts {
		drifts[i].Table = c.Table
		drifts[i].Counter = c.Counter
	}
	return drifts, nil
}

func repair(tx *gorm.DB, c counterCheck, drifts []Drift) error {
	ids := make([]string, len(drifts))
	for i, d := range drifts {
		ids[i] = d.ID
	}
	stmt := fmt.Sprintf(
		"UPDATE %[1]s SET %[2]s = (SELECT COUNT(*) FROM %[3]s e WHERE e.%[4]s = %[1]s.id) WHERE id IN ?",
		c.Table, c.Counter, c.EdgeTable, c.EdgeKey)
	return tx.Exec(stmt, ids).Error
}
