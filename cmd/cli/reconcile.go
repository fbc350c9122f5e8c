package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/agora-social/agora/backend/internal/ledger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute like, comment and follow counters from their edges",
	Long: `Compare every stored counter with the number of edges backing it.

Examples:
  agora-admin reconcile          # report drift only
  agora-admin reconcile --fix    # rewrite drifted counters`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fix, _ := cmd.Flags().GetBool("fix")
		db, err := openDB()
		if err != nil {
			return err
		}
		report, err := reconcile(cmd.Context(), db, fix, output, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !report.Clean() && !fix {
			return fmt.Errorf("%d counters drifted (rerun with --fix to repair)", len(report.Drifts))
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().Bool("fix", false, "Rewrite drifted counters")
}

func reconcile(ctx context.Context, db *gorm.DB, fix bool, format string, w io.Writer) (*ledger.DriftReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	l := ledger.New(db)
	report, err := l.Reconcile(ctx, fix)
	if err != nil {
		return nil, err
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return report, enc.Encode(report)
	}

	if report.Clean() {
		fmt.Fprintln(w, "✅ All counters match their edges")
		return report, nil
	}
	for _, d := range report.Drifts {
		stored := "NULL"
		if d.Stored != nil {
			stored = fmt.Sprint(*d.Stored)
		}
		fmt.Fprintf(w, "%-6s %-16s %s stored=%s actual=%d\n", d.Table, d.Counter, d.ID, stored, d.Actual)
	}
	if report.Fixed {
		fmt.Fprintf(w, "🔧 Repaired %d counters\n", len(report.Drifts))
	} else {
		fmt.Fprintf(w, "⚠️  %d counters drifted\n", len(report.Drifts))
	}
	return report, nil
}
