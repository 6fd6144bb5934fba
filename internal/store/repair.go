package store

import (
	"context"
	"fmt"
)

// RepairReport summarizes what an out-of-band repair pass touched, mirroring
// the teacher's repairResult/repairStats JSON shape (cmd/bd/repair.go) for
// the gateway-agent repair subcommand.
type RepairReport struct {
	RowsBefore          int64 `json:"rows_before"`
	RowsAfter           int64 `json:"rows_after"`
	PresentRepaired     int64 `json:"present_repaired"`
	RemovedRepaired     int64 `json:"removed_repaired"`
	TokensPurged        int64 `json:"tokens_purged"`
	DryRun              bool  `json:"dry_run"`
}

// Repair runs the same invariant checks Open applies automatically after
// every migration pass (present<=>removed_at, token shape/count bounds), but
// on demand and with a dry-run mode, for operators who want to force a
// repair without waiting for the next restart (spec.md §7 "partial function
// preferred over hard failure"). DryRun runs the pass inside a transaction
// that is always rolled back, so RowsAfter/PresentRepaired/etc. reflect what
// WOULD change without persisting it.
func (s *Store) Repair(ctx context.Context, dryRun bool) (RepairReport, error) {
	var report RepairReport
	report.DryRun = dryRun

	run := func(ctx context.Context) error {
		// Counted through the transaction: with a single-connection pool, a
		// query on s.db here would wait for the connection this tx holds.
		if err := s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM cids`).Scan(&report.RowsBefore); err != nil {
			return fmt.Errorf("counting cids before repair: %w", err)
		}

		var presentRepaired, removedRepaired, tokensPurged int64

		res, err := s.q(ctx).ExecContext(ctx, `UPDATE cids SET removed_at = updated_at WHERE present = 0 AND removed_at IS NULL`)
		if err != nil {
			return fmt.Errorf("repairing present/removed_at (present=0): %w", err)
		}
		presentRepaired, _ = res.RowsAffected()

		res, err = s.q(ctx).ExecContext(ctx, `UPDATE cids SET present = 1, removed_at = NULL WHERE present = 1 AND removed_at IS NOT NULL`)
		if err != nil {
			return fmt.Errorf("repairing present/removed_at (present=1): %w", err)
		}
		removedRepaired, _ = res.RowsAffected()

		res, err = s.q(ctx).ExecContext(ctx, `
			DELETE FROM cid_tokens
			WHERE length(token) < 3
			   OR count <= 0
			   OR count > 1000
			   OR token GLOB '*[^a-z0-9]*'
		`)
		if err != nil {
			return fmt.Errorf("purging short/invalid tokens: %w", err)
		}
		tokensPurged, _ = res.RowsAffected()

		var after int64
		if err := s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM cids`).Scan(&after); err != nil {
			return fmt.Errorf("counting cids after repair: %w", err)
		}

		report.RowsAfter = after
		report.PresentRepaired = presentRepaired
		report.RemovedRepaired = removedRepaired
		report.TokensPurged = tokensPurged

		if dryRun {
			return errDryRunRollback
		}
		return nil
	}

	err := s.WithTx(ctx, run)
	if err == errDryRunRollback {
		err = nil
	}
	if err != nil {
		return RepairReport{}, err
	}
	return report, nil
}

// errDryRunRollback is a sentinel WithTx treats as any other error (forcing
// a rollback of the dry-run pass) but Repair swallows before returning.
var errDryRunRollback = fmt.Errorf("dry run: rolling back repair pass")
