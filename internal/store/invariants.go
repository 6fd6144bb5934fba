package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// invariantSnapshot is a cheap pre-migration fingerprint, adapted from the
// teacher's captureSnapshot/verifyInvariants pair: count all cids rows before
// migrating, then again after the repair pass, and warn (never fail) if the
// row count changed.
type invariantSnapshot struct {
	rowCount int64
}

func captureSnapshot(db *sql.DB) (invariantSnapshot, error) {
	var n int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM cids`).Scan(&n); err != nil {
		return invariantSnapshot{}, fmt.Errorf("counting cids: %w", err)
	}
	return invariantSnapshot{rowCount: n}, nil
}

// repairInvariants fixes violations of invariant 1 (present <=> removed_at
// IS NULL) and invariant 5 (token shape/count bounds), logging what it
// touched instead of failing the migration — per spec.md §7, "partial
// function preferred over hard failure."
func repairInvariants(db *sql.DB, log zerolog.Logger, before invariantSnapshot) error {
	res, err := db.Exec(`UPDATE cids SET removed_at = updated_at WHERE present = 0 AND removed_at IS NULL`)
	if err != nil {
		return fmt.Errorf("repairing present/removed_at (present=0): %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Warn().Int64("rows", n).Msg("repaired cids with present=0 and no removed_at")
	}

	res, err = db.Exec(`UPDATE cids SET present = 1, removed_at = NULL WHERE present = 1 AND removed_at IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("repairing present/removed_at (present=1): %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Warn().Int64("rows", n).Msg("repaired cids with present=1 and stale removed_at")
	}

	res, err = db.Exec(`
		DELETE FROM cid_tokens
		WHERE length(token) < 3
		   OR count <= 0
		   OR count > 1000
		   OR token GLOB '*[^a-z0-9]*'
	`)
	if err != nil {
		return fmt.Errorf("purging short/invalid tokens: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Warn().Int64("rows", n).Msg("purged tokens violating token-shape invariant")
	}

	var after int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM cids`).Scan(&after); err != nil {
		return fmt.Errorf("counting cids after repair: %w", err)
	}
	if after != before.rowCount {
		log.Warn().Int64("before", before.rowCount).Int64("after", after).Msg("cid row count changed across migration; unexpected for an additive-only migration pass")
	}
	return nil
}
