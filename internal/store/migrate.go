package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/network-lumen/gateway-agent/internal/store/migrations"
)

// Migration is one additive step in the catalogue's evolution. Every
// migration must be idempotent: safe to run against a database that already
// has its effect applied.
type Migration struct {
	Name string
	Func func(*sql.DB) error
}

var migrationsList = []Migration{
	{"directory_columns", migrations.MigrateDirectoryColumns},
	{"site_entry_columns", migrations.MigrateSiteEntryColumns},
}

// MigrationInfo is migration metadata exposed for introspection (GET
// /metrics/state or a future debug surface), mirroring the teacher's
// ListMigrations/MigrationInfo pair.
type MigrationInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var migrationDescriptions = map[string]string{
	"directory_columns":  "adds is_directory/expanded_at/expand_error/expand_depth to cids",
	"site_entry_columns": "adds site_entry_path/site_entry_cid/site_entry_indexed_at to cids",
}

// ListMigrations returns every registered migration, not just pending ones:
// all are idempotent so the distinction doesn't matter for introspection.
func ListMigrations() []MigrationInfo {
	out := make([]MigrationInfo, len(migrationsList))
	for i, m := range migrationsList {
		desc := migrationDescriptions[m.Name]
		if desc == "" {
			desc = "no description"
		}
		out[i] = MigrationInfo{Name: m.Name, Description: desc}
	}
	return out
}

// runMigrations applies the base schema, then runs every additive migration
// inside a single BEGIN EXCLUSIVE, guarding against a second process opening
// the same file mid-migration. Failures, including a failure to apply the
// base schema, return an error; callers (Open) log it and continue serving
// reads per spec.md §7 rather than treating it as fatal.
func runMigrations(db *sql.DB, log zerolog.Logger) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("applying base schema: %w", err)
	}

	if _, err := db.Exec("BEGIN EXCLUSIVE"); err != nil {
		return fmt.Errorf("acquiring exclusive lock for migrations: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = db.Exec("ROLLBACK")
		}
	}()

	before, err := captureSnapshot(db)
	if err != nil {
		return fmt.Errorf("capturing pre-migration snapshot: %w", err)
	}

	for _, m := range migrationsList {
		if err := m.Func(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
	}

	if err := repairInvariants(db, log, before); err != nil {
		return fmt.Errorf("invariant repair failed: %w", err)
	}

	if _, err := db.Exec("COMMIT"); err != nil {
		return fmt.Errorf("committing migrations: %w", err)
	}
	committed = true
	return nil
}
