package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateDirectoryColumns adds the directory-lifecycle columns (is_directory,
// expanded_at, expand_error, expand_depth) for catalogues created before the
// directory expander existed. schema.go already creates them on a fresh
// database; this migration only fires against an older file.
func MigrateDirectoryColumns(db *sql.DB) error {
	cols := map[string]string{
		"is_directory": "INTEGER NOT NULL DEFAULT 0",
		"expanded_at":  "INTEGER",
		"expand_error": "TEXT",
		"expand_depth": "INTEGER NOT NULL DEFAULT 0",
	}
	for name, ddl := range cols {
		exists, err := columnExists(db, "cids", name)
		if err != nil {
			return fmt.Errorf("checking column %s: %w", name, err)
		}
		if exists {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE cids ADD COLUMN %s %s", name, ddl)); err != nil {
			return fmt.Errorf("adding column %s: %w", name, err)
		}
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	var name string
	err := db.QueryRow(
		`SELECT name FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
