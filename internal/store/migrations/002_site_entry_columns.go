package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateSiteEntryColumns adds the site-entrypoint columns the directory
// expander writes once it picks an HTML entrypoint for a pin-root directory.
func MigrateSiteEntryColumns(db *sql.DB) error {
	cols := map[string]string{
		"site_entry_path":         "TEXT",
		"site_entry_cid":          "TEXT",
		"site_entry_indexed_at":   "INTEGER",
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
