package store

import (
	"context"
	"fmt"
)

// DistinctDetectorVersions returns every detector_version value currently
// recorded on present rows, for the migrate subcommand's version-skew
// diagnostic (compares recorded versions against the running binary's
// detect.DetectorVersion the way the teacher's RPC layer compares
// server/client semver before serving a request).
func (s *Store) DistinctDetectorVersions(ctx context.Context) ([]string, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT DISTINCT detector_version FROM cids
		WHERE present = 1 AND detector_version != ''
	`)
	if err != nil {
		return nil, fmt.Errorf("querying distinct detector versions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning detector version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
