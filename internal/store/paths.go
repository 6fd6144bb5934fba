package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/network-lumen/gateway-agent/internal/types"
)

// UpsertPath records one entry of the per-root path index built by the
// directory expander's BFS (spec.md §4.8 "Path index building").
func (s *Store) UpsertPath(ctx context.Context, p types.Path) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			INSERT INTO cid_paths (root_cid, path, leaf_cid, depth, mime_hint)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(root_cid, path) DO UPDATE SET
				leaf_cid = excluded.leaf_cid,
				depth = excluded.depth,
				mime_hint = excluded.mime_hint
		`, p.RootCID, p.Path, p.LeafCID, p.Depth, p.MIMEHint)
		return err
	})
}

// PathsForRoot returns the indexed paths under a root, used by search to
// join in root_cid/path/path_mime_hint.
func (s *Store) PathsForRoot(ctx context.Context, root string) ([]types.Path, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT root_cid, path, leaf_cid, depth, mime_hint FROM cid_paths WHERE root_cid = ?
	`, root)
	if err != nil {
		return nil, fmt.Errorf("querying paths for root %s: %w", root, err)
	}
	defer rows.Close()

	var out []types.Path
	for rows.Next() {
		var p types.Path
		var mimeHint sql.NullString
		if err := rows.Scan(&p.RootCID, &p.Path, &p.LeafCID, &p.Depth, &mimeHint); err != nil {
			return nil, fmt.Errorf("scanning path: %w", err)
		}
		if mimeHint.Valid {
			v := mimeHint.String
			p.MIMEHint = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PathForLeaf returns the best (min-depth) path entry for a leaf CID across
// all roots, used by search to annotate a result with where it lives.
func (s *Store) PathForLeaf(ctx context.Context, leaf string) (*types.Path, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT root_cid, path, leaf_cid, depth, mime_hint FROM cid_paths
		WHERE leaf_cid = ? ORDER BY depth ASC LIMIT 1
	`, leaf)

	var p types.Path
	var mimeHint sql.NullString
	err := row.Scan(&p.RootCID, &p.Path, &p.LeafCID, &p.Depth, &mimeHint)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning path for leaf %s: %w", leaf, err)
	}
	if mimeHint.Valid {
		v := mimeHint.String
		p.MIMEHint = &v
	}
	return &p, nil
}
