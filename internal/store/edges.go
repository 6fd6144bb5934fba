package store

import (
	"context"
	"fmt"
)

// UpsertEdge records a parent→child edge, MIN-merging first_seen_at and
// MAX-merging last_seen_at as spec.md §3 requires.
func (s *Store) UpsertEdge(ctx context.Context, parent, child string, now int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			INSERT INTO cid_edges (parent_cid, child_cid, first_seen_at, last_seen_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(parent_cid, child_cid) DO UPDATE SET
				first_seen_at = MIN(cid_edges.first_seen_at, excluded.first_seen_at),
				last_seen_at = MAX(cid_edges.last_seen_at, excluded.last_seen_at)
		`, parent, child, now, now)
		return err
	})
}

// ChildEdges returns the current child set for a parent, used both to
// answer GET /children/:cid and to compute which previously-tracked edges
// should be pruned (spec.md §4.8 step 5).
func (s *Store) ChildEdges(ctx context.Context, parent string, limit int) ([]string, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT child_cid FROM cid_edges WHERE parent_cid = ? ORDER BY last_seen_at DESC LIMIT ?
	`, parent, limit)
	if err != nil {
		return nil, fmt.Errorf("querying child edges: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, fmt.Errorf("scanning child edge: %w", err)
		}
		out = append(out, cid)
	}
	return out, rows.Err()
}

// ParentEdges returns the current parent set for a child, for GET /parents/:cid.
func (s *Store) ParentEdges(ctx context.Context, child string, limit int) ([]string, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT parent_cid FROM cid_edges WHERE child_cid = ? ORDER BY last_seen_at DESC LIMIT ?
	`, child, limit)
	if err != nil {
		return nil, fmt.Errorf("querying parent edges: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, fmt.Errorf("scanning parent edge: %w", err)
		}
		out = append(out, cid)
	}
	return out, rows.Err()
}

// DeleteEdge removes one edge, used by dir-expander's orphan-pruning pass.
func (s *Store) DeleteEdge(ctx context.Context, parent, child string) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			DELETE FROM cid_edges WHERE parent_cid = ? AND child_cid = ?
		`, parent, child)
		return err
	})
}

// ParentCount returns how many parents still reference child, used to
// decide whether a pruned child has become a true orphan (invariant 3).
func (s *Store) ParentCount(ctx context.Context, child string) (int, error) {
	var n int
	err := s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM cid_edges WHERE child_cid = ?`, child).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting parents of %s: %w", child, err)
	}
	return n, nil
}
