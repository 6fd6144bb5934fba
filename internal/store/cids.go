package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/network-lumen/gateway-agent/internal/types"
)

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// UpsertPinRoot applies pin-sync's insert/touch step for one observed pin
// key (spec.md §4.6): insert present=1/pin-root on first sight, or touch
// last_seen_at and force present_source back to pin-root on repeat sight.
// present_source is monotonic toward pin-root (invariant 4), so this never
// downgrades an existing pin-root row and always wins over 'expanded'.
func (s *Store) UpsertPinRoot(ctx context.Context, cid string, now int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			INSERT INTO cids (cid, present, present_source, present_reason, first_seen_at, last_seen_at, expand_depth)
			VALUES (?, 1, 'pin-root', 'pin_sync', ?, ?, 0)
			ON CONFLICT(cid) DO UPDATE SET
				present = 1,
				present_source = 'pin-root',
				present_reason = 'pin_sync',
				last_seen_at = excluded.last_seen_at,
				removed_at = NULL,
				expand_depth = 0
		`, cid, now, now)
		return err
	})
}

// MarkPinRemoved demotes a previously pin-root CID absent from the latest
// pin listing (spec.md §4.6). Rows with present_source='expanded' are left
// alone; they fall off via edge pruning instead (invariant 3).
func (s *Store) MarkPinRemoved(ctx context.Context, cid string, now int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			UPDATE cids SET present = 0, removed_at = ?
			WHERE cid = ? AND present_source = 'pin-root' AND present = 1
		`, now, cid)
		return err
	})
}

// PresentPinRootCIDs returns every CID currently present with
// present_source='pin-root', used by pin-sync to compute the removal set.
func (s *Store) PresentPinRootCIDs(ctx context.Context) ([]string, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT cid FROM cids WHERE present = 1 AND present_source = 'pin-root'
	`)
	if err != nil {
		return nil, fmt.Errorf("querying present pin roots: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, fmt.Errorf("scanning pin root: %w", err)
		}
		out = append(out, cid)
	}
	return out, rows.Err()
}

// GetCID loads the full row for a single CID, or ErrNotFound.
func (s *Store) GetCID(ctx context.Context, cid string) (*types.CID, error) {
	row := s.q(ctx).QueryRowContext(ctx, cidSelectColumns+` FROM cids WHERE cid = ?`, cid)
	rec, err := scanCID(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning cid %s: %w", cid, err)
	}
	return rec, nil
}

const cidSelectColumns = `
	SELECT cid, present, present_source, present_reason, first_seen_at, last_seen_at, removed_at,
	       size_bytes, mime, ext_guess, kind, confidence, source,
	       signals_json, tags_json, detector_version, indexed_at, error, updated_at,
	       is_directory, expanded_at, expand_error, expand_depth,
	       site_entry_path, site_entry_cid, site_entry_indexed_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCID(row rowScanner) (*types.CID, error) {
	var rec types.CID
	var presentInt, isDirInt int
	var removedAt, expandedAt, siteEntryIndexedAt sql.NullInt64
	var sizeBytes sql.NullInt64
	var mime, extGuess, source, errStr sql.NullString
	var siteEntryPath, siteEntryCID sql.NullString

	err := row.Scan(
		&rec.CID, &presentInt, &rec.PresentSource, &rec.PresentReason, &rec.FirstSeenAtMs, &rec.LastSeenAtMs, &removedAt,
		&sizeBytes, &mime, &extGuess, &rec.Kind, &rec.Confidence, &source,
		&rec.SignalsJSON, &rec.TagsJSON, &rec.DetectorVersion, &rec.IndexedAtMs, &errStr, &rec.UpdatedAtMs,
		&isDirInt, &expandedAt, &rec.ExpandError, &rec.ExpandDepth,
		&siteEntryPath, &siteEntryCID, &siteEntryIndexedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Present = presentInt != 0
	rec.IsDirectory = isDirInt != 0
	rec.Source = types.DetectionSource(source.String)
	if removedAt.Valid {
		v := removedAt.Int64
		rec.RemovedAtMs = &v
	}
	if sizeBytes.Valid {
		v := sizeBytes.Int64
		rec.SizeBytes = &v
	}
	if mime.Valid {
		v := mime.String
		rec.MIME = &v
	}
	if extGuess.Valid {
		v := extGuess.String
		rec.ExtGuess = &v
	}
	if errStr.Valid {
		v := errStr.String
		rec.Error = &v
	}
	if expandedAt.Valid {
		v := expandedAt.Int64
		rec.ExpandedAtMs = &v
	}
	if siteEntryPath.Valid {
		v := siteEntryPath.String
		rec.SiteEntryPath = &v
	}
	if siteEntryCID.Valid {
		v := siteEntryCID.String
		rec.SiteEntryCID = &v
	}
	if siteEntryIndexedAt.Valid {
		v := siteEntryIndexedAt.Int64
		rec.SiteEntryIndexedAtMs = &v
	}
	return &rec, nil
}

// CrawlCandidate is a row selected for (re-)detection (spec.md §4.7).
type CrawlCandidate struct {
	CID             string
	IsDirectory     bool
	Kind            types.Kind
	DetectorVersion string
}

// CrawlCandidates selects present rows needing detection: stale
// detector_version, missing mime, a previous error, or (implicitly, by the
// caller re-running this query every tick) any row the crawler hasn't
// touched yet. Directory rows whose kind is absent/unknown/ipld/dag are
// skipped, mirroring the type crawler's documented skip rule.
func (s *Store) CrawlCandidates(ctx context.Context, detectorVersion string, limit int) ([]CrawlCandidate, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT cid, is_directory, kind, detector_version FROM cids
		WHERE present = 1
		  AND (detector_version != ? OR mime IS NULL OR error IS NOT NULL)
		  AND NOT (
		    is_directory = 1 AND (kind IS NULL OR kind IN ('unknown','ipld','dag'))
		  )
		ORDER BY last_seen_at DESC
		LIMIT ?
	`, detectorVersion, limit)
	if err != nil {
		return nil, fmt.Errorf("querying crawl candidates: %w", err)
	}
	defer rows.Close()

	var out []CrawlCandidate
	for rows.Next() {
		var c CrawlCandidate
		var isDir int
		if err := rows.Scan(&c.CID, &isDir, &c.Kind, &c.DetectorVersion); err != nil {
			return nil, fmt.Errorf("scanning crawl candidate: %w", err)
		}
		c.IsDirectory = isDir != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// DetectionUpdate is what the type crawler writes back after a detector +
// analyzer + synthesizer pass.
type DetectionUpdate struct {
	SizeBytes       *int64
	MIME            *string
	ExtGuess        *string
	Kind            types.Kind
	Confidence      float64
	Source          types.DetectionSource
	SignalsJSON     string
	TagsJSON        string
	DetectorVersion string
	IndexedAtMs     int64
	Error           *string
}

// ApplyDetection persists a crawl pass's result for one CID.
func (s *Store) ApplyDetection(ctx context.Context, cid string, u DetectionUpdate, now int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			UPDATE cids SET
				size_bytes = ?, mime = ?, ext_guess = ?, kind = ?, confidence = ?, source = ?,
				signals_json = ?, tags_json = ?, detector_version = ?, indexed_at = ?, error = ?, updated_at = ?
			WHERE cid = ?
		`, u.SizeBytes, u.MIME, u.ExtGuess, string(u.Kind), u.Confidence, string(u.Source),
			u.SignalsJSON, u.TagsJSON, u.DetectorVersion, u.IndexedAtMs, u.Error, now, cid)
		return err
	})
}

// ApplyDetectionError persists a detection failure: error is set, mime/kind
// are left untouched, but detector_version still advances so the row isn't
// retried on the same version (spec.md §7 "decoder error").
func (s *Store) ApplyDetectionError(ctx context.Context, cid string, detectorVersion, errMsg string, now int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			UPDATE cids SET error = ?, detector_version = ?, updated_at = ? WHERE cid = ?
		`, errMsg, detectorVersion, now, cid)
		return err
	})
}

// DirectoryCandidate is a row selected for (re-)expansion (spec.md §4.8).
type DirectoryCandidate struct {
	CID            string
	PresentSource  types.PresentSource
	ExpandDepth    int
	IsDirectory    bool
	Kind           types.Kind
}

// DirExpandCandidates selects rows eligible for expansion: below max depth,
// and never expanded, stale past the TTL, previously errored, or a
// present_source='pin-root' row never classified as a directory yet.
func (s *Store) DirExpandCandidates(ctx context.Context, maxDepth int, ttlMs int64, now int64, limit int) ([]DirectoryCandidate, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT cid, present_source, expand_depth, is_directory, kind FROM cids
		WHERE present = 1 AND expand_depth < ?
		  AND (
		    expanded_at IS NULL
		    OR expanded_at < ?
		    OR expand_error IS NOT NULL
		    OR (is_directory = 0 AND present_source = 'pin-root')
		  )
		ORDER BY last_seen_at DESC
		LIMIT ?
	`, maxDepth, now-ttlMs, limit)
	if err != nil {
		return nil, fmt.Errorf("querying dir-expand candidates: %w", err)
	}
	defer rows.Close()

	var out []DirectoryCandidate
	for rows.Next() {
		var c DirectoryCandidate
		var isDir int
		if err := rows.Scan(&c.CID, &c.PresentSource, &c.ExpandDepth, &isDir, &c.Kind); err != nil {
			return nil, fmt.Errorf("scanning dir-expand candidate: %w", err)
		}
		c.IsDirectory = isDir != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkNotDirectory records that isLikelyDirectory rejected the candidate
// (spec.md §4.8 step 1).
func (s *Store) MarkNotDirectory(ctx context.Context, cid string, now int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			UPDATE cids SET is_directory = 0, expanded_at = ? WHERE cid = ?
		`, now, cid)
		return err
	})
}

// MarkExpandError records a listing failure, truncated to 240 chars, and
// clears expanded_at so the row stays eligible next sweep.
func (s *Store) MarkExpandError(ctx context.Context, cid, errMsg string, now int64) error {
	if len(errMsg) > 240 {
		errMsg = errMsg[:240]
	}
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			UPDATE cids SET expand_error = ?, expanded_at = NULL, updated_at = ? WHERE cid = ?
		`, errMsg, now, cid)
		return err
	})
}

// MarkExpanded updates the directory row after a successful listing.
// truncated carries "too_many_children:<n>" when MAX_CHILDREN capped the
// child set, or empty string when not truncated.
func (s *Store) MarkExpanded(ctx context.Context, cid string, truncated string, now int64) error {
	var expandErr any
	if truncated != "" {
		expandErr = truncated
	}
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			UPDATE cids SET is_directory = 1, expanded_at = ?, expand_error = ?, updated_at = ? WHERE cid = ?
		`, now, expandErr, now, cid)
		return err
	})
}

// UpsertExpandedChild inserts or touches a child discovered by directory
// listing. If the row already exists with present_source='pin-root', that
// wins and is not overwritten (invariant 4).
func (s *Store) UpsertExpandedChild(ctx context.Context, cid string, parentDepth int, now int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			INSERT INTO cids (cid, present, present_source, present_reason, first_seen_at, last_seen_at, expand_depth)
			VALUES (?, 1, 'expanded', 'dir_expander', ?, ?, ?)
			ON CONFLICT(cid) DO UPDATE SET
				present = 1,
				last_seen_at = excluded.last_seen_at,
				removed_at = NULL,
				expand_depth = MIN(cids.expand_depth, excluded.expand_depth)
			WHERE cids.present_source != 'pin-root'
		`, cid, now, now, parentDepth+1)
		return err
	})
}

// MarkOrphanRemoved demotes a present_source='expanded' CID whose edge
// count dropped to zero (invariant 3).
func (s *Store) MarkOrphanRemoved(ctx context.Context, cid string, now int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			UPDATE cids SET present = 0, removed_at = ?
			WHERE cid = ? AND present_source = 'expanded' AND present = 1
		`, now, cid)
		return err
	})
}

// SetSiteEntry persists the chosen HTML entrypoint for a pin-root directory.
func (s *Store) SetSiteEntry(ctx context.Context, cid, path, entryCID string, now int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			UPDATE cids SET site_entry_path = ?, site_entry_cid = ?, site_entry_indexed_at = ? WHERE cid = ?
		`, path, entryCID, now, cid)
		return err
	})
}

// SetDerivedTags overwrites a directory root's tags_json with a re-derived
// set from its entrypoint (spec.md §4.8 step 7).
func (s *Store) SetDerivedTags(ctx context.Context, cid, tagsJSON string, now int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			UPDATE cids SET tags_json = ?, updated_at = ? WHERE cid = ?
		`, tagsJSON, now, cid)
		return err
	})
}
