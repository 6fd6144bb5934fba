package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/network-lumen/gateway-agent/internal/types"
)

// SearchParams mirrors the GET /search query contract of spec.md §6.
type SearchParams struct {
	Tokens       []string
	Kind         string
	MIME         string
	Present      *bool
	Source       string
	PresentSource string
	IsDirectory  *bool
	Tag          string
	Limit        int
	Offset       int
}

// SearchResult is one row of a search response, with the path-index join
// spec.md §6 describes: "Joins cid_paths (min-aggregated per leaf) to
// return optional root_cid/path/path_mime_hint."
type SearchResult struct {
	CID          types.CID
	Score        int64
	RootCID      *string
	Path         *string
	PathMIMEHint *string
}

// Search runs the filtered, token-ranked query behind GET /search. Rows with
// mime='application/octet-stream' are excluded by policy (spec.md §6).
func (s *Store) Search(ctx context.Context, p SearchParams) ([]SearchResult, int, error) {
	var tokenMatches map[string]int64
	if len(p.Tokens) > 0 {
		matches, err := s.MatchTokens(ctx, p.Tokens)
		if err != nil {
			return nil, 0, fmt.Errorf("matching search tokens: %w", err)
		}
		tokenMatches = make(map[string]int64, len(matches))
		for _, m := range matches {
			tokenMatches[m.CID] = m.Score
		}
		if len(tokenMatches) == 0 {
			return nil, 0, nil
		}
	}

	var where []string
	var args []any
	where = append(where, `(mime IS NULL OR mime != 'application/octet-stream')`)

	if tokenMatches != nil {
		cids := make([]string, 0, len(tokenMatches))
		for cid := range tokenMatches {
			cids = append(cids, cid)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cids)), ",")
		where = append(where, fmt.Sprintf("cid IN (%s)", placeholders))
		for _, c := range cids {
			args = append(args, c)
		}
	}
	if p.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, p.Kind)
	}
	if p.MIME != "" {
		where = append(where, "mime = ?")
		args = append(args, p.MIME)
	}
	if p.Present != nil {
		where = append(where, "present = ?")
		args = append(args, boolToInt(*p.Present))
	}
	if p.Source != "" {
		where = append(where, "source = ?")
		args = append(args, p.Source)
	}
	if p.PresentSource != "" {
		where = append(where, "present_source = ?")
		args = append(args, p.PresentSource)
	}
	if p.IsDirectory != nil {
		where = append(where, "is_directory = ?")
		args = append(args, boolToInt(*p.IsDirectory))
	}
	if p.Tag != "" {
		where = append(where, `tags_json LIKE ?`)
		args = append(args, `%"`+p.Tag+`"%`)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM cids WHERE ` + whereClause
	if err := s.q(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting search results: %w", err)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}

	// Token-ranked searches must rank by score (spec.md §6 "sum of
	// cid_tokens.count... tiebreak by last_seen_at DESC") before limit/offset
	// is applied, so the SQL layer can't page before the sort runs: pull
	// every matching row (already bounded by the token-match IN clause),
	// rank in Go, then slice the page.
	var query string
	var queryArgs []any
	if tokenMatches != nil {
		query = cidSelectColumns + ` FROM cids WHERE ` + whereClause
		queryArgs = args
	} else {
		query = cidSelectColumns + ` FROM cids WHERE ` + whereClause + ` ORDER BY last_seen_at DESC LIMIT ? OFFSET ?`
		queryArgs = append(append([]any{}, args...), limit, p.Offset)
	}

	rows, err := s.q(ctx).QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying search results: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		rec, err := scanCID(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning search result: %w", err)
		}
		res := SearchResult{CID: *rec}
		if score, ok := tokenMatches[rec.CID]; ok {
			res.Score = score
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if tokenMatches != nil {
		sortByScoreThenRecency(out)
		out = pageSlice(out, p.Offset, limit)
	}

	for i := range out {
		path, err := s.PathForLeaf(ctx, out[i].CID.CID)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("joining path for %s: %w", out[i].CID.CID, err)
		}
		root := path.RootCID
		p := path.Path
		out[i].RootCID = &root
		out[i].Path = &p
		out[i].PathMIMEHint = path.MIMEHint
	}

	return out, total, nil
}

// pageSlice applies offset/limit to an already-ranked result set.
func pageSlice(results []SearchResult, offset, limit int) []SearchResult {
	if offset >= len(results) {
		return nil
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

func sortByScoreThenRecency(results []SearchResult) {
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 && less(results[j], results[j-1]) {
			results[j], results[j-1] = results[j-1], results[j]
			j--
		}
	}
}

func less(a, b SearchResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.CID.LastSeenAtMs > b.CID.LastSeenAtMs
}
