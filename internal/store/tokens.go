package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
)

var validToken = regexp.MustCompile(`^[a-z0-9]+$`)

// ReplaceTokens rebuilds the inverted index for one CID: delete every
// existing row, then insert the capped top-N tokens sorted by (count desc,
// token asc), matching spec.md §4.7 and testable property 5. Tokens shorter
// than 3 characters or not matching [a-z0-9]+ are dropped before the cap is
// applied (invariant 5).
func (s *Store) ReplaceTokens(ctx context.Context, cid string, tokens map[string]int, cap int) error {
	type kv struct {
		token string
		count int
	}
	filtered := make([]kv, 0, len(tokens))
	for tok, count := range tokens {
		if len(tok) < 3 || count <= 0 || count > 1000 || !validToken.MatchString(tok) {
			continue
		}
		filtered = append(filtered, kv{tok, count})
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].count != filtered[j].count {
			return filtered[i].count > filtered[j].count
		}
		return filtered[i].token < filtered[j].token
	})
	if len(filtered) > cap {
		filtered = filtered[:cap]
	}

	return s.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.q(ctx).ExecContext(ctx, `DELETE FROM cid_tokens WHERE cid = ?`, cid); err != nil {
			return fmt.Errorf("clearing tokens for %s: %w", cid, err)
		}
		for _, e := range filtered {
			if _, err := s.q(ctx).ExecContext(ctx, `
				INSERT INTO cid_tokens (token, cid, count) VALUES (?, ?, ?)
			`, e.token, cid, e.count); err != nil {
				return fmt.Errorf("inserting token %s for %s: %w", e.token, cid, err)
			}
		}
		return nil
	})
}

// TokenMatch is one scored hit from a token-based search (spec.md §6 "Token
// ranking: sum of cid_tokens.count over matched tokens").
type TokenMatch struct {
	CID   string
	Score int64
}

// MatchTokens returns, for the union of the given tokens, every matching CID
// with its summed score, ordered by score desc.
func (s *Store) MatchTokens(ctx context.Context, tokens []string) ([]TokenMatch, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	placeholders := make([]any, len(tokens))
	qMarks := ""
	for i, t := range tokens {
		placeholders[i] = t
		if i > 0 {
			qMarks += ","
		}
		qMarks += "?"
	}

	rows, err := s.q(ctx).QueryContext(ctx, fmt.Sprintf(`
		SELECT cid, SUM(count) as score FROM cid_tokens
		WHERE token IN (%s)
		GROUP BY cid
		ORDER BY score DESC
	`, qMarks), placeholders...)
	if err != nil {
		return nil, fmt.Errorf("matching tokens: %w", err)
	}
	defer rows.Close()

	var out []TokenMatch
	for rows.Next() {
		var m TokenMatch
		if err := rows.Scan(&m.CID, &m.Score); err != nil {
			return nil, fmt.Errorf("scanning token match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
