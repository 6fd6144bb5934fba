package store

import (
	"context"
	"fmt"

	"github.com/network-lumen/gateway-agent/internal/types"
)

// GetMetrics reads the single metrics row (spec.md §3 "Metrics singleton").
func (s *Store) GetMetrics(ctx context.Context) (*types.Metrics, error) {
	var m types.Metrics
	var success int
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT pins_current, last_pin_refresh_at, last_pin_refresh_duration_ms, last_pin_refresh_success,
		       types_indexed_total, dirs_expanded_total, dir_expand_errors_total, range_ignored_total
		FROM metrics WHERE id = 1
	`).Scan(&m.PinsCurrent, &m.LastPinRefreshAtMs, &m.LastPinRefreshDurMs, &success,
		&m.TypesIndexedTotal, &m.DirsExpandedTotal, &m.DirExpandErrorsTotal, &m.RangeIgnoredTotal)
	if err != nil {
		return nil, fmt.Errorf("reading metrics singleton: %w", err)
	}
	m.LastPinRefreshSuccess = success != 0
	return &m, nil
}

// RecordPinRefresh updates the pin-sync result fields, on both success and
// failure paths (spec.md §4.6).
func (s *Store) RecordPinRefresh(ctx context.Context, pinsCurrent int64, durationMs int64, success bool, now int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `
			UPDATE metrics SET pins_current = ?, last_pin_refresh_at = ?, last_pin_refresh_duration_ms = ?, last_pin_refresh_success = ?
			WHERE id = 1
		`, pinsCurrent, now, durationMs, boolToInt(success))
		return err
	})
}

// IncrTypesIndexed increments the running count of crawler detections.
func (s *Store) IncrTypesIndexed(ctx context.Context, delta int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `UPDATE metrics SET types_indexed_total = types_indexed_total + ? WHERE id = 1`, delta)
		return err
	})
}

// IncrDirsExpanded increments the running count of successful directory expansions.
func (s *Store) IncrDirsExpanded(ctx context.Context, delta int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `UPDATE metrics SET dirs_expanded_total = dirs_expanded_total + ? WHERE id = 1`, delta)
		return err
	})
}

// IncrDirExpandErrors increments the running count of failed listings.
func (s *Store) IncrDirExpandErrors(ctx context.Context, delta int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `UPDATE metrics SET dir_expand_errors_total = dir_expand_errors_total + ? WHERE id = 1`, delta)
		return err
	})
}

// IncrRangeIgnored increments the counter tracked by testable property 7.
func (s *Store) IncrRangeIgnored(ctx context.Context, delta int64) error {
	return s.Do(ctx, func(ctx context.Context) error {
		_, err := s.q(ctx).ExecContext(ctx, `UPDATE metrics SET range_ignored_total = range_ignored_total + ? WHERE id = 1`, delta)
		return err
	})
}
