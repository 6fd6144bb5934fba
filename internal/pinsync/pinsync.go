// Package pinsync implements the periodic pin synchronizer (spec.md §4.6):
// it fetches the node's recursive pin set and diffs it against the present
// pin-root rows already in the catalogue.
package pinsync

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/network-lumen/gateway-agent/internal/logging"
	"github.com/network-lumen/gateway-agent/internal/metrics"
	"github.com/network-lumen/gateway-agent/internal/noderpc"
	"github.com/network-lumen/gateway-agent/internal/store"
	"github.com/network-lumen/gateway-agent/internal/types"
)

// Syncer runs one pin-sync pass at a time, on an interval.
type Syncer struct {
	store    *store.Store
	node     *noderpc.Client
	interval time.Duration
	log      zerolog.Logger
}

func New(st *store.Store, node *noderpc.Client, interval time.Duration) *Syncer {
	return &Syncer{store: st, node: node, interval: interval, log: logging.WithComponent("pin-sync")}
}

// Run blocks, ticking Sync every interval until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sync(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sync(ctx)
		}
	}
}

// Sync runs a single diff pass (spec.md §4.6). Failures are logged and
// recorded in the metrics singleton rather than propagated; pin-sync always
// retries on the next tick.
func (s *Syncer) Sync(ctx context.Context) {
	start := time.Now()
	now := types.NowMs(start)
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PinRefreshDuration)

	keys, err := s.node.Pins(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("listing pins failed")
		_ = s.store.RecordPinRefresh(ctx, 0, time.Since(start).Milliseconds(), false, now)
		metrics.PinRefreshTotal.WithLabelValues("failure").Inc()
		return
	}

	current := make(map[string]bool, len(keys))
	for _, k := range keys {
		current[k] = true
	}

	existing, err := s.store.PresentPinRootCIDs(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("loading present pin roots failed")
		_ = s.store.RecordPinRefresh(ctx, int64(len(keys)), time.Since(start).Milliseconds(), false, now)
		metrics.PinRefreshTotal.WithLabelValues("failure").Inc()
		return
	}
	// The whole diff (new pin-roots in, dropped pins out) runs inside one
	// transaction (spec.md §4.6 "single transaction") so a concurrent reader
	// never observes a half-applied pin set.
	var failed bool
	txErr := s.store.WithTx(ctx, func(ctx context.Context) error {
		for _, cid := range keys {
			if err := s.store.UpsertPinRoot(ctx, cid, now); err != nil {
				s.log.Warn().Err(err).Str("cid", cid).Msg("upserting pin root failed")
				failed = true
			}
		}
		for _, cid := range existing {
			if current[cid] {
				continue
			}
			if err := s.store.MarkPinRemoved(ctx, cid, now); err != nil {
				s.log.Warn().Err(err).Str("cid", cid).Msg("marking pin removed failed")
				failed = true
			}
		}
		return nil
	})
	if txErr != nil {
		s.log.Warn().Err(txErr).Msg("pin-sync transaction failed")
		failed = true
	}

	if err := s.store.RecordPinRefresh(ctx, int64(len(keys)), time.Since(start).Milliseconds(), !failed, now); err != nil {
		s.log.Warn().Err(err).Msg("recording pin-refresh metrics failed")
	}
	metrics.PinsCurrent.Set(float64(len(keys)))
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	metrics.PinRefreshTotal.WithLabelValues(outcome).Inc()
	s.log.Info().Int("pins", len(keys)).Dur("duration", time.Since(start)).Bool("success", !failed).Msg("pin sync complete")
}
