// Package typecrawl implements the periodic type crawler (spec.md §4.7): a
// bounded worker pool that runs detection, content analysis, and tag
// synthesis over candidate rows, then rebuilds each row's token index.
package typecrawl

import (
	"context"
	"encoding/json"
	"path"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/network-lumen/gateway-agent/internal/analyze"
	"github.com/network-lumen/gateway-agent/internal/detect"
	"github.com/network-lumen/gateway-agent/internal/gateway"
	"github.com/network-lumen/gateway-agent/internal/logging"
	"github.com/network-lumen/gateway-agent/internal/metrics"
	"github.com/network-lumen/gateway-agent/internal/store"
	"github.com/network-lumen/gateway-agent/internal/tagsynth"
	"github.com/network-lumen/gateway-agent/internal/types"
)

// defaultTokenCap is used when the caller passes a non-positive tokenCap,
// matching config.Load's SEARCH_TOKEN_INDEX_MAX_TOKENS default.
const defaultTokenCap = 128

// Crawler runs one crawl pass at a time, on an interval, with a bounded
// worker pool (spec.md §4.7 "concurrency default 3").
type Crawler struct {
	store       *store.Store
	gw          *gateway.Client
	detector    *detect.Detector
	analyzer    *analyze.Analyzer
	interval    time.Duration
	concurrency int
	sampleBytes int64
	tokenCap    int
	log         zerolog.Logger
}

// New builds a Crawler. tokenCap bounds how many tokens ReplaceTokens keeps
// per CID (SEARCH_TOKEN_INDEX_MAX_TOKENS); a non-positive value falls back
// to defaultTokenCap.
func New(st *store.Store, gw *gateway.Client, d *detect.Detector, a *analyze.Analyzer, interval time.Duration, concurrency int, sampleBytes int64, tokenCap int) *Crawler {
	if tokenCap <= 0 {
		tokenCap = defaultTokenCap
	}
	return &Crawler{
		store:       st,
		gw:          gw,
		detector:    d,
		analyzer:    a,
		interval:    interval,
		concurrency: concurrency,
		sampleBytes: sampleBytes,
		tokenCap:    tokenCap,
		log:         logging.WithComponent("type-crawl"),
	}
}

// Run blocks, ticking Crawl every interval until ctx is cancelled.
func (c *Crawler) Run(ctx context.Context, batchSize int) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Crawl(ctx, batchSize)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Crawl(ctx, batchSize)
		}
	}
}

// Crawl selects up to batchSize candidates and processes them concurrently,
// bounded by c.concurrency (spec.md §4.7).
func (c *Crawler) Crawl(ctx context.Context, batchSize int) {
	candidates, err := c.store.CrawlCandidates(ctx, detect.DetectorVersion, batchSize)
	if err != nil {
		c.log.Warn().Err(err).Msg("selecting crawl candidates failed")
		return
	}
	if len(candidates) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	var indexed int64

	for _, cand := range candidates {
		cand := cand
		g.Go(func() error {
			if c.processOne(gctx, cand) {
				atomic.AddInt64(&indexed, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if indexed > 0 {
		if err := c.store.IncrTypesIndexed(ctx, indexed); err != nil {
			c.log.Warn().Err(err).Msg("incrementing types_indexed_total failed")
		}
		metrics.TypesIndexedTotal.Add(float64(indexed))
	}
	c.log.Info().Int("candidates", len(candidates)).Int64("indexed", indexed).Msg("type crawl pass complete")
}

// processOne runs detection, analysis, and tag synthesis for one candidate,
// persisting either a detection update or a detection error (spec.md §4.7).
// It returns true if the row was successfully (re-)indexed.
func (c *Crawler) processOne(ctx context.Context, cand store.CrawlCandidate) bool {
	now := types.NowMs(time.Now())
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TypeCrawlDuration)

	verdict, err := c.detector.Detect(ctx, time.Now(), cand.CID, nil)
	if err != nil {
		c.log.Warn().Err(err).Str("cid", cand.CID).Msg("detection failed")
		if applyErr := c.store.ApplyDetectionError(ctx, cand.CID, detect.DetectorVersion, err.Error(), now); applyErr != nil {
			c.log.Warn().Err(applyErr).Str("cid", cand.CID).Msg("persisting detection error failed")
		}
		return false
	}

	if verdict.Signals.HTTP != nil && verdict.Signals.HTTP.RangeIgnored {
		metrics.RangeIgnoredTotal.Inc()
		if err := c.store.IncrRangeIgnored(ctx, 1); err != nil {
			c.log.Warn().Err(err).Str("cid", cand.CID).Msg("incrementing range_ignored_total failed")
		}
	}

	result, analyzeErr := c.analyzeCandidate(ctx, cand.CID, verdict)
	if analyzeErr != nil {
		c.log.Warn().Err(analyzeErr).Str("cid", cand.CID).Msg("content analysis failed, continuing with detection only")
	}

	container := ""
	if verdict.Signals.Container != nil {
		container = tagsynth.ContainerFromSignals(verdict.Signals.Container.Container)
	}
	synthTags := tagsynth.Synthesize(tagsynth.Input{
		Kind:       verdict.Kind,
		MIME:       verdict.MIME,
		ExtGuess:   verdict.ExtGuess,
		Source:     verdict.Source,
		Confidence: verdict.Confidence,
		SizeBytes:  verdict.Size,
		Container:  container,
	})

	tags := types.Tags{
		Version:      types.TagsSchemaVersion,
		Tags:         synthTags,
		ContentClass: "unknown",
	}
	var tokens map[string]int
	if result != nil {
		tags.Topics = result.Topics
		tags.Tokens = result.Tokens
		tags.ContentClass = result.ContentClass
		tags.Lang = result.Lang
		tags.Confidence = result.Confidence
		sig := result.Signals
		tags.Signals = &sig
		tokens = result.Tokens
	}

	signalsJSON, err := json.Marshal(verdict.Signals)
	if err != nil {
		c.log.Warn().Err(err).Str("cid", cand.CID).Msg("marshaling signals failed")
		return false
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		c.log.Warn().Err(err).Str("cid", cand.CID).Msg("marshaling tags failed")
		return false
	}

	var mime, extGuess *string
	if verdict.MIME != "" {
		mime = &verdict.MIME
	}
	if verdict.ExtGuess != "" {
		extGuess = &verdict.ExtGuess
	}

	update := store.DetectionUpdate{
		SizeBytes:       verdict.Size,
		MIME:            mime,
		ExtGuess:        extGuess,
		Kind:            verdict.Kind,
		Confidence:      verdict.Confidence,
		Source:          verdict.Source,
		SignalsJSON:     string(signalsJSON),
		TagsJSON:        string(tagsJSON),
		DetectorVersion: detect.DetectorVersion,
		IndexedAtMs:     verdict.IndexedAtMs,
	}
	if err := c.store.ApplyDetection(ctx, cand.CID, update, now); err != nil {
		c.log.Warn().Err(err).Str("cid", cand.CID).Msg("persisting detection failed")
		return false
	}

	if tokens != nil {
		if err := c.store.ReplaceTokens(ctx, cand.CID, tokens, c.tokenCap); err != nil {
			c.log.Warn().Err(err).Str("cid", cand.CID).Msg("rebuilding token index failed")
		}
	}
	return true
}

// analyzeCandidate fetches its own body sample (one range read of the same
// sampleBytes size the detector uses) and runs the content analyzer on it.
func (c *Crawler) analyzeCandidate(ctx context.Context, cid string, verdict *detect.Verdict) (*analyze.Result, error) {
	resp, err := c.gw.GetRange(ctx, cid, 0, c.sampleBytes-1, c.sampleBytes)
	if err != nil {
		return nil, err
	}
	return c.analyzer.Analyze(ctx, analyze.Input{
		CID:      cid,
		Kind:     verdict.Kind,
		MIME:     verdict.MIME,
		ExtGuess: verdict.ExtGuess,
		Body:     resp.Body,
		Filename: path.Base(cid),
	})
}
