// Package direxpand implements the periodic directory expander (spec.md
// §4.8): it lists directory candidates through the node, records their
// children as edges/rows, prunes orphans, builds the per-root path index,
// and picks a site entrypoint for pin-root directories.
package direxpand

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/network-lumen/gateway-agent/internal/logging"
	"github.com/network-lumen/gateway-agent/internal/metrics"
	"github.com/network-lumen/gateway-agent/internal/noderpc"
	"github.com/network-lumen/gateway-agent/internal/store"
	"github.com/network-lumen/gateway-agent/internal/types"
)

// Config controls the expander's bounds (spec.md §4.8 and §6).
type Config struct {
	MaxDepth      int
	TTL           time.Duration
	BatchSize     int
	MaxChildren   int
	PruneChildren bool
	// TrackParent controls whether child edges (and therefore orphan
	// pruning, which depends on them) are recorded; when false only the
	// child rows themselves are upserted, trading the parent/child graph
	// for a smaller cid_edges table on very wide directories.
	TrackParent bool
	// Concurrency bounds how many candidates are expanded at once
	// (spec.md §5 "a bounded worker pool (default 3 and 1 respectively)").
	Concurrency int

	PathMaxDepth        int
	PathMaxDirsPerRoot  int
	PathMaxFilesPerRoot int
}

// indexableExt is the allow-list of extensions the path indexer records
// (spec.md §4.8 "Path index building").
var indexableExt = map[string]string{
	"html": "text/html", "htm": "text/html",
	"pdf":  "application/pdf",
	"epub": "application/epub+zip",
	"png":  "image/png", "jpg": "image/jpeg", "jpeg": "image/jpeg", "gif": "image/gif", "webp": "image/webp", "svg": "image/svg+xml",
	"srt": "application/x-subrip", "vtt": "text/vtt",
	"txt": "text/plain", "md": "text/markdown",
	"json": "application/json",
}

type Expander struct {
	store *store.Store
	node  *noderpc.Client
	cfg   Config
	log   zerolog.Logger
}

func New(st *store.Store, node *noderpc.Client, cfg Config) *Expander {
	return &Expander{store: st, node: node, cfg: cfg, log: logging.WithComponent("dir-expand")}
}

// Run blocks, ticking Expand every interval until ctx is cancelled.
func (e *Expander) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.Expand(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Expand(ctx)
		}
	}
}

// Expand processes one batch of candidates (spec.md §4.8).
func (e *Expander) Expand(ctx context.Context) {
	now := types.NowMs(time.Now())
	ttlMs := e.cfg.TTL.Milliseconds()

	candidates, err := e.store.DirExpandCandidates(ctx, e.cfg.MaxDepth, ttlMs, now, e.cfg.BatchSize)
	if err != nil {
		e.log.Warn().Err(err).Msg("selecting dir-expand candidates failed")
		return
	}

	concurrency := e.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	var expanded, errored int64

	for _, cand := range candidates {
		cand := cand
		g.Go(func() error {
			if e.processOne(gctx, cand, now) {
				atomic.AddInt64(&expanded, 1)
			} else {
				atomic.AddInt64(&errored, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if expanded > 0 {
		if err := e.store.IncrDirsExpanded(ctx, expanded); err != nil {
			e.log.Warn().Err(err).Msg("incrementing dirs_expanded_total failed")
		}
		metrics.DirsExpandedTotal.Add(float64(expanded))
	}
	if errored > 0 {
		if err := e.store.IncrDirExpandErrors(ctx, errored); err != nil {
			e.log.Warn().Err(err).Msg("incrementing dir_expand_errors_total failed")
		}
		metrics.DirExpandErrorsTotal.Add(float64(errored))
	}
	e.log.Info().Int("candidates", len(candidates)).Int64("expanded", expanded).Int64("errored", errored).Msg("dir expand pass complete")
}

// isLikelyDirectory implements spec.md §4.8 step 1: a pin-root row at depth
// 0 with an unknown/missing kind is assumed to be a directory (most pins
// are UnixFS directories); beyond that, only rows already lacking a
// confident file kind are worth a listing call.
func isLikelyDirectory(c store.DirectoryCandidate) bool {
	unresolved := c.Kind == "" || c.Kind == types.KindUnknown || c.Kind == types.Kind("ipld") || c.Kind == types.Kind("dag")
	if c.PresentSource == types.SourcePinRoot && c.ExpandDepth == 0 && unresolved {
		return true
	}
	return unresolved
}

func (e *Expander) processOne(ctx context.Context, cand store.DirectoryCandidate, now int64) bool {
	if !isLikelyDirectory(cand) {
		if err := e.store.MarkNotDirectory(ctx, cand.CID, now); err != nil {
			e.log.Warn().Err(err).Str("cid", cand.CID).Msg("marking not-directory failed")
		}
		return true
	}

	links, err := e.node.Ls(ctx, cand.CID)
	if err != nil {
		if mErr := e.store.MarkExpandError(ctx, cand.CID, err.Error(), now); mErr != nil {
			e.log.Warn().Err(mErr).Str("cid", cand.CID).Msg("recording expand error failed")
		}
		return false
	}

	if len(links) == 0 {
		if err := e.store.MarkExpanded(ctx, cand.CID, "", now); err != nil {
			e.log.Warn().Err(err).Str("cid", cand.CID).Msg("marking expanded (empty) failed")
		}
		return true
	}

	truncated := ""
	if len(links) > e.cfg.MaxChildren {
		truncated = fmt.Sprintf("too_many_children:%d", len(links))
		links = links[:e.cfg.MaxChildren]
	}

	before, err := e.store.ChildEdges(ctx, cand.CID, e.cfg.MaxChildren*2+len(links))
	if err != nil {
		e.log.Warn().Err(err).Str("cid", cand.CID).Msg("loading existing edges failed")
	}

	// The directory row update, child upserts, edge upserts, and edge
	// pruning all land in one transaction (spec.md §4.8 step 4, §5
	// "atomic: directory row update + all child upserts + edge upserts +
	// edge pruning"), so a concurrent reader never observes a half-applied
	// listing. Sub-directory listings (buildPathIndex/chooseSiteEntry) stay
	// outside it, since each is its own blocking RPC call.
	txErr := e.store.WithTx(ctx, func(ctx context.Context) error {
		if err := e.store.MarkExpanded(ctx, cand.CID, truncated, now); err != nil {
			return fmt.Errorf("marking expanded: %w", err)
		}

		afterSet := make(map[string]bool, len(links))
		for _, link := range links {
			childCID := link.CID()
			if childCID == "" {
				continue
			}
			afterSet[childCID] = true
			if e.cfg.TrackParent {
				if err := e.store.UpsertEdge(ctx, cand.CID, childCID, now); err != nil {
					e.log.Warn().Err(err).Str("cid", cand.CID).Str("child", childCID).Msg("upserting edge failed")
					continue
				}
			}
			if err := e.store.UpsertExpandedChild(ctx, childCID, cand.ExpandDepth, now); err != nil {
				e.log.Warn().Err(err).Str("child", childCID).Msg("upserting expanded child failed")
			}
		}

		if e.cfg.PruneChildren && e.cfg.TrackParent {
			e.pruneOrphans(ctx, cand.CID, before, afterSet, now)
		}
		return nil
	})
	if txErr != nil {
		e.log.Warn().Err(txErr).Str("cid", cand.CID).Msg("expanding directory failed")
		return false
	}

	if cand.PresentSource == types.SourcePinRoot {
		e.buildPathIndex(ctx, cand.CID, now)
		e.chooseSiteEntry(ctx, cand.CID, now)
	}
	return true
}

// pruneOrphans deletes edges that disappeared from the latest listing and
// demotes any expanded-only child whose parent count drops to zero
// (invariant 3, spec.md §4.8 step 5).
func (e *Expander) pruneOrphans(ctx context.Context, parent string, before []string, after map[string]bool, now int64) {
	for _, child := range before {
		if after[child] {
			continue
		}
		if err := e.store.DeleteEdge(ctx, parent, child); err != nil {
			e.log.Warn().Err(err).Str("parent", parent).Str("child", child).Msg("deleting edge failed")
			continue
		}
		count, err := e.store.ParentCount(ctx, child)
		if err != nil {
			e.log.Warn().Err(err).Str("child", child).Msg("counting parents failed")
			continue
		}
		if count == 0 {
			if err := e.store.MarkOrphanRemoved(ctx, child, now); err != nil {
				e.log.Warn().Err(err).Str("child", child).Msg("marking orphan removed failed")
			}
		}
	}
}

// bfsEntry is one frontier item during path-index BFS.
type bfsEntry struct {
	cid   string
	path  string
	depth int
}

// buildPathIndex performs the BFS described in spec.md §4.8 "Path index
// building", bounded by depth and per-root directory/file caps, with a
// visited-set for cycle safety. Sub-directory listings run outside the
// caller's write transaction since each is its own RPC call.
func (e *Expander) buildPathIndex(ctx context.Context, root string, now int64) {
	visited := map[string]bool{root: true}
	queue := []bfsEntry{{cid: root, path: "", depth: 0}}

	dirCount, fileCount := 0, 0
	for len(queue) > 0 && dirCount < e.cfg.PathMaxDirsPerRoot {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth > e.cfg.PathMaxDepth {
			continue
		}

		links, err := e.node.Ls(ctx, cur.cid)
		if err != nil {
			e.log.Warn().Err(err).Str("cid", cur.cid).Msg("listing for path index failed")
			continue
		}
		dirCount++

		for _, link := range links {
			if fileCount >= e.cfg.PathMaxFilesPerRoot {
				break
			}
			childCID := link.CID()
			if childCID == "" {
				continue
			}
			childPath := path.Join(cur.path, link.Name)
			ext := strings.TrimPrefix(strings.ToLower(path.Ext(link.Name)), ".")

			if mimeHint, ok := indexableExt[ext]; ok {
				hint := mimeHint
				if err := e.store.UpsertPath(ctx, types.Path{
					RootCID: root, Path: childPath, LeafCID: childCID, Depth: cur.depth + 1, MIMEHint: &hint,
				}); err != nil {
					e.log.Warn().Err(err).Str("path", childPath).Msg("upserting path index entry failed")
				}
				fileCount++
			}

			if !visited[childCID] && cur.depth+1 <= e.cfg.PathMaxDepth {
				visited[childCID] = true
				queue = append(queue, bfsEntry{cid: childCID, path: childPath, depth: cur.depth + 1})
			}
		}
	}
}

// entryCandidateScore ranks HTML entrypoints: index.html at the shallowest
// depth wins, then any other html file by (depth asc, name asc).
func entryCandidateScore(p types.Path) (int, int, string) {
	base := path.Base(p.Path)
	priority := 1
	if strings.EqualFold(base, "index.html") || strings.EqualFold(base, "index.htm") {
		priority = 0
	}
	return priority, p.Depth, p.Path
}

// chooseSiteEntry picks an HTML entrypoint for a pin-root directory and
// re-derives its tags from that entrypoint's own tags (spec.md §4.8 step 7).
func (e *Expander) chooseSiteEntry(ctx context.Context, root string, now int64) {
	paths, err := e.store.PathsForRoot(ctx, root)
	if err != nil {
		e.log.Warn().Err(err).Str("cid", root).Msg("loading paths for site entry failed")
		return
	}

	var best *types.Path
	var bestPriority, bestDepth int
	var bestPath string
	for i, p := range paths {
		if p.MIMEHint == nil || *p.MIMEHint != "text/html" {
			continue
		}
		priority, depth, pth := entryCandidateScore(p)
		if best == nil || priority < bestPriority || (priority == bestPriority && depth < bestDepth) || (priority == bestPriority && depth == bestDepth && pth < bestPath) {
			best = &paths[i]
			bestPriority, bestDepth, bestPath = priority, depth, pth
		}
	}
	if best == nil {
		return
	}

	if err := e.store.SetSiteEntry(ctx, root, best.Path, best.LeafCID, now); err != nil {
		e.log.Warn().Err(err).Str("cid", root).Msg("persisting site entry failed")
		return
	}

	entry, err := e.store.GetCID(ctx, best.LeafCID)
	if err != nil || entry.TagsJSON == "" {
		return
	}
	var entryTags types.Tags
	if err := json.Unmarshal([]byte(entry.TagsJSON), &entryTags); err != nil {
		return
	}

	derived := entryTags
	derived.DerivedFrom = &types.DerivedFrom{CID: best.LeafCID, Path: best.Path}

	rootRow, err := e.store.GetCID(ctx, root)
	if err == nil && rootRow.TagsJSON != "" {
		var current types.Tags
		if json.Unmarshal([]byte(rootRow.TagsJSON), &current) == nil &&
			current.DerivedFrom != nil && current.DerivedFrom.CID == best.LeafCID && current.DerivedFrom.Path == best.Path {
			return // no-op: already derived from this entrypoint
		}
	}

	derivedJSON, err := json.Marshal(derived)
	if err != nil {
		return
	}
	if err := e.store.SetDerivedTags(ctx, root, string(derivedJSON), now); err != nil {
		e.log.Warn().Err(err).Str("cid", root).Msg("persisting derived tags failed")
	}
}
