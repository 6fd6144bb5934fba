// Package httpapi implements the read-only HTTP surface (spec.md §6): a
// health check, Prometheus scrape endpoint, the metrics singleton as JSON,
// single-CID lookup, search, and edge listings.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/network-lumen/gateway-agent/internal/logging"
	"github.com/network-lumen/gateway-agent/internal/metrics"
	"github.com/network-lumen/gateway-agent/internal/store"
)

const (
	childrenLimit = 200
	parentsLimit  = 50
)

// Server wires the catalogue store to the read-only HTTP API.
type Server struct {
	store *store.Store
	log   zerolog.Logger
}

func New(st *store.Store) *Server {
	return &Server{store: st, log: logging.WithComponent("httpapi")}
}

// Router builds the mux and wraps every route except /health and /metrics
// with request metrics. Uses the
// standard library's method+wildcard ServeMux (no third-party router in the
// pack covers this concern; see DESIGN.md).
func (s *Server) Router() http.Handler {
	r := http.NewServeMux()
	r.HandleFunc("GET /health", s.handleHealth)
	r.Handle("GET /metrics", metrics.Handler())
	r.HandleFunc("GET /metrics/state", s.withMetrics("/metrics/state", s.handleMetricsState))
	r.HandleFunc("GET /cid/{cid}", s.withMetrics("/cid/:cid", s.handleGetCID))
	r.HandleFunc("GET /search", s.withMetrics("/search", s.handleSearch))
	r.HandleFunc("GET /children/{cid}", s.withMetrics("/children/:cid", s.handleChildren))
	r.HandleFunc("GET /parents/{cid}", s.withMetrics("/parents/:cid", s.handleParents))
	return r
}

// withMetrics normalizes the route label (spec.md §6 "paths normalized to
// /cid/:cid, /children/:cid, /parents/:cid") and records count + duration.
func (s *Server) withMetrics(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		timer := metrics.NewTimer()
		h(rw, r)
		timer.ObserveDurationVec(metrics.HTTPRequestDuration, route)
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rw.status)).Inc()
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMetricsState(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetMetrics(r.Context())
	if err != nil {
		s.log.Warn().Err(err).Msg("reading metrics state failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics":    m,
		"migrations": store.ListMigrations(),
	})
}

func (s *Server) handleGetCID(w http.ResponseWriter, r *http.Request) {
	cid := r.PathValue("cid")
	rec, err := s.store.GetCID(r.Context(), cid)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("cid", cid).Msg("getting cid failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := store.SearchParams{
		Tokens:        q["token"],
		Kind:          q.Get("kind"),
		MIME:          q.Get("mime"),
		Source:        q.Get("source"),
		PresentSource: q.Get("present_source"),
		Tag:           q.Get("tag"),
		Limit:         atoiOr(q.Get("limit"), 50),
		Offset:        atoiOr(q.Get("offset"), 0),
	}
	if v := q.Get("present"); v != "" {
		b := v == "1"
		params.Present = &b
	}
	if v := q.Get("is_directory"); v != "" {
		b := v == "1"
		params.IsDirectory = &b
	}

	items, total, err := s.store.Search(r.Context(), params)
	if err != nil {
		s.log.Warn().Err(err).Msg("search failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"limit":  params.Limit,
		"offset": params.Offset,
		"total":  total,
	})
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	cid := r.PathValue("cid")
	children, err := s.store.ChildEdges(r.Context(), cid, childrenLimit)
	if err != nil {
		s.log.Warn().Err(err).Str("cid", cid).Msg("listing children failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cid": cid, "children": children})
}

func (s *Server) handleParents(w http.ResponseWriter, r *http.Request) {
	cid := r.PathValue("cid")
	parents, err := s.store.ParentEdges(r.Context(), cid, parentsLimit)
	if err != nil {
		s.log.Warn().Err(err).Str("cid", cid).Msg("listing parents failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cid": cid, "parents": parents})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

