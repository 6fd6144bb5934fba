package direxpand_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/network-lumen/gateway-agent/internal/direxpand"
	"github.com/network-lumen/gateway-agent/internal/noderpc"
	"github.com/network-lumen/gateway-agent/internal/store"
	"github.com/network-lumen/gateway-agent/internal/types"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalogue.db")
	st, err := store.Open(dbPath, 2*time.Second, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// newLsServer answers /ls?arg=cid-root with two children (an index.html and
// a nested "sub" entry) and empty link lists for everything else, so the
// path-index BFS terminates without modelling a full filesystem.
func newLsServer(t *testing.T) *noderpc.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arg := r.URL.Query().Get("arg")
		var links []noderpc.LsLink
		if arg == "cid-root" {
			links = []noderpc.LsLink{
				{Hash: "cid-index", Name: "index.html"},
				{Hash: "cid-sub", Name: "sub"},
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Objects": []map[string]any{{"Links": links}},
		})
	}))
	t.Cleanup(srv.Close)
	return noderpc.New(srv.URL, 2*time.Second, 0)
}

func TestExpandBuildsEdgesAndPathIndex(t *testing.T) {
	st := newTestStore(t)
	node := newLsServer(t)
	now := time.Now().UnixMilli()
	require.NoError(t, st.UpsertPinRoot(t.Context(), "cid-root", now))

	expander := direxpand.New(st, node, direxpand.Config{
		MaxDepth: 4, TTL: time.Hour, BatchSize: 10, MaxChildren: 100, PruneChildren: true, TrackParent: true,
		PathMaxDepth: 3, PathMaxDirsPerRoot: 10, PathMaxFilesPerRoot: 10,
	})
	expander.Expand(t.Context())

	root, err := st.GetCID(t.Context(), "cid-root")
	require.NoError(t, err)
	require.True(t, root.IsDirectory)

	children, err := st.ChildEdges(t.Context(), "cid-root", 10)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"cid-index", "cid-sub"}, children)

	paths, err := st.PathsForRoot(t.Context(), "cid-root")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Equal(t, "index.html", paths[0].Path)
	require.Equal(t, "cid-index", paths[0].LeafCID)

	require.NotNil(t, root.SiteEntryCID)
	require.Equal(t, "cid-index", *root.SiteEntryCID)
}

func TestIsLikelyDirectoryViaMarkNotDirectory(t *testing.T) {
	st := newTestStore(t)
	node := newLsServer(t)
	now := time.Now().UnixMilli()

	require.NoError(t, st.UpsertPinRoot(t.Context(), "cid-file", now))
	require.NoError(t, st.ApplyDetection(t.Context(), "cid-file", store.DetectionUpdate{
		Kind: types.KindImage, Confidence: 0.9, DetectorVersion: "v1", IndexedAtMs: now,
	}, now))

	expander := direxpand.New(st, node, direxpand.Config{
		MaxDepth: 4, TTL: time.Hour, BatchSize: 10, MaxChildren: 100,
		PathMaxDepth: 3, PathMaxDirsPerRoot: 10, PathMaxFilesPerRoot: 10,
	})
	expander.Expand(t.Context())

	rec, err := st.GetCID(t.Context(), "cid-file")
	require.NoError(t, err)
	require.False(t, rec.IsDirectory)
	require.NotNil(t, rec.ExpandedAtMs)
}
