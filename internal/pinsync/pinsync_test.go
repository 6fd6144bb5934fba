package pinsync_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/network-lumen/gateway-agent/internal/noderpc"
	"github.com/network-lumen/gateway-agent/internal/pinsync"
	"github.com/network-lumen/gateway-agent/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalogue.db")
	st, err := store.Open(dbPath, 2*time.Second, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newFakeNode(t *testing.T, keys ...string) *noderpc.Client {
	t.Helper()
	pins := map[string]json.RawMessage{}
	for _, k := range keys {
		pins[k] = json.RawMessage(`{}`)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": pins})
	}))
	t.Cleanup(srv.Close)
	return noderpc.New(srv.URL, 2*time.Second, 0)
}

func TestSyncAddsNewPins(t *testing.T) {
	st := newTestStore(t)
	node := newFakeNode(t, "cid-a", "cid-b")

	syncer := pinsync.New(st, node, time.Minute)
	syncer.Sync(t.Context())

	present, err := st.PresentPinRootCIDs(t.Context())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"cid-a", "cid-b"}, present)

	m, err := st.GetMetrics(t.Context())
	require.NoError(t, err)
	require.True(t, m.LastPinRefreshSuccess)
	require.EqualValues(t, 2, m.PinsCurrent)
}

func TestSyncRemovesDroppedPins(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UnixMilli()
	require.NoError(t, st.UpsertPinRoot(t.Context(), "cid-stale", now))

	node := newFakeNode(t, "cid-fresh")
	syncer := pinsync.New(st, node, time.Minute)
	syncer.Sync(t.Context())

	present, err := st.PresentPinRootCIDs(t.Context())
	require.NoError(t, err)
	require.NotContains(t, present, "cid-stale")
	require.Contains(t, present, "cid-fresh")
}

func TestSyncRecordsFailureOnNodeError(t *testing.T) {
	st := newTestStore(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	node := noderpc.New(srv.URL, 2*time.Second, 0)

	syncer := pinsync.New(st, node, time.Minute)
	syncer.Sync(t.Context())

	m, err := st.GetMetrics(t.Context())
	require.NoError(t, err)
	require.False(t, m.LastPinRefreshSuccess)
}
