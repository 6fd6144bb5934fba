package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/network-lumen/gateway-agent/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalogue.db")
	st, err := store.Open(dbPath, 2*time.Second, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenAppliesSchemaAndIsReusable(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UnixMilli()
	require.NoError(t, st.UpsertPinRoot(ctx, "cid-one", now))

	rec, err := st.GetCID(ctx, "cid-one")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.True(t, rec.Present)
	require.EqualValues(t, "pin-root", rec.PresentSource)
}

func TestOpenTwiceAgainstSamePathFailsLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalogue.db")
	st, err := store.Open(dbPath, 2*time.Second, zerolog.Nop())
	require.NoError(t, err)
	defer st.Close()

	_, err = store.Open(dbPath, 2*time.Second, zerolog.Nop())
	require.Error(t, err)
}

func TestUpsertPinRootThenMarkRemoved(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	require.NoError(t, st.UpsertPinRoot(ctx, "cid-a", now))
	present, err := st.PresentPinRootCIDs(ctx)
	require.NoError(t, err)
	require.Contains(t, present, "cid-a")

	require.NoError(t, st.MarkPinRemoved(ctx, "cid-a", now+1))
	present, err = st.PresentPinRootCIDs(ctx)
	require.NoError(t, err)
	require.NotContains(t, present, "cid-a")

	rec, err := st.GetCID(ctx, "cid-a")
	require.NoError(t, err)
	require.False(t, rec.Present)
	require.NotNil(t, rec.RemovedAtMs)
}

func TestExpandedChildDoesNotOverridePinRoot(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	require.NoError(t, st.UpsertPinRoot(ctx, "cid-pin", now))
	require.NoError(t, st.UpsertExpandedChild(ctx, "cid-pin", 0, now+1))

	rec, err := st.GetCID(ctx, "cid-pin")
	require.NoError(t, err)
	require.EqualValues(t, "pin-root", rec.PresentSource)
}

func TestGetCIDNotFound(t *testing.T) {
	st := openTestStore(t)
	_, err := st.GetCID(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCrawlCandidatesSkipsUnresolvedDirectories(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	require.NoError(t, st.UpsertPinRoot(ctx, "cid-file", now))
	require.NoError(t, st.UpsertPinRoot(ctx, "cid-dir", now))
	require.NoError(t, st.MarkExpanded(ctx, "cid-dir", "", now))

	candidates, err := st.CrawlCandidates(ctx, "v1", 10)
	require.NoError(t, err)

	var cids []string
	for _, c := range candidates {
		cids = append(cids, c.CID)
	}
	require.Contains(t, cids, "cid-file")
	require.NotContains(t, cids, "cid-dir")
}
