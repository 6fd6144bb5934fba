package typecrawl_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/network-lumen/gateway-agent/internal/analyze"
	"github.com/network-lumen/gateway-agent/internal/detect"
	"github.com/network-lumen/gateway-agent/internal/gateway"
	"github.com/network-lumen/gateway-agent/internal/store"
	"github.com/network-lumen/gateway-agent/internal/tagger"
	"github.com/network-lumen/gateway-agent/internal/typecrawl"
)

const plainTextBody = "just a plain text document with enough words to tokenize nicely"

func newPlainTextGatewayServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "64")
			return
		}
		// No Content-Range header: the gateway is treated as having
		// ignored the Range request and returned the full body.
		_, _ = w.Write([]byte(plainTextBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlDetectsAndIndexesCandidate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalogue.db")
	st, err := store.Open(dbPath, 2*time.Second, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv := newPlainTextGatewayServer(t)
	gw := gateway.New(srv.URL, 2*time.Second, 0)
	detector := detect.New(gw, detect.Config{SampleBytes: 256, MaxTotalBytes: 256})
	analyzer := analyze.New(tagger.NullTagger{})

	now := time.Now().UnixMilli()
	require.NoError(t, st.UpsertPinRoot(t.Context(), "cid-text", now))

	crawler := typecrawl.New(st, gw, detector, analyzer, time.Minute, 2, 256, 128)
	crawler.Crawl(t.Context(), 10)

	rec, err := st.GetCID(t.Context(), "cid-text")
	require.NoError(t, err)
	require.NotNil(t, rec.MIME)
	require.Equal(t, "text/plain", *rec.MIME)
	require.Equal(t, detect.DetectorVersion, rec.DetectorVersion)

	m, err := st.GetMetrics(t.Context())
	require.NoError(t, err)
	require.EqualValues(t, 1, m.TypesIndexedTotal)
}

func TestCrawlWithNoCandidatesIsNoOp(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalogue.db")
	st, err := store.Open(dbPath, 2*time.Second, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv := newPlainTextGatewayServer(t)
	gw := gateway.New(srv.URL, 2*time.Second, 0)
	detector := detect.New(gw, detect.Config{SampleBytes: 256, MaxTotalBytes: 256})
	analyzer := analyze.New(tagger.NullTagger{})

	crawler := typecrawl.New(st, gw, detector, analyzer, time.Minute, 2, 256, 128)
	crawler.Crawl(t.Context(), 10)

	m, err := st.GetMetrics(t.Context())
	require.NoError(t, err)
	require.EqualValues(t, 0, m.TypesIndexedTotal)
}
