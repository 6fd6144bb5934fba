package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/network-lumen/gateway-agent/internal/httpapi"
	"github.com/network-lumen/gateway-agent/internal/store"
)

func newTestServer(t *testing.T) (*httpapi.Server, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalogue.db")
	st, err := store.Open(dbPath, 2*time.Second, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return httpapi.New(st), st
}

func TestHealthHandler(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body["ok"])
}

func TestGetCIDNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/cid/bafymissing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCIDFound(t *testing.T) {
	srv, st := newTestServer(t)
	r := srv.Router()

	now := time.Now().UnixMilli()
	require.NoError(t, st.UpsertPinRoot(t.Context(), "cid-present", now))

	req := httptest.NewRequest(http.MethodGet, "/cid/cid-present", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "cid-present", body["cid"])
}

func TestSearchReturnsEmptyResultShape(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/search?kind=image&limit=10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(10), body["limit"])
	assert.Equal(t, float64(0), body["total"])
}

func TestChildrenEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/children/cid-a", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "cid-a", body["cid"])
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}
