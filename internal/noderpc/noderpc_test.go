package noderpc_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/network-lumen/gateway-agent/internal/noderpc"
)

func TestPinsReturnsKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pins", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": map[string]any{
				"cid-a": map[string]any{"Type": "recursive"},
				"cid-b": map[string]any{"Type": "recursive"},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := noderpc.New(srv.URL, 2*time.Second, 0)
	keys, err := c.Pins(t.Context())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"cid-a", "cid-b"}, keys)
}

func TestLsFlattensLinksAcrossObjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "cid-root", r.URL.Query().Get("arg"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Objects": []map[string]any{
				{"Links": []map[string]any{
					{"Hash": "cid-child-1", "Name": "a.txt"},
				}},
				{"Links": []map[string]any{
					{"Cid": "cid-child-2", "Name": "b.txt"},
				}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := noderpc.New(srv.URL, 2*time.Second, 0)
	links, err := c.Ls(t.Context(), "cid-root")
	require.NoError(t, err)
	require.Len(t, links, 2)
	require.Equal(t, "cid-child-1", links[0].CID())
	require.Equal(t, "cid-child-2", links[1].CID())
}

func TestLsSurfacesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	c := noderpc.New(srv.URL, 2*time.Second, 0)
	_, err := c.Ls(t.Context(), "cid-missing")
	require.Error(t, err)
}

func TestBaseURLTrimsTrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": map[string]any{}})
	}))
	t.Cleanup(srv.Close)

	c := noderpc.New(srv.URL+"/", 2*time.Second, 0)
	_, err := c.Pins(t.Context())
	require.NoError(t, err)
	require.Equal(t, "/pins", gotPath)
}
