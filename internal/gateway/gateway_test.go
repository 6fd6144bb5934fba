package gateway_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/network-lumen/gateway-agent/internal/gateway"
)

func TestHeadReturnsContentLengthAndType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", "1024")
	}))
	t.Cleanup(srv.Close)

	c := gateway.New(srv.URL, 2*time.Second, 0)
	resp, err := c.Head(t.Context(), "cid-1")
	require.NoError(t, err)
	require.Equal(t, "image/png", resp.ContentType)
	require.EqualValues(t, 1024, resp.TotalLength)
}

func TestGetRangeHonorsContentRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "bytes=0-9", r.Header.Get("Range"))
		w.Header().Set("Content-Range", "bytes 0-9/100")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("0123456789"))
	}))
	t.Cleanup(srv.Close)

	c := gateway.New(srv.URL, 2*time.Second, 0)
	resp, err := c.GetRange(t.Context(), "cid-1", 0, 9, 1024)
	require.NoError(t, err)
	require.False(t, resp.RangeIgnored)
	require.Equal(t, "0123456789", string(resp.Body))
}

func TestGetRangeDetectsIgnoredRangeAndCapsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Server ignores the Range header and returns 200 with the full body.
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("this body is much longer than the cap"))
	}))
	t.Cleanup(srv.Close)

	c := gateway.New(srv.URL, 2*time.Second, 0)
	resp, err := c.GetRange(t.Context(), "cid-1", 0, -1, 8)
	require.NoError(t, err)
	require.True(t, resp.RangeIgnored)
	require.Len(t, resp.Body, 8)
}

func TestHeadRetriesOnServerErrorThenFails(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := gateway.New(srv.URL, 2*time.Second, 2)
	_, err := c.Head(t.Context(), "cid-1")
	require.Error(t, err)
	require.GreaterOrEqual(t, calls, 1)
}
