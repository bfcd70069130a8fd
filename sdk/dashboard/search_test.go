package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_RetriesOnceOnNetworkFailure(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&attempts, 1)
		if n == 1 {
			// Kill the connection mid-flight to simulate a transport failure.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"results": []SearchResult{{Type: "brand", ID: "b1", Name: "Kia", BrandName: "Kia", MatchScore: 100}},
		}, "")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())
	results, err := c.Search(context.Background(), "v1", "kia")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Kia", results[0].Name)
	assert.EqualValues(t, 2, atomic.LoadInt64(&attempts))
}

func TestSearch_NoRetryOnServerError(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		writeEnvelope(w, http.StatusNotFound, nil, "version not found")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())
	_, err := c.Search(context.Background(), "missing", "kia")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.EqualValues(t, 1, atomic.LoadInt64(&attempts), "server-reported failures are final")
}

func TestSearch_RetryRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, managerSession())
	_, err := c.Search(ctx, "v1", "kia")
	require.Error(t, err)
}

func TestSearch_BypassesCache(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		writeEnvelope(w, http.StatusOK, map[string]any{"results": []SearchResult{}}, "")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())
	for i := 0; i < 3; i++ {
		_, err := c.Search(context.Background(), "v1", "kia")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, atomic.LoadInt64(&attempts), "search results must never be served stale")
}

func TestSelectionQuery(t *testing.T) {
	t.Run("brand result", func(t *testing.T) {
		q := SelectionQuery(SearchResult{Type: "brand", Name: "Kia", BrandName: "Kia"})
		assert.Equal(t, "brand:Kia", q)
	})

	t.Run("model carries its brand context", func(t *testing.T) {
		q := SelectionQuery(SearchResult{Type: "model", Name: "K5", BrandName: "Kia"})
		assert.Equal(t, "brand:Kia+model:K5", q)
	})

	t.Run("trim without brand context", func(t *testing.T) {
		q := SelectionQuery(SearchResult{Type: "trim", Name: "Signature"})
		assert.Equal(t, "trim:Signature", q)
	})
}
