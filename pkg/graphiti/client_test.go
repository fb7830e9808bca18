package graphiti

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	c := NewClient(url)
	c.retry.BackoffBase = time.Millisecond
	return c
}

func TestSearchNodes(t *testing.T) {
	t.Run("top-level array response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search/nodes", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "deployment failure", body["query"])
			assert.Equal(t, float64(8), body["max_nodes"])
			assert.Equal(t, []any{}, body["group_ids"])

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"name":"N1","summary":"S1"},{"name":"N2","summary":"S2"}]`))
		}))
		defer srv.Close()

		nodes, err := newTestClient(srv.URL).SearchNodes(context.Background(), "deployment failure", 8)
		require.NoError(t, err)
		require.Len(t, nodes, 2)
		assert.Equal(t, Node{Name: "N1", Summary: "S1"}, nodes[0])
	})

	t.Run("wrapped results response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":[{"name":"N","summary":"S"}]}`))
		}))
		defer srv.Close()

		nodes, err := newTestClient(srv.URL).SearchNodes(context.Background(), "q", 8)
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		assert.Equal(t, "N", nodes[0].Name)
	})

	t.Run("nodes key response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"nodes":[{"name":"N","summary":"S"}]}`))
		}))
		defer srv.Close()

		nodes, err := newTestClient(srv.URL).SearchNodes(context.Background(), "q", 8)
		require.NoError(t, err)
		require.Len(t, nodes, 1)
	})

	t.Run("caps result at max nodes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"name":"A"},{"name":"B"},{"name":"C"}]`))
		}))
		defer srv.Close()

		nodes, err := newTestClient(srv.URL).SearchNodes(context.Background(), "q", 2)
		require.NoError(t, err)
		assert.Len(t, nodes, 2)
	})
}

func TestSearchFacts(t *testing.T) {
	t.Run("deduplicates by exact text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search", r.URL.Path)
			w.Write([]byte(`[{"fact":"A"},{"fact":"B"},{"fact":"A"},{"fact":"C"}]`))
		}))
		defer srv.Close()

		facts, err := newTestClient(srv.URL).SearchFacts(context.Background(), "q", 20)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, facts)
	})

	t.Run("caps at max facts after dedup", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"fact":"A"},{"fact":"A"},{"fact":"B"},{"fact":"C"}]`))
		}))
		defer srv.Close()

		facts, err := newTestClient(srv.URL).SearchFacts(context.Background(), "q", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, facts)
	})
}

func TestRetryPolicy(t *testing.T) {
	t.Run("retries on 503 then succeeds", func(t *testing.T) {
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`[{"name":"N","summary":"S"}]`))
		}))
		defer srv.Close()

		nodes, err := newTestClient(srv.URL).SearchNodes(context.Background(), "q", 8)
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
		assert.Len(t, nodes, 1)
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).SearchNodes(context.Background(), "q", 8)
		require.Error(t, err)
		assert.Equal(t, 3, attempts)
		assert.Contains(t, err.Error(), "after 3 attempts")
	})

	t.Run("no retry on 400", func(t *testing.T) {
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).SearchNodes(context.Background(), "q", 8)
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})
}

func TestRetrieve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/nodes":
			w.Write([]byte(`[{"name":"N","summary":"S"}]`))
		case "/search":
			w.Write([]byte(`[{"fact":"F"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).Retrieve(context.Background(), "q", 8, 20)
	require.NoError(t, err)
	assert.Len(t, result.Nodes, 1)
	assert.Equal(t, []string{"F"}, result.Facts)
	assert.Equal(t, "q", result.Query)
	assert.Equal(t, 8, result.MaxNodes)
	assert.Equal(t, 20, result.MaxFacts)
}

func TestRetrieveRunsSearchesConcurrently(t *testing.T) {
	// Each handler waits for the other request to arrive before responding,
	// so this only completes if both searches are in flight at once.
	var barrier sync.WaitGroup
	barrier.Add(2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		barrier.Done()
		barrier.Wait()
		switch r.URL.Path {
		case "/search/nodes":
			w.Write([]byte(`[{"name":"N","summary":"S"}]`))
		case "/search":
			w.Write([]byte(`[{"fact":"F"}]`))
		}
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).Retrieve(context.Background(), "q", 8, 20)
	require.NoError(t, err)
	assert.Len(t, result.Nodes, 1)
	assert.Len(t, result.Facts, 1)
}
