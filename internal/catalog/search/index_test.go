package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulocustoms/shop/internal/models"
)

type fakeES struct {
	mu      sync.Mutex
	indexed map[string]map[string]any
	queries []map[string]any
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"name":"es","version":{"number":"9.0.0","build_flavor":"default"},"tagline":"You Know, for Search"}`)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		var q map[string]any
		_ = json.NewDecoder(r.Body).Decode(&q)
		f.queries = append(f.queries, q)
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":3},"hits":[{"_id":"3"},{"_id":"bogus"},{"_id":"1"}]}}`)
	case strings.HasPrefix(r.URL.Path, "/products/_doc/") && r.Method == http.MethodPut:
		var doc map[string]any
		_ = json.NewDecoder(r.Body).Decode(&doc)
		f.indexed[strings.TrimPrefix(r.URL.Path, "/products/_doc/")] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case strings.HasPrefix(r.URL.Path, "/products/_doc/") && r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"result":"not_found"}`)
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{}`)
	}
}

func newTestIndex(t *testing.T) (*ESIndex, *fakeES) {
	t.Helper()
	fake := &fakeES{indexed: map[string]map[string]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	idx, err := NewESIndex(Config{URL: srv.URL, Index: "products"})
	require.NoError(t, err)
	return idx, fake
}

func TestESIndex_IndexAndDelete(t *testing.T) {
	idx, fake := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexProduct(ctx, &models.Product{ID: 7, Name: "Felga", Description: "aluminium", Active: true}))
	require.Contains(t, fake.indexed, "7")
	assert.Equal(t, "Felga", fake.indexed["7"]["name"])
	assert.Equal(t, true, fake.indexed["7"]["active"])

	require.NoError(t, idx.DeleteProduct(ctx, 7))
}

func TestESIndex_Search(t *testing.T) {
	idx, fake := newTestIndex(t)

	ids, err := idx.Search(context.Background(), "felga", true)
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 1}, ids)

	require.Len(t, fake.queries, 1)
	boolQ := fake.queries[0]["query"].(map[string]any)["bool"].(map[string]any)
	assert.Contains(t, boolQ, "filter")

	_, err = idx.Search(context.Background(), "felga", false)
	require.NoError(t, err)
	boolQ = fake.queries[1]["query"].(map[string]any)["bool"].(map[string]any)
	assert.NotContains(t, boolQ, "filter")
}
