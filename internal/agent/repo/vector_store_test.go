package repo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
)

type esCall struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeElastic answers the handful of endpoints the store uses and records requests.
type fakeElastic struct {
	mu        sync.Mutex
	calls     []esCall
	indices   map[string]bool
	searchHit string
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	var body map[string]any
	if b, _ := io.ReadAll(r.Body); len(b) > 0 {
		_ = json.Unmarshal(b, &body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, esCall{Method: r.Method, Path: r.URL.Path, Body: body})
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodHead:
		if f.indices[r.URL.Path[1:]] {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodPut && len(r.URL.Path) > 1 && !containsSlash(r.URL.Path[1:]):
		f.indices[r.URL.Path[1:]] = true
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodPut || (r.Method == http.MethodPost && !isSearch(r.URL.Path)):
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case isSearch(r.URL.Path):
		_, _ = w.Write([]byte(`{"hits":{"hits":[` + f.searchHit + `]}}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeElastic) recorded() []esCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]esCall(nil), f.calls...)
}

func containsSlash(s string) bool {
	for _, c := range s {
		if c == '/' {
			return true
		}
	}
	return false
}

func isSearch(path string) bool {
	return len(path) >= 8 && path[len(path)-8:] == "/_search"
}

func newFakeStore(t *testing.T, f *fakeElastic) *ElasticVectorStore {
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewElasticVectorStore(es)
}

func TestEnsureCollectionCreatesMissingIndex(t *testing.T) {
	f := &fakeElastic{indices: map[string]bool{"chat_logs": true}}
	store := newFakeStore(t, f)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, "chat_logs", 8))
	require.NoError(t, store.EnsureCollection(ctx, "company_info", 8))

	calls := f.recorded()
	require.Len(t, calls, 3)
	assert.Equal(t, http.MethodPut, calls[2].Method)
	assert.Equal(t, "/company_info", calls[2].Path)

	props := calls[2].Body["mappings"].(map[string]any)["properties"].(map[string]any)
	vec := props["vector"].(map[string]any)
	assert.Equal(t, "dense_vector", vec["type"])
	assert.Equal(t, float64(8), vec["dims"])
}

func TestUpsertIndexesDocumentWithVector(t *testing.T) {
	f := &fakeElastic{indices: map[string]bool{}}
	store := newFakeStore(t, f)

	err := store.Upsert(context.Background(), "chat_logs", "id-1", []float32{0.5, 0.5}, model.Payload{"user_id": "u1"})
	require.NoError(t, err)

	calls := f.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "/chat_logs/_doc/id-1", calls[0].Path)
	assert.Equal(t, "u1", calls[0].Body["user_id"])
	assert.Len(t, calls[0].Body["vector"], 2)
}

func TestSearchBuildsKnnAndFilterQueries(t *testing.T) {
	f := &fakeElastic{
		indices:   map[string]bool{},
		searchHit: `{"_source":{"content":"we build websites"}}`,
	}
	store := newFakeStore(t, f)
	ctx := context.Background()

	hits, err := store.Search(ctx, "company_info", model.SearchQuery{Vector: []float32{1, 0}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "we build websites", hits[0].String("content"))

	_, err = store.Search(ctx, "chat_logs", model.SearchQuery{
		Filter: map[string]string{"user_id": "u1"},
		SortBy: "timestamp",
		Limit:  3,
	})
	require.NoError(t, err)

	calls := f.recorded()
	require.Len(t, calls, 2)

	knn := calls[0].Body["knn"].(map[string]any)
	assert.Equal(t, "vector", knn["field"])
	assert.Equal(t, float64(1), knn["k"])

	assert.NotContains(t, calls[1].Body, "knn")
	assert.Equal(t, float64(3), calls[1].Body["size"])
	sort := calls[1].Body["sort"].([]any)[0].(map[string]any)
	assert.Contains(t, sort, "timestamp")
}

func TestSearchReportsClusterErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad query"}`))
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	_, err = NewElasticVectorStore(es).Search(context.Background(), "x", model.SearchQuery{Limit: 1})
	assert.ErrorContains(t, err, "bad query")
}
