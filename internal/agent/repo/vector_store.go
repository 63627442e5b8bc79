package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
	errx "github.com/wbdigital-chatbot/server/internal/core/error"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

const vectorField = "vector"

// ElasticVectorStore keeps documents and their embeddings in Elasticsearch
// indices, one index per collection.
type ElasticVectorStore struct {
	es *elasticsearch.Client
}

func NewElasticVectorStore(es *elasticsearch.Client) *ElasticVectorStore {
	return &ElasticVectorStore{es: es}
}

// EnsureCollection creates the index with a dense_vector mapping when missing.
func (s *ElasticVectorStore) EnsureCollection(ctx context.Context, collection string, dims int) error {
	res, err := s.es.Indices.Exists([]string{collection}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errx.WrapElastic("index exists", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return errx.WrapElastic("index exists", fmt.Errorf("unexpected status %s", res.Status()))
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				vectorField: map[string]any{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
				"user_id":   map[string]any{"type": "keyword"},
				"intent":    map[string]any{"type": "keyword"},
				"timestamp": map[string]any{"type": "date"},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	res, err = s.es.Indices.Create(collection,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return errx.WrapElastic("create index", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg := readError(res)
		// another replica may have created it first
		if strings.Contains(msg, "resource_already_exists_exception") {
			return nil
		}
		return errx.WrapElastic("create index", fmt.Errorf("%s: %s", res.Status(), msg))
	}

	logx.Info().Str("collection", collection).Int("dims", dims).Msg("vector collection created")
	return nil
}

// Upsert indexes payload under id; vector may be nil.
func (s *ElasticVectorStore) Upsert(ctx context.Context, collection, id string, vector []float32, payload model.Payload) error {
	doc := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		doc[k] = v
	}
	if len(vector) > 0 {
		doc[vectorField] = vector
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	res, err := s.es.Index(collection, bytes.NewReader(body),
		s.es.Index.WithContext(ctx),
		s.es.Index.WithDocumentID(id),
	)
	if err != nil {
		return errx.WrapElastic("index document", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errx.WrapElastic("index document", fmt.Errorf("%s: %s", res.Status(), readError(res)))
	}
	return nil
}

// Search runs a kNN query when q.Vector is set, otherwise a filtered query
// sorted by q.SortBy descending.
func (s *ElasticVectorStore) Search(ctx context.Context, collection string, q model.SearchQuery) ([]model.Payload, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 1
	}

	filters := make([]map[string]any, 0, len(q.Filter))
	for field, value := range q.Filter {
		filters = append(filters, map[string]any{"term": map[string]any{field: value}})
	}

	query := map[string]any{
		"size":    limit,
		"_source": map[string]any{"excludes": []string{vectorField}},
	}
	if len(q.Vector) > 0 {
		knn := map[string]any{
			"field":          vectorField,
			"query_vector":   q.Vector,
			"k":              limit,
			"num_candidates": max(limit*10, 50),
		}
		if len(filters) > 0 {
			knn["filter"] = map[string]any{"bool": map[string]any{"filter": filters}}
		}
		query["knn"] = knn
	} else {
		query["query"] = map[string]any{"bool": map[string]any{"filter": filters}}
		if q.SortBy != "" {
			query["sort"] = []map[string]any{{q.SortBy: map[string]any{"order": "desc"}}}
		}
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(collection),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errx.WrapElastic("search", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errx.WrapElastic("search", fmt.Errorf("%s: %s", res.Status(), readError(res)))
	}

	var decoded struct {
		Hits struct {
			Hits []struct {
				Source model.Payload `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, errx.WrapElastic("decode search response", err)
	}

	out := make([]model.Payload, 0, len(decoded.Hits.Hits))
	for _, h := range decoded.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func readError(res *esapi.Response) string {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return strings.TrimSpace(string(b))
}

var _ model.VectorStore = (*ElasticVectorStore)(nil)
