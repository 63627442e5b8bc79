package repo

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
)

// MemoryVectorStore is an in-process VectorStore for local runs without Elasticsearch.
type MemoryVectorStore struct {
	mu   sync.RWMutex
	docs map[string][]memoryDoc
}

type memoryDoc struct {
	id      string
	vector  []float32
	payload model.Payload
	seq     int
}

func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{docs: make(map[string][]memoryDoc)}
}

func (s *MemoryVectorStore) EnsureCollection(_ context.Context, collection string, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[collection]; !ok {
		s.docs[collection] = nil
	}
	return nil
}

func (s *MemoryVectorStore) Upsert(_ context.Context, collection, id string, vector []float32, payload model.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.docs[collection]
	doc := memoryDoc{id: id, vector: vector, payload: payload, seq: len(docs)}
	for i := range docs {
		if docs[i].id == id {
			doc.seq = docs[i].seq
			docs[i] = doc
			return nil
		}
	}
	s.docs[collection] = append(docs, doc)
	return nil
}

func (s *MemoryVectorStore) Search(_ context.Context, collection string, q model.SearchQuery) ([]model.Payload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc   memoryDoc
		score float64
	}
	var hits []scored
	for _, d := range s.docs[collection] {
		if !matchesFilter(d.payload, q.Filter) {
			continue
		}
		h := scored{doc: d}
		if len(q.Vector) > 0 {
			h.score = cosine(q.Vector, d.vector)
		}
		hits = append(hits, h)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if len(q.Vector) > 0 {
			return hits[i].score > hits[j].score
		}
		if q.SortBy != "" {
			return hits[i].doc.payload.String(q.SortBy) > hits[j].doc.payload.String(q.SortBy)
		}
		return hits[i].doc.seq > hits[j].doc.seq
	})

	limit := q.Limit
	if limit <= 0 {
		limit = 1
	}
	out := make([]model.Payload, 0, min(limit, len(hits)))
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].doc.payload)
	}
	return out, nil
}

// Len returns the number of documents in collection.
func (s *MemoryVectorStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[collection])
}

func matchesFilter(p model.Payload, filter map[string]string) bool {
	for k, v := range filter {
		if p.String(k) != v {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ model.VectorStore = (*MemoryVectorStore)(nil)
