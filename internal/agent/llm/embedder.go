package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"google.golang.org/genai"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
	"github.com/wbdigital-chatbot/server/internal/agent/textutil"
)

const (
	EmbeddingGemini = "gemini"
	EmbeddingHash   = "hash"
)

// GenAIEmbedder calls the Gemini embedding endpoint.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
	dims   int
}

func NewGenAIEmbedder(client *genai.Client, modelName string, dims int) *GenAIEmbedder {
	return &GenAIEmbedder{client: client, model: modelName, dims: dims}
}

func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(e.dims)),
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embed content: empty embedding")
	}
	return resp.Embeddings[0].Values, nil
}

func (e *GenAIEmbedder) Dimensions() int { return e.dims }

// HashEmbedder is a deterministic bag-of-words embedder for local runs and tests.
// Tokens are hashed into buckets and the vector is L2-normalized.
type HashEmbedder struct {
	dims int
}

func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dims)
	for _, tok := range strings.Fields(textutil.Normalize(text)) {
		tok = strings.Trim(tok, ".,;:!?¿¡\"'()[]")
		if tok == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(tok))
		v[h.Sum32()%uint32(e.dims)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		// cosine similarity is undefined for the zero vector
		v[0] = 1
		return v, nil
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v, nil
}

func (e *HashEmbedder) Dimensions() int { return e.dims }

// NewEmbedder selects the configured embedding backend.
func NewEmbedder(ctx context.Context, cfg model.EmbeddingConfig, provider model.ProviderConfig) (model.Embedder, error) {
	switch cfg.Provider {
	case EmbeddingHash, "":
		return NewHashEmbedder(cfg.Dimensions), nil
	case EmbeddingGemini:
		client, err := NewGenAIClient(ctx, provider)
		if err != nil {
			return nil, err
		}
		return NewGenAIEmbedder(client, cfg.Model, cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", cfg.Provider)
	}
}
