// Package embedder provides the pluggable embedding function chromem-go's
// collections call to turn text into vectors, plus a deterministic local
// fallback (C10) for when no remote embedding API is configured.
package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder is the pluggable interface for turning text into a vector.
// Its signature matches chromem.EmbeddingFunc exactly, so any Embedder's
// Embed method can be handed to chromem-go directly as a function value.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HashEmbedder is a deterministic, dependency-free embedder: it buckets
// words into a fixed number of dimensions by hash and normalizes the
// result, so documents sharing vocabulary land closer together in cosine
// space. Both cmd/hme and cmd/memreconcile embed with it whatever API keys
// are configured — semantic search
// quality is well below a trained embedding model, but results are
// reproducible and require no network access.
type HashEmbedder struct {
	Dimensions int
}

// NewHashEmbedder returns a HashEmbedder with a sensible default dimension
// count.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{Dimensions: 256}
}

// Embed implements Embedder.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dims := e.Dimensions
	if dims <= 0 {
		dims = 256
	}
	vec := make([]float32, dims)

	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return vec, nil
	}

	for _, word := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		hash := h.Sum32()
		for i := 0; i < 3; i++ {
			dim := int((hash + uint32(i)*2654435761) % uint32(dims)) //nolint:gosec // bucketing, not crypto
			vec[dim] += float32(math.Sin(float64(hash+uint32(i))*0.1) + 1.0)
		}
	}

	var magnitude float32
	for _, v := range vec {
		magnitude += v * v
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))
	if magnitude > 0 {
		for i := range vec {
			vec[i] /= magnitude
		}
	}
	return vec, nil
}

// AsFunc adapts any Embedder to the chromem.EmbeddingFunc shape
// (func(context.Context, string) ([]float32, error)) that chromem-go's
// collections expect at creation time.
func AsFunc(e Embedder) func(ctx context.Context, text string) ([]float32, error) {
	return e.Embed
}
