// Package hash provides a deterministic, offline Embedder based on feature
// hashing. Texts that share words land close together, which is enough for
// tests and air-gapped demos; it carries no semantic understanding.
package hash

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/papercomputeco/wcagrag/pkg/embeddings"
)

// DefaultDimensions is the vector size used when none is configured.
const DefaultDimensions = 256

// Embedder hashes lower-cased word tokens into a fixed number of buckets.
type Embedder struct {
	dims int
}

// NewEmbedder returns a hash embedder producing dims-sized vectors.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// Embed converts text into a unit-length vector. Text without any word
// characters yields the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

// EmbedBatch embeds every text, preserving order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

func (e *Embedder) vector(text string) []float32 {
	v := make([]float32, e.dims)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := xxhash.Sum64String(tok)
		idx := h % uint64(e.dims)
		if h>>63 == 1 {
			v[idx]--
		} else {
			v[idx]++
		}
	}

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}

var _ embeddings.Embedder = (*Embedder)(nil)
