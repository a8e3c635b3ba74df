// Package openai implements pkg/embeddings' Embedder on top of the OpenAI
// embeddings API.
package openai

import (
	"context"
	"fmt"
	"math"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/wcagrag/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is the model used when none is configured.
	DefaultEmbeddingModel = string(goopenai.SmallEmbedding3)

	// maxBatch is the number of inputs sent in a single request.
	maxBatch = 256
)

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// APIKey is required.
	APIKey string

	// BaseURL overrides the API endpoint, e.g. for Azure or a compatible proxy.
	BaseURL string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	// Dimensions requests shortened embeddings from text-embedding-3 models.
	// Zero keeps the model's native size.
	Dimensions int
}

// Embedder wraps the OpenAI embeddings endpoint.
type Embedder struct {
	client     *goopenai.Client
	model      string
	dimensions int
}

// NewEmbedder creates an OpenAI embedder. A missing API key is a
// configuration error.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is not set (set OPENAI_API_KEY or run 'wcagrag auth openai')", embeddings.ErrConfiguration)
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		client:     goopenai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts text into a unit-length vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in request-sized groups, preserving order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))

		resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
			Input:      texts[start:end],
			Model:      goopenai.EmbeddingModel(e.model),
			Dimensions: e.dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: openai: %w", embeddings.ErrEmbedding, err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("%w: openai returned %d embeddings for %d inputs", embeddings.ErrEmbedding, len(resp.Data), end-start)
		}

		batch := make([][]float32, end-start)
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("%w: openai returned out of range index %d", embeddings.ErrEmbedding, d.Index)
			}
			batch[d.Index] = normalize(d.Embedding)
		}
		out = append(out, batch...)
	}

	return out, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

// normalize scales v to unit length so cosine and dot product agree.
func normalize(v []float32) []float32 {
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
