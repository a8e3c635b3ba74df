// Package gemini implements pkg/embeddings' Embedder using the Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/papercomputeco/wcagrag/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is the model used when none is configured.
	DefaultEmbeddingModel = "text-embedding-004"

	// maxBatch is the Gemini batchEmbedContents request limit.
	maxBatch = 100
)

// EmbedderConfig holds configuration for the Gemini embedder.
type EmbedderConfig struct {
	// APIKey is required.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	// Dimensions truncates output embeddings. Zero keeps the model's size.
	Dimensions int32
}

// Embedder wraps genai's EmbedContent.
type Embedder struct {
	client *genai.Client
	model  string
	config *genai.EmbedContentConfig
}

// NewEmbedder creates a Gemini embedder. A missing API key is a
// configuration error.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is not set (set GEMINI_API_KEY or run 'wcagrag auth gemini')", embeddings.ErrConfiguration)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating gemini client: %w", embeddings.ErrConfiguration, err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	ec := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"}
	if cfg.Dimensions > 0 {
		dims := cfg.Dimensions
		ec.OutputDimensionality = &dims
	}

	return &Embedder{client: client, model: model, config: ec}, nil
}

// Embed converts text into a vector embedding.
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

		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}

		resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, e.config)
		if err != nil {
			return nil, fmt.Errorf("%w: gemini: %w", embeddings.ErrEmbedding, err)
		}
		if resp == nil || len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("%w: gemini returned an unexpected number of embeddings", embeddings.ErrEmbedding)
		}

		for _, emb := range resp.Embeddings {
			out = append(out, emb.Values)
		}
	}

	return out, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
