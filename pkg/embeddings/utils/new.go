// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/wcagrag/pkg/embeddings"
	"github.com/papercomputeco/wcagrag/pkg/embeddings/gemini"
	"github.com/papercomputeco/wcagrag/pkg/embeddings/hash"
	"github.com/papercomputeco/wcagrag/pkg/embeddings/ollama"
	"github.com/papercomputeco/wcagrag/pkg/embeddings/openai"
	"github.com/papercomputeco/wcagrag/pkg/embeddings/ratelimit"
)

// Supported embedding provider names.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderHash   = "hash"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Dimensions   uint

	// RequestsPerSecond throttles provider calls. Zero disables throttling.
	RequestsPerSecond float64
}

func NewEmbedder(ctx context.Context, o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		e   embeddings.Embedder
		err error
	)

	switch o.ProviderType {
	case ProviderOllama:
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case ProviderOpenAI:
		e, err = openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: int(o.Dimensions),
		})
	case ProviderGemini:
		e, err = gemini.NewEmbedder(ctx, gemini.EmbedderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: int32(o.Dimensions),
		})
	case ProviderHash:
		e = hash.NewEmbedder(int(o.Dimensions))
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", embeddings.ErrConfiguration, o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	return ratelimit.New(e, o.RequestsPerSecond, 1), nil
}
