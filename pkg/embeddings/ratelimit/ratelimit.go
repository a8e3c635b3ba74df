// Package ratelimit wraps an Embedder with a client-side request limiter so
// large index builds stay under provider quotas. Waiting is not retrying: a
// provider error is still returned to the caller unchanged.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/papercomputeco/wcagrag/pkg/embeddings"
)

// Embedder delays calls to the wrapped Embedder to at most the configured
// number of requests per second.
type Embedder struct {
	next    embeddings.Embedder
	limiter *rate.Limiter
}

// New wraps next. A non-positive rps disables limiting and returns next as is.
func New(next embeddings.Embedder, rps float64, burst int) embeddings.Embedder {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Embedder{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for embedding rate limit: %w", err)
	}
	return e.next.Embed(ctx, text)
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for embedding rate limit: %w", err)
	}
	return e.next.EmbedBatch(ctx, texts)
}

func (e *Embedder) Close() error {
	return e.next.Close()
}
