package embeddings

import "errors"

var (
	// ErrEmbedding is returned when the embedding provider fails a request.
	// Callers surface it unchanged; providers do not retry.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConfiguration is returned by constructors when a provider is missing
	// a required credential or setting.
	ErrConfiguration = errors.New("embedding provider misconfigured")
)
