// Package vector provides interfaces and implementations for named vector
// collections holding embedded guideline chunks.
package vector

import "context"

// Document is a stored chunk with its embedding and flat metadata.
type Document struct {
	// ID is unique within a collection (e.g. "guideline_3_chunk_0").
	ID string

	// Content is the chunk text that was embedded.
	Content string

	// Embedding is the vector representation of Content.
	Embedding []float32

	// Metadata holds scalar string fields only.
	Metadata map[string]string
}

// QueryResult is a nearest-neighbour hit.
type QueryResult struct {
	Document

	// Distance is the cosine distance to the query (1 - cosine similarity).
	// Lower is closer; results are returned in ascending order.
	Distance float32
}

// Driver stores documents in named collections and answers k-NN queries
// with cosine distance.
type Driver interface {
	// CreateCollection creates an empty collection for vectors of the given
	// size. It fails with ErrCollectionExists if the name is taken.
	CreateCollection(ctx context.Context, name string, dimensions uint) error

	// DropCollection removes a collection and its documents. Dropping a
	// missing collection is not an error.
	DropCollection(ctx context.Context, name string) error

	// HasCollection reports whether a collection is visible under name.
	HasCollection(ctx context.Context, name string) (bool, error)

	// Promote makes the staging collection visible under name, replacing
	// any existing collection of that name. Staging is consumed.
	Promote(ctx context.Context, staging, name string) error

	// Add stores documents. Existing IDs are overwritten.
	Add(ctx context.Context, collection string, docs []Document) error

	// Query finds the topK documents closest to embedding.
	Query(ctx context.Context, collection string, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by ID. Unknown IDs are skipped.
	Get(ctx context.Context, collection string, ids []string) ([]Document, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
