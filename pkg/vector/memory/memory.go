// Package memory provides an in-process vector driver using brute-force
// cosine distance. Nothing is persisted; it backs tests and one-shot runs.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/papercomputeco/wcagrag/pkg/vector"
)

type collection struct {
	dimensions uint
	order      []string
	docs       map[string]vector.Document
}

// Driver implements vector.Driver in memory.
type Driver struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewDriver returns an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{collections: make(map[string]*collection)}
}

func (d *Driver) CreateCollection(_ context.Context, name string, dimensions uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.collections[name]; ok {
		return fmt.Errorf("%w: %s", vector.ErrCollectionExists, name)
	}
	d.collections[name] = &collection{
		dimensions: dimensions,
		docs:       make(map[string]vector.Document),
	}
	return nil
}

func (d *Driver) DropCollection(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.collections, name)
	return nil
}

func (d *Driver) HasCollection(_ context.Context, name string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.collections[name]
	return ok, nil
}

func (d *Driver) Promote(_ context.Context, staging, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[staging]
	if !ok {
		return fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, staging)
	}
	d.collections[name] = c
	delete(d.collections, staging)
	return nil
}

func (d *Driver) Add(_ context.Context, name string, docs []vector.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}

	for _, doc := range docs {
		if uint(len(doc.Embedding)) != c.dimensions {
			return fmt.Errorf("%w: document %s has %d dimensions, collection %s expects %d",
				vector.ErrDimensionMismatch, doc.ID, len(doc.Embedding), name, c.dimensions)
		}
	}

	for _, doc := range docs {
		if _, exists := c.docs[doc.ID]; !exists {
			c.order = append(c.order, doc.ID)
		}
		c.docs[doc.ID] = copyDocument(doc)
	}
	return nil
}

func (d *Driver) Query(_ context.Context, name string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	if uint(len(embedding)) != c.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s expects %d",
			vector.ErrDimensionMismatch, len(embedding), name, c.dimensions)
	}

	results := make([]vector.QueryResult, 0, len(c.order))
	for _, id := range c.order {
		doc := c.docs[id]
		results = append(results, vector.QueryResult{
			Document: copyDocument(doc),
			Distance: vector.CosineDistance(embedding, doc.Embedding),
		})
	}

	// Stable so that ties keep insertion order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (d *Driver) Get(_ context.Context, name string, ids []string) ([]vector.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}

	docs := make([]vector.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := c.docs[id]; ok {
			docs = append(docs, copyDocument(doc))
		}
	}
	return docs, nil
}

func (d *Driver) Count(_ context.Context, name string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", vector.ErrCollectionNotFound, name)
	}
	return len(c.docs), nil
}

func (d *Driver) Close() error {
	return nil
}

func copyDocument(doc vector.Document) vector.Document {
	return vector.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: slices.Clone(doc.Embedding),
		Metadata:  maps.Clone(doc.Metadata),
	}
}

var _ vector.Driver = (*Driver)(nil)
