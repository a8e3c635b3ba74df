// Package index builds the guideline vector index: it converts corpus entries
// into records, renders and chunks them, embeds every chunk, and writes the
// result into a staging collection that is promoted over the live one only
// after every document has been stored.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/wcagrag/pkg/chunker"
	"github.com/papercomputeco/wcagrag/pkg/embeddings"
	"github.com/papercomputeco/wcagrag/pkg/eventstream"
	"github.com/papercomputeco/wcagrag/pkg/guideline"
	"github.com/papercomputeco/wcagrag/pkg/vector"
)

const (
	// DefaultCollection is the collection guidelines are served from.
	DefaultCollection = "wcag_2_2_guidelines_new"

	defaultBatchSize   = 64
	defaultConcurrency = 1
)

// Config is the configuration for a Builder.
type Config struct {
	// Driver stores the collections. Required.
	Driver vector.Driver

	// Embedder embeds chunk text. Required.
	Embedder embeddings.Embedder

	// Splitter chunks rendered guideline text. Defaults to chunker.NewDefault().
	Splitter *chunker.Splitter

	// Collection is the name the built index is promoted to.
	// Defaults to DefaultCollection.
	Collection string

	// BatchSize is the number of chunks per EmbedBatch call (defaults to 64).
	BatchSize int

	// Concurrency bounds in-flight EmbedBatch calls (defaults to 1).
	Concurrency int

	// Publisher receives an event after each successful build. Optional.
	Publisher eventstream.Publisher

	// Source identifies this process in published events.
	Source eventstream.EventSource

	// VectorStore and EmbeddingModel are descriptive labels for events.
	VectorStore    string
	EmbeddingModel string

	Logger *slog.Logger
}

// Builder builds and replaces the guideline collection.
type Builder struct {
	config *Config
	logger *slog.Logger
}

// BuildResult summarizes a completed build.
type BuildResult struct {
	Collection string
	Guidelines int
	Chunks     int
	Dimensions int
	Duration   time.Duration
}

// chunk is one document waiting to be embedded.
type chunk struct {
	id   string
	text string
	meta map[string]string
}

// NewBuilder validates c and fills in defaults.
func NewBuilder(c *Config) (*Builder, error) {
	if c.Driver == nil {
		return nil, errors.New("index builder requires a vector driver")
	}
	if c.Embedder == nil {
		return nil, errors.New("index builder requires an embedder")
	}
	if c.Splitter == nil {
		c.Splitter = chunker.NewDefault()
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	return &Builder{config: c, logger: c.Logger}, nil
}

// Collection returns the name the builder promotes to.
func (b *Builder) Collection() string {
	return b.config.Collection
}

// ChunkID is the document ID of chunk j of guideline i.
func ChunkID(i, j int) string {
	return fmt.Sprintf("guideline_%d_chunk_%d", i, j)
}

// InitializeFile loads the corpus at path and builds it.
func (b *Builder) InitializeFile(ctx context.Context, path string) (*BuildResult, error) {
	corpus, err := guideline.LoadCorpus(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorpus, err)
	}
	return b.build(ctx, corpus.Guidelines, path)
}

// Initialize builds entries into a fresh staging collection and promotes it
// over the configured collection. Any failure leaves the existing collection
// untouched and removes the staging collection.
func (b *Builder) Initialize(ctx context.Context, entries []guideline.Entry) (*BuildResult, error) {
	return b.build(ctx, entries, "")
}

func (b *Builder) build(ctx context.Context, entries []guideline.Entry, corpusPath string) (*BuildResult, error) {
	start := time.Now()

	chunks, err := b.prepare(entries)
	if err != nil {
		return nil, err
	}

	b.logger.Info("building guideline index",
		"collection", b.config.Collection,
		"guidelines", len(entries),
		"chunks", len(chunks),
	)

	vectors, err := b.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: embedder returned an empty vector", embeddings.ErrEmbedding)
	}

	staging := fmt.Sprintf("%s__staging_%s", b.config.Collection, uuid.NewString())
	if err := b.config.Driver.CreateCollection(ctx, staging, uint(dims)); err != nil {
		return nil, fmt.Errorf("creating staging collection: %w", err)
	}

	if err := b.fill(ctx, staging, chunks, vectors); err != nil {
		b.discard(staging)
		return nil, err
	}

	if err := b.config.Driver.Promote(ctx, staging, b.config.Collection); err != nil {
		b.discard(staging)
		return nil, fmt.Errorf("promoting staging collection: %w", err)
	}

	res := &BuildResult{
		Collection: b.config.Collection,
		Guidelines: len(entries),
		Chunks:     len(chunks),
		Dimensions: dims,
		Duration:   time.Since(start),
	}

	b.logger.Info("guideline index built",
		"collection", res.Collection,
		"guidelines", res.Guidelines,
		"chunks", res.Chunks,
		"dimensions", res.Dimensions,
		"duration", res.Duration,
	)

	b.publish(ctx, res, corpusPath)
	return res, nil
}

// prepare converts, renders and chunks every entry before anything is
// embedded or written.
func (b *Builder) prepare(entries []guideline.Entry) ([]chunk, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: corpus has no guidelines", ErrCorpus)
	}

	corpus := &guideline.Corpus{Guidelines: entries}
	records, err := corpus.Records()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorpus, err)
	}

	var chunks []chunk
	for i, r := range records {
		meta := r.Metadata()
		for j, text := range b.config.Splitter.Split(guideline.Render(r)) {
			chunks = append(chunks, chunk{id: ChunkID(i, j), text: text, meta: meta})
		}
	}
	return chunks, nil
}

// embed runs EmbedBatch over chunk texts in BatchSize groups, keeping the
// output aligned with chunks.
func (b *Builder) embed(ctx context.Context, chunks []chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	size := b.config.BatchSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Concurrency)

	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = chunks[start+i].text
			}

			out, err := b.config.Embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
			}
			if len(out) != len(texts) {
				return fmt.Errorf("%w: got %d embeddings for %d chunks", embeddings.ErrEmbedding, len(out), len(texts))
			}
			copy(vectors[start:end], out)

			b.logger.Debug("embedded chunk batch", "from", start, "to", end-1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (b *Builder) fill(ctx context.Context, staging string, chunks []chunk, vectors [][]float32) error {
	size := b.config.BatchSize
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))

		docs := make([]vector.Document, 0, end-start)
		for i := start; i < end; i++ {
			docs = append(docs, vector.Document{
				ID:        chunks[i].id,
				Content:   chunks[i].text,
				Embedding: vectors[i],
				Metadata:  chunks[i].meta,
			})
		}

		if err := b.config.Driver.Add(ctx, staging, docs); err != nil {
			return fmt.Errorf("writing documents to staging collection: %w", err)
		}
	}
	return nil
}

// discard drops a staging collection with a fresh context so a canceled
// build still cleans up.
func (b *Builder) discard(staging string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := b.config.Driver.DropCollection(ctx, staging); err != nil {
		b.logger.Error("dropping staging collection failed",
			"staging", staging,
			"error", err,
		)
	}
}

// publish emits the index-built event. Publishing failures are logged; the
// index is already live.
func (b *Builder) publish(ctx context.Context, res *BuildResult, corpusPath string) {
	if b.config.Publisher == nil {
		return
	}

	event := eventstream.NewIndexBuiltEvent(b.config.Source, eventstream.IndexMeta{
		Collection:     res.Collection,
		Guidelines:     res.Guidelines,
		Chunks:         res.Chunks,
		Dimensions:     res.Dimensions,
		CorpusPath:     corpusPath,
		VectorStore:    b.config.VectorStore,
		EmbeddingModel: b.config.EmbeddingModel,
		DurationMs:     res.Duration.Milliseconds(),
	})
	if err := b.config.Publisher.PublishIndexBuilt(ctx, event); err != nil {
		b.logger.Warn("publishing index event failed",
			"event_id", event.EventID,
			"error", err,
		)
	}
}
