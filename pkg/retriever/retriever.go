// Package retriever answers similarity queries over the guideline index.
//
// A Retriever owns an explicit state machine (Uninitialized, Ready, Failed).
// EnsureReady moves it to Ready: an existing collection is used as is,
// otherwise it builds the index from the configured corpus and checks again.
// Queries embed the text, ask the vector driver for the nearest chunks,
// rebuild guideline records from chunk metadata and keep only the closest
// chunk per guideline.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/papercomputeco/wcagrag/pkg/embeddings"
	"github.com/papercomputeco/wcagrag/pkg/guideline"
	"github.com/papercomputeco/wcagrag/pkg/index"
	"github.com/papercomputeco/wcagrag/pkg/vector"
)

const (
	// DefaultK is the number of results returned when k <= 0.
	DefaultK = 3

	// MaxK bounds k for requests arriving over the HTTP and MCP surfaces.
	MaxK = 50

	// DefaultCorpusPath is the corpus built on first use.
	DefaultCorpusPath = "data/wcag_2_2_new.json"
)

// Config is the configuration for a Retriever.
type Config struct {
	// Driver is the vector store queried for chunks. Required.
	Driver vector.Driver

	// Embedder embeds query text. It must be the embedder the index was
	// built with. Required.
	Embedder embeddings.Embedder

	// Builder builds the collection on first use. Required.
	Builder *index.Builder

	// CorpusPath is the corpus the automatic build reads.
	// Defaults to DefaultCorpusPath.
	CorpusPath string

	Logger *slog.Logger
}

// Result is one deduplicated hit.
type Result struct {
	// Guideline is rebuilt from chunk metadata. Its Description is the
	// matching chunk's text.
	Guideline guideline.Record `json:"guideline"`

	// Score is the cosine distance to the query. Lower is closer.
	Score float32 `json:"score"`

	// Text is the rendered text of the matching chunk.
	Text string `json:"text"`
}

// Status describes the index as seen by the retriever.
type Status struct {
	State      State  `json:"state"`
	Collection string `json:"collection"`
	Documents  int    `json:"documents"`
	Error      string `json:"error,omitempty"`
}

// Retriever queries the guideline index.
type Retriever struct {
	config *Config
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	lastErr error
	flight  *buildFlight
}

// buildFlight is the automatic build in progress. err is set before done is
// closed.
type buildFlight struct {
	done chan struct{}
	err  error
}

// New validates c and returns an Uninitialized retriever.
func New(c *Config) (*Retriever, error) {
	if c.Driver == nil {
		return nil, errors.New("retriever requires a vector driver")
	}
	if c.Embedder == nil {
		return nil, errors.New("retriever requires an embedder")
	}
	if c.Builder == nil {
		return nil, errors.New("retriever requires an index builder")
	}
	if c.CorpusPath == "" {
		c.CorpusPath = DefaultCorpusPath
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return &Retriever{config: c, logger: c.Logger}, nil
}

// Collection returns the queried collection name.
func (r *Retriever) Collection() string {
	return r.config.Builder.Collection()
}

// State returns the current lifecycle state.
func (r *Retriever) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Reset returns the retriever to Uninitialized so the next query checks the
// collection again.
func (r *Retriever) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = Uninitialized
	r.lastErr = nil
}

// EnsureReady makes the collection queryable. When it is missing, the index is
// built from CorpusPath, at most once per call. Callers arriving while a build
// is running wait for it and share its outcome, or leave when ctx is done.
// A Failed retriever tries again on the next call.
func (r *Retriever) EnsureReady(ctx context.Context) error {
	r.mu.Lock()
	if r.state == Ready {
		r.mu.Unlock()
		return nil
	}

	if f := r.flight; f != nil {
		r.mu.Unlock()
		select {
		case <-f.done:
			return f.err
		case <-ctx.Done():
			return fmt.Errorf("%w: waiting for index build: %w", ErrIndexUnavailable, ctx.Err())
		}
	}

	f := &buildFlight{done: make(chan struct{})}
	r.flight = f
	r.mu.Unlock()

	failed, err := r.ensureCollection(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.flight = nil
	switch {
	case err == nil:
		r.state = Ready
		r.lastErr = nil
	case failed:
		r.state = Failed
		r.lastErr = err
		r.logger.Error("guideline index unavailable", "error", err)
	}
	if err != nil {
		f.err = fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	close(f.done)
	return f.err
}

// ensureCollection checks for the collection and builds it when missing.
// failed reports whether the build itself went wrong, as opposed to the
// existence check.
func (r *Retriever) ensureCollection(ctx context.Context) (failed bool, err error) {
	collection := r.Collection()
	ok, err := r.config.Driver.HasCollection(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", collection, err)
	}
	if ok {
		return false, nil
	}

	r.logger.Info("guideline index missing, building from corpus",
		"collection", collection,
		"corpus", r.config.CorpusPath,
	)

	if _, err := r.config.Builder.InitializeFile(ctx, r.config.CorpusPath); err != nil {
		return true, fmt.Errorf("building index: %w", err)
	}

	ok, err = r.config.Driver.HasCollection(ctx, collection)
	if err != nil {
		return true, fmt.Errorf("checking collection %s after build: %w", collection, err)
	}
	if !ok {
		return true, fmt.Errorf("collection %s still missing after build", collection)
	}
	return false, nil
}

// Initialize rebuilds the index from entries and marks the retriever Ready.
// Queries keep using the live collection while the build runs.
func (r *Retriever) Initialize(ctx context.Context, entries []guideline.Entry) (*index.BuildResult, error) {
	res, err := r.config.Builder.Initialize(ctx, entries)
	if err != nil {
		return nil, err
	}
	r.markReady()
	return res, nil
}

// InitializeFile rebuilds the index from the corpus at path.
func (r *Retriever) InitializeFile(ctx context.Context, path string) (*index.BuildResult, error) {
	res, err := r.config.Builder.InitializeFile(ctx, path)
	if err != nil {
		return nil, err
	}
	r.markReady()
	return res, nil
}

func (r *Retriever) markReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = Ready
	r.lastErr = nil
}

// QuerySimilar returns up to k distinct guidelines closest to text, in
// ascending distance. k chunks are fetched, so a guideline with several
// close chunks can leave fewer than k results.
func (r *Retriever) QuerySimilar(ctx context.Context, text string, k int) ([]Result, error) {
	if k <= 0 {
		k = DefaultK
	}
	if err := r.EnsureReady(ctx); err != nil {
		return nil, err
	}

	emb, err := r.config.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	collection := r.Collection()
	hits, err := r.config.Driver.Query(ctx, collection, emb, k)
	if errors.Is(err, vector.ErrCollectionNotFound) {
		// Dropped behind our back; the next call checks again.
		r.Reset()
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", collection, err)
	}

	results := make([]Result, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		rec := guideline.FromMetadata(hit.Metadata, hit.Content)
		if rec.RefID == "" {
			return nil, fmt.Errorf("%w: document %s in %s has no ref_id", ErrCorruptDocument, hit.ID, collection)
		}
		if _, dup := seen[rec.RefID]; dup {
			continue
		}
		seen[rec.RefID] = struct{}{}

		results = append(results, Result{
			Guideline: rec,
			Score:     hit.Distance,
			Text:      hit.Content,
		})
	}

	r.logger.Debug("queried guidelines",
		"collection", collection,
		"k", k,
		"hits", len(hits),
		"results", len(results),
	)

	return results, nil
}

// Query is QuerySimilar without scores.
func (r *Retriever) Query(ctx context.Context, text string, k int) ([]guideline.Record, error) {
	results, err := r.QuerySimilar(ctx, text, k)
	if err != nil {
		return nil, err
	}
	records := make([]guideline.Record, len(results))
	for i, res := range results {
		records[i] = res.Guideline
	}
	return records, nil
}

// Status reports the state and, when Ready, the document count.
func (r *Retriever) Status(ctx context.Context) (Status, error) {
	r.mu.Lock()
	st := Status{State: r.state, Collection: r.Collection()}
	if r.lastErr != nil {
		st.Error = r.lastErr.Error()
	}
	r.mu.Unlock()

	ok, err := r.config.Driver.HasCollection(ctx, st.Collection)
	if err != nil {
		return st, fmt.Errorf("checking collection %s: %w", st.Collection, err)
	}
	if !ok {
		return st, nil
	}

	n, err := r.config.Driver.Count(ctx, st.Collection)
	if err != nil {
		return st, fmt.Errorf("counting collection %s: %w", st.Collection, err)
	}
	st.Documents = n
	return st, nil
}
