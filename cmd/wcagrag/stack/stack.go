// Package stack assembles the retrieval pipeline from configuration: the
// vector store, embedder, event publisher, index builder, retriever and,
// when asked for, the summarizer backed review service.
package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/papercomputeco/wcagrag/pkg/chunker"
	"github.com/papercomputeco/wcagrag/pkg/config"
	"github.com/papercomputeco/wcagrag/pkg/credentials"
	"github.com/papercomputeco/wcagrag/pkg/describe"
	"github.com/papercomputeco/wcagrag/pkg/dotdir"
	describeutils "github.com/papercomputeco/wcagrag/pkg/describe/utils"
	"github.com/papercomputeco/wcagrag/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/wcagrag/pkg/embeddings/utils"
	"github.com/papercomputeco/wcagrag/pkg/eventstream"
	"github.com/papercomputeco/wcagrag/pkg/eventstream/kafka"
	"github.com/papercomputeco/wcagrag/pkg/eventstream/nop"
	"github.com/papercomputeco/wcagrag/pkg/index"
	"github.com/papercomputeco/wcagrag/pkg/retriever"
	"github.com/papercomputeco/wcagrag/pkg/review"
	"github.com/papercomputeco/wcagrag/pkg/utils"
	"github.com/papercomputeco/wcagrag/pkg/vector"
	vectorutils "github.com/papercomputeco/wcagrag/pkg/vector/utils"
)

// qdrantAPIKeyEnv holds the optional Qdrant Cloud API key.
const qdrantAPIKeyEnv = "QDRANT_API_KEY"

// Options configures New.
type Options struct {
	Config *config.Config

	// ConfigDir overrides .wcagrag/ resolution for stored credentials.
	ConfigDir string

	// WithReviewer also builds a summarizer and the review service.
	WithReviewer bool

	Logger *slog.Logger
}

// Stack is a fully wired pipeline. Close releases every component.
type Stack struct {
	Config    *config.Config
	Driver    vector.Driver
	Embedder  embeddings.Embedder
	Publisher eventstream.Publisher
	Builder   *index.Builder
	Retriever *retriever.Retriever

	// Reviewer is nil unless Options.WithReviewer was set.
	Reviewer *review.Service

	logger *slog.Logger
}

// New builds a Stack. Components created before a failure are closed.
func New(ctx context.Context, o Options) (_ *Stack, err error) {
	if o.Config == nil {
		return nil, errors.New("config is required")
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg := o.Config

	s := &Stack{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	creds, err := credentials.NewManager(o.ConfigDir)
	if err != nil {
		logger.Warn("credentials unavailable, falling back to environment", "error", err)
		creds = nil
	}

	s.Driver, err = vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       cfg.VectorStore.Target,
		Path:         cfg.VectorStore.Path,
		APIKey:       os.Getenv(qdrantAPIKeyEnv),
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	s.Embedder, err = embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
		ProviderType:      cfg.Embedding.Provider,
		TargetURL:         cfg.Embedding.Target,
		Model:             cfg.Embedding.Model,
		APIKey:            credentials.Resolve(creds, cfg.Embedding.Provider, ""),
		Dimensions:        cfg.Embedding.Dimensions,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	s.Publisher, err = newPublisher(cfg.Events, logger)
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	splitter, err := chunker.New(int(cfg.Index.ChunkSize), int(cfg.Index.ChunkOverlap))
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	hostname, _ := os.Hostname()
	s.Builder, err = index.NewBuilder(&index.Config{
		Driver:         s.Driver,
		Embedder:       s.Embedder,
		Splitter:       splitter,
		Collection:     cfg.Index.Collection,
		BatchSize:      int(cfg.Index.BatchSize),
		Concurrency:    int(cfg.Index.Concurrency),
		Publisher:      s.Publisher,
		Source:         eventstream.EventSource{Hostname: hostname, Version: utils.Version},
		VectorStore:    cfg.VectorStore.Provider,
		EmbeddingModel: embeddingLabel(cfg.Embedding),
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	s.Retriever, err = retriever.New(&retriever.Config{
		Driver:     s.Driver,
		Embedder:   s.Embedder,
		Builder:    s.Builder,
		CorpusPath: cfg.Index.CorpusPath,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	if !o.WithReviewer {
		return s, nil
	}

	summarizer, err := describeutils.NewSummarizer(ctx, &describeutils.NewSummarizerOpts{
		ProviderType: cfg.Summarizer.Provider,
		TargetURL:    cfg.Summarizer.Target,
		Model:        cfg.Summarizer.Model,
		APIKey:       credentials.Resolve(creds, cfg.Summarizer.Provider, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("creating summarizer: %w", err)
	}

	s.Reviewer, err = review.NewService(&review.Config{
		Retriever: s.Retriever,
		Describer: describe.NewGenerator(summarizer, logger),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// RecordBuild saves res as the last build in configDir. Failures are logged.
func (s *Stack) RecordBuild(configDir string, res *index.BuildResult) {
	lb := &dotdir.LastBuild{
		Collection:  res.Collection,
		CorpusPath:  s.Config.Index.CorpusPath,
		VectorStore: s.Config.VectorStore.Provider,
		Guidelines:  res.Guidelines,
		Chunks:      res.Chunks,
		Dimensions:  res.Dimensions,
		Duration:    res.Duration,
		BuiltAt:     time.Now().UTC(),
	}
	if err := dotdir.NewManager().SaveLastBuild(lb, configDir); err != nil {
		s.logger.Warn("could not record build", "error", err)
	}
}

// Close releases the publisher, embedder and vector store.
func (s *Stack) Close() error {
	var errs []error
	if s.Publisher != nil {
		errs = append(errs, s.Publisher.Close())
	}
	if s.Embedder != nil {
		errs = append(errs, s.Embedder.Close())
	}
	if s.Driver != nil {
		errs = append(errs, s.Driver.Close())
	}
	return errors.Join(errs...)
}

func newPublisher(c config.EventsConfig, logger *slog.Logger) (eventstream.Publisher, error) {
	switch c.Provider {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: splitBrokers(c.Brokers),
			Topic:   c.Topic,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", c.Provider)
	}
}

func splitBrokers(s string) []string {
	var out []string
	for b := range strings.SplitSeq(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func embeddingLabel(c config.EmbeddingConfig) string {
	if c.Model == "" {
		return c.Provider
	}
	return c.Provider + "/" + c.Model
}
