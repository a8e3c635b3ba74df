package config

const (
	defaultCorpusPath   = "data/wcag_2_2_new.json"
	defaultCollection   = "wcag_2_2_guidelines_new"
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultBatchSize    = 64
	defaultConcurrency  = 1

	defaultVectorProvider = "sqlite"
	defaultVectorPath     = "wcag_db/wcag.sqlite"

	defaultEmbeddingProvider   = "openai"
	defaultEmbeddingModel      = "text-embedding-3-small"
	defaultEmbeddingDimensions = 1536

	defaultSummarizerProvider = "openai"
	defaultSummarizerModel    = "gpt-4o-mini"

	defaultAPIListen = ":8081"

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "wcagrag.index"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Index: IndexConfig{
			CorpusPath:   defaultCorpusPath,
			Collection:   defaultCollection,
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
			BatchSize:    defaultBatchSize,
			Concurrency:  defaultConcurrency,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
			Path:     defaultVectorPath,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Summarizer: SummarizerConfig{
			Provider: defaultSummarizerProvider,
			Model:    defaultSummarizerModel,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
