package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/wcagrag/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the WCAGRAG_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (WCAGRAG_API_LISTEN, WCAGRAG_INDEX_CORPUS_PATH, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: WCAGRAG_API_LISTEN, WCAGRAG_VECTOR_STORE_PATH, etc.
	v.SetEnvPrefix("WCAGRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Index
	v.SetDefault("index.corpus_path", d.Index.CorpusPath)
	v.SetDefault("index.collection", d.Index.Collection)
	v.SetDefault("index.chunk_size", d.Index.ChunkSize)
	v.SetDefault("index.chunk_overlap", d.Index.ChunkOverlap)
	v.SetDefault("index.batch_size", d.Index.BatchSize)
	v.SetDefault("index.concurrency", d.Index.Concurrency)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.path", d.VectorStore.Path)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.requests_per_second", d.Embedding.RequestsPerSecond)

	// Summarizer
	v.SetDefault("summarizer.provider", d.Summarizer.Provider)
	v.SetDefault("summarizer.target", d.Summarizer.Target)
	v.SetDefault("summarizer.model", d.Summarizer.Model)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}

// FromViper materializes the effective configuration after flags, env and
// config file have been layered by viper.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Index: IndexConfig{
			CorpusPath:   v.GetString("index.corpus_path"),
			Collection:   v.GetString("index.collection"),
			ChunkSize:    v.GetUint("index.chunk_size"),
			ChunkOverlap: v.GetUint("index.chunk_overlap"),
			BatchSize:    v.GetUint("index.batch_size"),
			Concurrency:  v.GetUint("index.concurrency"),
		},
		VectorStore: VectorStoreConfig{
			Provider: v.GetString("vector_store.provider"),
			Target:   v.GetString("vector_store.target"),
			Path:     v.GetString("vector_store.path"),
		},
		Embedding: EmbeddingConfig{
			Provider:          v.GetString("embedding.provider"),
			Target:            v.GetString("embedding.target"),
			Model:             v.GetString("embedding.model"),
			Dimensions:        v.GetUint("embedding.dimensions"),
			RequestsPerSecond: v.GetFloat64("embedding.requests_per_second"),
		},
		Summarizer: SummarizerConfig{
			Provider: v.GetString("summarizer.provider"),
			Target:   v.GetString("summarizer.target"),
			Model:    v.GetString("summarizer.model"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
	}
}
