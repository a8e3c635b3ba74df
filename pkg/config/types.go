package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent wcagrag configuration stored as config.toml
// in the .wcagrag/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Index       IndexConfig       `toml:"index"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Summarizer  SummarizerConfig  `toml:"summarizer"`
	API         APIConfig         `toml:"api"`
	Events      EventsConfig      `toml:"events"`
}

// IndexConfig holds corpus and chunking settings for index builds.
type IndexConfig struct {
	CorpusPath   string `toml:"corpus_path,omitempty"`
	Collection   string `toml:"collection,omitempty"`
	ChunkSize    uint   `toml:"chunk_size,omitempty"`
	ChunkOverlap uint   `toml:"chunk_overlap,omitempty"`
	BatchSize    uint   `toml:"batch_size,omitempty"`
	Concurrency  uint   `toml:"concurrency,omitempty"`
}

// VectorStoreConfig holds vector store settings. Target is a server address
// for chroma, qdrant and pgvector; Path is the sqlite database file.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Path     string `toml:"path,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider          string  `toml:"provider,omitempty"`
	Target            string  `toml:"target,omitempty"`
	Model             string  `toml:"model,omitempty"`
	Dimensions        uint    `toml:"dimensions,omitempty"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`
}

// SummarizerConfig holds the LLM used to describe diffs.
type SummarizerConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig selects where index-built events are published.
// Brokers is a comma-separated list.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"index.corpus_path":   stringKey(func(c *Config) *string { return &c.Index.CorpusPath }),
	"index.collection":    stringKey(func(c *Config) *string { return &c.Index.Collection }),
	"index.chunk_size":    uintKey("index.chunk_size", func(c *Config) *uint { return &c.Index.ChunkSize }),
	"index.chunk_overlap": uintKey("index.chunk_overlap", func(c *Config) *uint { return &c.Index.ChunkOverlap }),
	"index.batch_size":    uintKey("index.batch_size", func(c *Config) *uint { return &c.Index.BatchSize }),
	"index.concurrency":   uintKey("index.concurrency", func(c *Config) *uint { return &c.Index.Concurrency }),

	"vector_store.provider": stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":   stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.path":     stringKey(func(c *Config) *string { return &c.VectorStore.Path }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.requests_per_second": {
		get: func(c *Config) string {
			if c.Embedding.RequestsPerSecond == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Embedding.RequestsPerSecond, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.requests_per_second: %w", err)
			}
			if f < 0 {
				return fmt.Errorf("invalid value for embedding.requests_per_second: %v is negative", f)
			}
			c.Embedding.RequestsPerSecond = f
			return nil
		},
	},

	"summarizer.provider": stringKey(func(c *Config) *string { return &c.Summarizer.Provider }),
	"summarizer.target":   stringKey(func(c *Config) *string { return &c.Summarizer.Target }),
	"summarizer.model":    stringKey(func(c *Config) *string { return &c.Summarizer.Model }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),
}
