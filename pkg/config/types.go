package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent strata configuration stored as config.toml
// in the .strata/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Events      EventsConfig      `toml:"events"`
	Corpus      CorpusConfig      `toml:"corpus"`
}

// StorageConfig holds version store settings.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// VectorStoreConfig holds vector index settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	DBPath     string `toml:"db_path,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// ChunkingConfig holds document chunking parameters.
type ChunkingConfig struct {
	Size    uint `toml:"size,omitempty"`
	Overlap uint `toml:"overlap,omitempty"`
}

// RetrievalConfig holds confidence gate settings for query-time retrieval.
type RetrievalConfig struct {
	TopK        uint    `toml:"top_k,omitempty"`
	MinScore    float64 `toml:"min_score,omitempty"`
	FloorScore  float64 `toml:"floor_score,omitempty"`
	ScoreWindow float64 `toml:"score_window,omitempty"`
	MaxContexts uint    `toml:"max_contexts,omitempty"`
	MinMatches  uint    `toml:"min_matches,omitempty"`
}

// EventsConfig holds index event publishing settings. Brokers is a
// comma-separated Kafka broker list; empty disables publishing.
type EventsConfig struct {
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// CorpusConfig holds corpus scanning and watching settings.
type CorpusConfig struct {
	Extensions   string `toml:"extensions,omitempty"`
	MaxFileBytes uint   `toml:"max_file_bytes,omitempty"`
	DebounceMS   uint   `toml:"debounce_ms,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(get func(c *Config) *uint, name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *get(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*get(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*get(c) = uint(n)
			return nil
		},
	}
}

func floatKey(get func(c *Config) *float64, name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *get(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*get(c), 'g', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*get(c) = f
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error { c.Storage.Provider = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.db_path": {
		get: func(c *Config) string { return c.VectorStore.DBPath },
		set: func(c *Config, v string) error { c.VectorStore.DBPath = v; return nil },
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": uintKey(func(c *Config) *uint { return &c.Embedding.Dimensions }, "embedding.dimensions"),

	"chunking.size":    uintKey(func(c *Config) *uint { return &c.Chunking.Size }, "chunking.size"),
	"chunking.overlap": uintKey(func(c *Config) *uint { return &c.Chunking.Overlap }, "chunking.overlap"),

	"retrieval.top_k":        uintKey(func(c *Config) *uint { return &c.Retrieval.TopK }, "retrieval.top_k"),
	"retrieval.min_score":    floatKey(func(c *Config) *float64 { return &c.Retrieval.MinScore }, "retrieval.min_score"),
	"retrieval.floor_score":  floatKey(func(c *Config) *float64 { return &c.Retrieval.FloorScore }, "retrieval.floor_score"),
	"retrieval.score_window": floatKey(func(c *Config) *float64 { return &c.Retrieval.ScoreWindow }, "retrieval.score_window"),
	"retrieval.max_contexts": uintKey(func(c *Config) *uint { return &c.Retrieval.MaxContexts }, "retrieval.max_contexts"),
	"retrieval.min_matches":  uintKey(func(c *Config) *uint { return &c.Retrieval.MinMatches }, "retrieval.min_matches"),

	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},

	"corpus.extensions": {
		get: func(c *Config) string { return c.Corpus.Extensions },
		set: func(c *Config, v string) error { c.Corpus.Extensions = v; return nil },
	},
	"corpus.max_file_bytes": uintKey(func(c *Config) *uint { return &c.Corpus.MaxFileBytes }, "corpus.max_file_bytes"),
	"corpus.debounce_ms":    uintKey(func(c *Config) *uint { return &c.Corpus.DebounceMS }, "corpus.debounce_ms"),
}
