package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/strata/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the STRATA_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (STRATA_EMBEDDING_TARGET, STRATA_RETRIEVAL_TOP_K, etc.)
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

	// 3. Environment variables: STRATA_STORAGE_SQLITE_PATH, STRATA_EVENTS_BROKERS, etc.
	v.SetEnvPrefix("STRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from a resolved viper instance, so
// commands hand one struct to the stack builder instead of threading
// dotted keys everywhere. The precedence chain (flag > env > file >
// default) has already been applied by viper at this point.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Provider:    v.GetString("storage.provider"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			DBPath:     v.GetString("vector_store.db_path"),
			Collection: v.GetString("vector_store.collection"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		Chunking: ChunkingConfig{
			Size:    v.GetUint("chunking.size"),
			Overlap: v.GetUint("chunking.overlap"),
		},
		Retrieval: RetrievalConfig{
			TopK:        v.GetUint("retrieval.top_k"),
			MinScore:    v.GetFloat64("retrieval.min_score"),
			FloorScore:  v.GetFloat64("retrieval.floor_score"),
			ScoreWindow: v.GetFloat64("retrieval.score_window"),
			MaxContexts: v.GetUint("retrieval.max_contexts"),
			MinMatches:  v.GetUint("retrieval.min_matches"),
		},
		Events: EventsConfig{
			Brokers: v.GetString("events.brokers"),
			Topic:   v.GetString("events.topic"),
		},
		Corpus: CorpusConfig{
			Extensions:   v.GetString("corpus.extensions"),
			MaxFileBytes: v.GetUint("corpus.max_file_bytes"),
			DebounceMS:   v.GetUint("corpus.debounce_ms"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.db_path", d.VectorStore.DBPath)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// Chunking
	v.SetDefault("chunking.size", d.Chunking.Size)
	v.SetDefault("chunking.overlap", d.Chunking.Overlap)

	// Retrieval
	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)
	v.SetDefault("retrieval.min_score", d.Retrieval.MinScore)
	v.SetDefault("retrieval.floor_score", d.Retrieval.FloorScore)
	v.SetDefault("retrieval.score_window", d.Retrieval.ScoreWindow)
	v.SetDefault("retrieval.max_contexts", d.Retrieval.MaxContexts)
	v.SetDefault("retrieval.min_matches", d.Retrieval.MinMatches)

	// Events
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Corpus
	v.SetDefault("corpus.extensions", d.Corpus.Extensions)
	v.SetDefault("corpus.max_file_bytes", d.Corpus.MaxFileBytes)
	v.SetDefault("corpus.debounce_ms", d.Corpus.DebounceMS)
}
