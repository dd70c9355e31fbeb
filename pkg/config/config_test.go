package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/strata/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Version).To(Equal(defaults.Version))
			Expect(cfg.Storage.Provider).To(Equal(defaults.Storage.Provider))
			Expect(cfg.VectorStore.Provider).To(Equal(defaults.VectorStore.Provider))
			Expect(cfg.VectorStore.Collection).To(Equal(defaults.VectorStore.Collection))
			Expect(cfg.Embedding.Provider).To(Equal(defaults.Embedding.Provider))
			Expect(cfg.Embedding.Target).To(Equal(defaults.Embedding.Target))
			Expect(cfg.Embedding.Model).To(Equal(defaults.Embedding.Model))
			Expect(cfg.Embedding.Dimensions).To(Equal(defaults.Embedding.Dimensions))
			Expect(cfg.Chunking.Size).To(Equal(defaults.Chunking.Size))
			Expect(cfg.Chunking.Overlap).To(Equal(defaults.Chunking.Overlap))
			Expect(cfg.Retrieval.TopK).To(Equal(defaults.Retrieval.TopK))
			Expect(cfg.Retrieval.MinScore).To(Equal(defaults.Retrieval.MinScore))
			Expect(cfg.Events.Topic).To(Equal(defaults.Events.Topic))
			Expect(cfg.Corpus.Extensions).To(Equal(defaults.Corpus.Extensions))
		})

		It("loads a valid config file", func() {
			data := `version = 0

[embedding]
provider = "openai"
model = "text-embedding-3-small"
dimensions = 1536
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())
			Expect(cfg.Version).To(Equal(0))
			Expect(cfg.Embedding.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Model).To(Equal("text-embedding-3-small"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
		})

		It("loads all config fields", func() {
			data := `version = 0

[storage]
provider = "postgres"
postgres_dsn = "postgres://localhost/strata"

[vector_store]
provider = "qdrant"
target = "localhost"
collection = "docs"

[embedding]
provider = "ollama"
target = "http://localhost:11434"
model = "nomic-embed-text"
dimensions = 1024

[chunking]
size = 900
overlap = 120

[retrieval]
top_k = 12
min_score = 0.5
floor_score = 0.42
score_window = 0.1
max_contexts = 6
min_matches = 2

[events]
brokers = "localhost:9092"
topic = "docs.index.events"

[corpus]
extensions = ".md,.rst"
max_file_bytes = 1048576
debounce_ms = 250
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Version).To(Equal(0))
			Expect(cfg.Storage.Provider).To(Equal("postgres"))
			Expect(cfg.Storage.PostgresDSN).To(Equal("postgres://localhost/strata"))
			Expect(cfg.VectorStore.Provider).To(Equal("qdrant"))
			Expect(cfg.VectorStore.Target).To(Equal("localhost"))
			Expect(cfg.VectorStore.Collection).To(Equal("docs"))
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
			Expect(cfg.Embedding.Target).To(Equal("http://localhost:11434"))
			Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1024)))
			Expect(cfg.Chunking.Size).To(Equal(uint(900)))
			Expect(cfg.Chunking.Overlap).To(Equal(uint(120)))
			Expect(cfg.Retrieval.TopK).To(Equal(uint(12)))
			Expect(cfg.Retrieval.MinScore).To(Equal(0.5))
			Expect(cfg.Retrieval.FloorScore).To(Equal(0.42))
			Expect(cfg.Retrieval.ScoreWindow).To(Equal(0.1))
			Expect(cfg.Retrieval.MaxContexts).To(Equal(uint(6)))
			Expect(cfg.Retrieval.MinMatches).To(Equal(uint(2)))
			Expect(cfg.Events.Brokers).To(Equal("localhost:9092"))
			Expect(cfg.Events.Topic).To(Equal("docs.index.events"))
			Expect(cfg.Corpus.Extensions).To(Equal(".md,.rst"))
			Expect(cfg.Corpus.MaxFileBytes).To(Equal(uint(1048576)))
			Expect(cfg.Corpus.DebounceMS).To(Equal(uint(250)))
		})

		It("returns error for malformed TOML", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not valid toml [[["), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(cfg).To(BeNil())
		})

		It("returns error for unsupported config version", func() {
			data := `version = 99
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported config version"))
			Expect(cfg).To(BeNil())
		})

		It("accepts config with version 0 (omitted)", func() {
			data := `[embedding]
provider = "openai"
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Embedding.Provider).To(Equal("openai"))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk", func() {
			cfg := &config.Config{
				Version: config.CurrentV,
				VectorStore: config.VectorStoreConfig{
					Provider:   "qdrant",
					Target:     "localhost",
					Collection: "docs",
				},
				Embedding: config.EmbeddingConfig{
					Dimensions: 768,
				},
			}

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SaveConfig(cfg)
			Expect(err).NotTo(HaveOccurred())

			// Verify the file exists
			_, err = os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())

			// Load it back and verify
			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.VectorStore.Provider).To(Equal("qdrant"))
			Expect(loaded.VectorStore.Target).To(Equal("localhost"))
			Expect(loaded.Embedding.Dimensions).To(Equal(uint(768)))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SaveConfig(nil)
			Expect(err).To(HaveOccurred())
		})

		It("overwrites existing config", func() {
			first := &config.Config{
				Version:   config.CurrentV,
				Embedding: config.EmbeddingConfig{Provider: "ollama"},
			}
			second := &config.Config{
				Version:   config.CurrentV,
				Embedding: config.EmbeddingConfig{Provider: "openai"},
			}

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SaveConfig(first)
			Expect(err).NotTo(HaveOccurred())

			err = c.SaveConfig(second)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Embedding.Provider).To(Equal("openai"))
		})
	})

	Describe("SetConfigValue", func() {
		It("sets a string config key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("embedding.provider", "openai")
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Embedding.Provider).To(Equal("openai"))
		})

		It("sets a uint config key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("embedding.dimensions", "1024")
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1024)))
		})

		It("sets a float config key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("retrieval.min_score", "0.42")
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Retrieval.MinScore).To(Equal(0.42))
		})

		It("round-trips the floor score key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("retrieval.floor_score", "0.3")
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("retrieval.floor_score")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("0.3"))

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Retrieval.FloorScore).To(Equal(0.3))
		})

		It("returns error for unknown key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("nonexistent_key", "value")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown config key"))
		})

		It("returns error for invalid uint value", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("embedding.dimensions", "not-a-number")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid value"))
		})

		It("returns error for invalid float value", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("retrieval.min_score", "not-a-float")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid value"))
		})

		It("preserves existing values when setting a new key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("embedding.provider", "openai")
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("embedding.model", "text-embedding-3-small")
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Embedding.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Model).To(Equal("text-embedding-3-small"))
		})
	})

	Describe("GetConfigValue", func() {
		It("gets a set config value", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("vector_store.provider", "chroma")
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("vector_store.provider")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("chroma"))
		})

		It("returns default value when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("embedding.provider")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal(config.NewDefaultConfig().Embedding.Provider))
		})

		It("returns empty string for key with no default", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("storage.sqlite_path")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(BeEmpty())
		})

		It("returns error for unknown key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.GetConfigValue("nonexistent_key")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown config key"))
		})

		It("gets a uint config value as string", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("retrieval.top_k", "12")
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("retrieval.top_k")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("12"))
		})

		It("gets a float config value as string", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SetConfigValue("retrieval.min_score", "0.5")
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("retrieval.min_score")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("0.5"))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("returns all expected keys", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(ContainElements(
				"storage.provider",
				"storage.sqlite_path",
				"storage.postgres_dsn",
				"vector_store.provider",
				"vector_store.target",
				"vector_store.db_path",
				"vector_store.collection",
				"embedding.provider",
				"embedding.target",
				"embedding.model",
				"embedding.dimensions",
				"chunking.size",
				"chunking.overlap",
				"retrieval.top_k",
				"retrieval.min_score",
				"retrieval.floor_score",
				"retrieval.score_window",
				"retrieval.max_contexts",
				"retrieval.min_matches",
				"events.brokers",
				"events.topic",
				"corpus.extensions",
				"corpus.max_file_bytes",
				"corpus.debounce_ms",
			))
		})

		It("returns keys in stable order", func() {
			keys1 := config.ValidConfigKeys()
			keys2 := config.ValidConfigKeys()
			Expect(keys1).To(Equal(keys2))
		})
	})

	Describe("IsValidConfigKey", func() {
		It("returns true for valid keys", func() {
			Expect(config.IsValidConfigKey("embedding.provider")).To(BeTrue())
			Expect(config.IsValidConfigKey("retrieval.min_score")).To(BeTrue())
			Expect(config.IsValidConfigKey("chunking.size")).To(BeTrue())
			Expect(config.IsValidConfigKey("events.brokers")).To(BeTrue())
		})

		It("returns false for invalid keys", func() {
			Expect(config.IsValidConfigKey("nonexistent")).To(BeFalse())
			Expect(config.IsValidConfigKey("")).To(BeFalse())
		})

		It("returns false for flat key names", func() {
			Expect(config.IsValidConfigKey("provider")).To(BeFalse())
			Expect(config.IsValidConfigKey("top_k")).To(BeFalse())
			Expect(config.IsValidConfigKey("embedding_dimensions")).To(BeFalse())
		})
	})

	Describe("round-trip", func() {
		It("saves and loads config correctly with all fields", func() {
			cfg := &config.Config{
				Version: config.CurrentV,
				Storage: config.StorageConfig{
					Provider:    "sqlite",
					SQLitePath:  "/tmp/strata.sqlite",
					PostgresDSN: "postgres://localhost/strata",
				},
				VectorStore: config.VectorStoreConfig{
					Provider:   "chroma",
					Target:     "http://localhost:8000",
					DBPath:     "/tmp/vectors.sqlite",
					Collection: "docs",
				},
				Embedding: config.EmbeddingConfig{
					Provider:   "ollama",
					Target:     "http://localhost:11434",
					Model:      "nomic-embed-text",
					Dimensions: 1024,
				},
				Chunking: config.ChunkingConfig{
					Size:    900,
					Overlap: 120,
				},
				Retrieval: config.RetrievalConfig{
					TopK:        12,
					MinScore:    0.5,
					ScoreWindow: 0.1,
					MaxContexts: 6,
					MinMatches:  2,
				},
				Events: config.EventsConfig{
					Brokers: "localhost:9092",
					Topic:   "docs.index.events",
				},
				Corpus: config.CorpusConfig{
					Extensions:   ".md,.rst",
					MaxFileBytes: 1048576,
					DebounceMS:   250,
				},
			}

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = c.SaveConfig(cfg)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})
	})
})

var _ = Describe("PresetConfig", func() {
	It("returns ollama preset with local defaults", func() {
		cfg, err := config.PresetConfig("ollama")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Storage.Provider).To(Equal("sqlite"))
		Expect(cfg.VectorStore.Provider).To(Equal("sqlitevec"))
		Expect(cfg.VectorStore.Collection).To(Equal("strata"))
		Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		Expect(cfg.Embedding.Target).To(Equal("http://localhost:11434"))
		Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
	})

	It("returns openai preset with hosted embedding defaults", func() {
		cfg, err := config.PresetConfig("openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Storage.Provider).To(Equal("sqlite"))
		Expect(cfg.VectorStore.Provider).To(Equal("sqlitevec"))
		Expect(cfg.Embedding.Provider).To(Equal("openai"))
		Expect(cfg.Embedding.Model).To(Equal("text-embedding-3-small"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
	})

	It("is case-insensitive", func() {
		cfg, err := config.PresetConfig("OpenAI")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Embedding.Provider).To(Equal("openai"))

		cfg, err = config.PresetConfig("OLLAMA")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Embedding.Provider).To(Equal("ollama"))
	})

	It("returns error for unknown preset", func() {
		cfg, err := config.PresetConfig("nonexistent")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unknown preset"))
		Expect(cfg).To(BeNil())
	})
})

var _ = Describe("ValidPresetNames", func() {
	It("returns the expected preset names", func() {
		names := config.ValidPresetNames()
		Expect(names).To(ConsistOf("ollama", "openai"))
	})
})

var _ = Describe("ParseConfigTOML", func() {
	It("parses valid TOML into a Config", func() {
		data := []byte(`version = 0

[retrieval]
top_k = 10
min_score = 0.4

[chunking]
size = 600
`)
		cfg, err := config.ParseConfigTOML(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Version).To(Equal(0))
		Expect(cfg.Retrieval.TopK).To(Equal(uint(10)))
		Expect(cfg.Retrieval.MinScore).To(Equal(0.4))
		Expect(cfg.Chunking.Size).To(Equal(uint(600)))
	})

	It("returns error for invalid TOML", func() {
		cfg, err := config.ParseConfigTOML([]byte("not valid [[["))
		Expect(err).To(HaveOccurred())
		Expect(cfg).To(BeNil())
	})

	It("returns empty config for empty input", func() {
		cfg, err := config.ParseConfigTOML([]byte(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).NotTo(BeNil())
		Expect(cfg.Embedding.Provider).To(BeEmpty())
	})

	It("rejects unsupported config version", func() {
		data := []byte(`version = 2
`)
		cfg, err := config.ParseConfigTOML(data)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unsupported config version"))
		Expect(cfg).To(BeNil())
	})
})

var _ = Describe("NewDefaultConfig", func() {
	It("returns fully-populated defaults", func() {
		cfg := config.NewDefaultConfig()
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Storage.Provider).To(Equal("sqlite"))
		Expect(cfg.VectorStore.Provider).To(Equal("sqlitevec"))
		Expect(cfg.VectorStore.Collection).To(Equal("strata"))
		Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		Expect(cfg.Embedding.Target).To(Equal("http://localhost:11434"))
		Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		Expect(cfg.Chunking.Size).To(Equal(uint(1800)))
		Expect(cfg.Chunking.Overlap).To(Equal(uint(250)))
		Expect(cfg.Retrieval.TopK).To(Equal(uint(8)))
		Expect(cfg.Retrieval.MinScore).To(Equal(0.35))
		Expect(cfg.Retrieval.ScoreWindow).To(Equal(0.08))
		Expect(cfg.Retrieval.MaxContexts).To(Equal(uint(4)))
		Expect(cfg.Retrieval.MinMatches).To(Equal(uint(1)))
		Expect(cfg.Events.Brokers).To(BeEmpty())
		Expect(cfg.Events.Topic).To(Equal("strata.index.events"))
		Expect(cfg.Corpus.Extensions).To(Equal(".md,.txt"))
		Expect(cfg.Corpus.MaxFileBytes).To(Equal(uint(2097152)))
		Expect(cfg.Corpus.DebounceMS).To(Equal(uint(500)))
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "viper-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).NotTo(BeNil())

		defaults := config.NewDefaultConfig()
		Expect(v.GetString("embedding.provider")).To(Equal(defaults.Embedding.Provider))
		Expect(v.GetString("embedding.target")).To(Equal(defaults.Embedding.Target))
		Expect(v.GetUint("retrieval.top_k")).To(Equal(defaults.Retrieval.TopK))
		Expect(v.GetFloat64("retrieval.min_score")).To(Equal(defaults.Retrieval.MinScore))
		Expect(v.GetString("events.topic")).To(Equal(defaults.Events.Topic))
	})

	It("reads config file values over defaults", func() {
		data := `[embedding]
provider = "openai"
model = "text-embedding-3-small"
`
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("embedding.provider")).To(Equal("openai"))
		Expect(v.GetString("embedding.model")).To(Equal("text-embedding-3-small"))
		// Unset fields should still get defaults
		defaults := config.NewDefaultConfig()
		Expect(v.GetUint("retrieval.top_k")).To(Equal(defaults.Retrieval.TopK))
	})

	It("respects environment variables with STRATA_ prefix", func() {
		os.Setenv("STRATA_EMBEDDING_PROVIDER", "openai")
		defer os.Unsetenv("STRATA_EMBEDDING_PROVIDER")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("embedding.provider")).To(Equal("openai"))
	})

	It("env vars take precedence over config file values", func() {
		data := `[embedding]
provider = "ollama"
`
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())

		os.Setenv("STRATA_EMBEDDING_PROVIDER", "openai")
		defer os.Unsetenv("STRATA_EMBEDDING_PROVIDER")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("embedding.provider")).To(Equal("openai"))
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "bindflag-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		fs := config.FlagSet{
			config.FlagTopK: {Name: "top-k", Shorthand: "k", ViperKey: "retrieval.top_k", Description: "Number of nearest chunks to retrieve"},
		}

		cmd := &cobra.Command{Use: "test"}
		var topK uint
		config.AddUintFlag(cmd, fs, config.FlagTopK, &topK)

		// Simulate flag being set by user
		err = cmd.Flags().Set("top-k", "20")
		Expect(err).NotTo(HaveOccurred())

		config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagTopK})

		Expect(v.GetUint("retrieval.top_k")).To(Equal(uint(20)))
	})

	It("falls through to config when flag not set", func() {
		data := `[retrieval]
top_k = 15
`
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		fs := config.FlagSet{
			config.FlagTopK: {Name: "top-k", Shorthand: "k", ViperKey: "retrieval.top_k", Description: "Number of nearest chunks to retrieve"},
		}

		cmd := &cobra.Command{Use: "test"}
		var topK uint
		config.AddUintFlag(cmd, fs, config.FlagTopK, &topK)

		// Do NOT set the flag -- should fall through to config file value
		config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagTopK})

		Expect(v.GetUint("retrieval.top_k")).To(Equal(uint(15)))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		fs := config.FlagSet{}

		cmd := &cobra.Command{Use: "test"}

		// "nonexistent" is not in the FlagSet -- should be safely skipped
		config.BindRegisteredFlags(v, cmd, fs, []string{"nonexistent"})

		defaults := config.NewDefaultConfig()
		Expect(v.GetUint("retrieval.top_k")).To(Equal(defaults.Retrieval.TopK))
	})

	It("AddStringFlag pulls name, shorthand, and description from FlagSet", func() {
		fs := config.FlagSet{
			config.FlagEmbeddingModel: {Name: "embedding-model", Shorthand: "m", ViperKey: "embedding.model", Description: "Embedding model name"},
		}

		cmd := &cobra.Command{Use: "test"}
		var model string
		config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &model)

		f := cmd.Flags().Lookup("embedding-model")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("m"))
		Expect(f.Usage).To(Equal("Embedding model name"))

		defaults := config.NewDefaultConfig()
		Expect(f.DefValue).To(Equal(defaults.Embedding.Model))
	})

	It("AddUintFlag works for embedding-dimensions", func() {
		fs := config.FlagSet{
			config.FlagEmbeddingDims: {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
		}

		cmd := &cobra.Command{Use: "test"}
		var dims uint
		config.AddUintFlag(cmd, fs, config.FlagEmbeddingDims, &dims)

		f := cmd.Flags().Lookup("embedding-dimensions")
		Expect(f).NotTo(BeNil())
		Expect(f.Usage).To(Equal("Embedding dimensionality"))
	})

	It("AddFloat64Flag works for min-score", func() {
		fs := config.FlagSet{
			config.FlagMinScore: {Name: "min-score", ViperKey: "retrieval.min_score", Description: "Minimum similarity score"},
		}

		cmd := &cobra.Command{Use: "test"}
		var minScore float64
		config.AddFloat64Flag(cmd, fs, config.FlagMinScore, &minScore)

		f := cmd.Flags().Lookup("min-score")
		Expect(f).NotTo(BeNil())
		Expect(f.Usage).To(Equal("Minimum similarity score"))
		Expect(f.DefValue).To(Equal("0.35"))
	})
})

var _ = Describe("viper default merging via LoadConfig", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-defaults-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("fills in defaults for unset fields in a partial config", func() {
		// Config file only sets embedding.provider; everything else should get defaults.
		data := `version = 0

[embedding]
provider = "openai"
`
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())

		c, err := config.NewConfiger(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := c.LoadConfig()
		Expect(err).NotTo(HaveOccurred())

		// Explicitly set value should be preserved.
		Expect(cfg.Embedding.Provider).To(Equal("openai"))

		// Unset fields should get defaults.
		defaults := config.NewDefaultConfig()
		Expect(cfg.Storage.Provider).To(Equal(defaults.Storage.Provider))
		Expect(cfg.VectorStore.Provider).To(Equal(defaults.VectorStore.Provider))
		Expect(cfg.VectorStore.Collection).To(Equal(defaults.VectorStore.Collection))
		Expect(cfg.Embedding.Target).To(Equal(defaults.Embedding.Target))
		Expect(cfg.Embedding.Model).To(Equal(defaults.Embedding.Model))
		Expect(cfg.Embedding.Dimensions).To(Equal(defaults.Embedding.Dimensions))
		Expect(cfg.Chunking.Size).To(Equal(defaults.Chunking.Size))
		Expect(cfg.Chunking.Overlap).To(Equal(defaults.Chunking.Overlap))
		Expect(cfg.Retrieval.TopK).To(Equal(defaults.Retrieval.TopK))
		Expect(cfg.Retrieval.MinScore).To(Equal(defaults.Retrieval.MinScore))
		Expect(cfg.Events.Topic).To(Equal(defaults.Events.Topic))
		Expect(cfg.Corpus.Extensions).To(Equal(defaults.Corpus.Extensions))
	})

	It("does not overwrite explicitly set values", func() {
		data := `version = 0

[storage]
provider = "postgres"
postgres_dsn = "postgres://remote/strata"

[embedding]
provider = "openai"
model = "text-embedding-3-small"
dimensions = 1536

[retrieval]
top_k = 20
min_score = 0.6
`
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())

		c, err := config.NewConfiger(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := c.LoadConfig()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Storage.Provider).To(Equal("postgres"))
		Expect(cfg.Storage.PostgresDSN).To(Equal("postgres://remote/strata"))
		Expect(cfg.Embedding.Provider).To(Equal("openai"))
		Expect(cfg.Embedding.Model).To(Equal("text-embedding-3-small"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
		Expect(cfg.Retrieval.TopK).To(Equal(uint(20)))
		Expect(cfg.Retrieval.MinScore).To(Equal(0.6))
	})
})
