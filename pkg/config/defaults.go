package config

const (
	defaultStorageProvider = "sqlite"

	defaultVectorProvider   = "sqlitevec"
	defaultVectorCollection = "strata"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultChunkSize    = 1800
	defaultChunkOverlap = 250

	defaultTopK        = 8
	defaultMinScore    = 0.35
	defaultScoreWindow = 0.08
	defaultMaxContexts = 4
	defaultMinMatches  = 1

	defaultEventTopic = "strata.index.events"

	defaultCorpusExtensions = ".md,.txt"
	defaultMaxFileBytes     = 2 << 20
	defaultDebounceMS       = 500
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Chunking: ChunkingConfig{
			Size:    defaultChunkSize,
			Overlap: defaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			TopK:        defaultTopK,
			MinScore:    defaultMinScore,
			ScoreWindow: defaultScoreWindow,
			MaxContexts: defaultMaxContexts,
			MinMatches:  defaultMinMatches,
		},
		Events: EventsConfig{
			Topic: defaultEventTopic,
		},
		Corpus: CorpusConfig{
			Extensions:   defaultCorpusExtensions,
			MaxFileBytes: defaultMaxFileBytes,
			DebounceMS:   defaultDebounceMS,
		},
	}
}
