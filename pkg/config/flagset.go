package config

// CommandFlags is the canonical flag registry shared by every strata
// command. Commands pick the subset they need by registry key; the
// definitions here keep names, shorthands, and descriptions identical
// across the whole CLI.
var CommandFlags = FlagSet{
	FlagStorageProvider: {
		Name:        "storage-provider",
		ViperKey:    "storage.provider",
		Description: "Version store backend (sqlite, libsql, postgres, inmemory)",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to the version store SQLite database (libsql: file path or turso URL)",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "storage.postgres_dsn",
		Description: "Postgres DSN for the version store",
	},
	FlagVectorStoreProv: {
		Name:        "vector-store-provider",
		ViperKey:    "vector_store.provider",
		Description: "Vector index backend (sqlitevec, chroma, qdrant, inmemory)",
	},
	FlagVectorStoreTgt: {
		Name:        "vector-store-target",
		ViperKey:    "vector_store.target",
		Description: "Vector index server URL (chroma) or host (qdrant)",
	},
	FlagVectorDBPath: {
		Name:        "vector-db-path",
		ViperKey:    "vector_store.db_path",
		Description: "Path to the sqlite-vec database file",
	},
	FlagCollection: {
		Name:        "collection",
		ViperKey:    "vector_store.collection",
		Description: "Vector index collection name",
	},
	FlagEmbeddingProv: {
		Name:        "embedding-provider",
		ViperKey:    "embedding.provider",
		Description: "Embedding provider (ollama, openai)",
	},
	FlagEmbeddingTgt: {
		Name:        "embedding-target",
		ViperKey:    "embedding.target",
		Description: "Embedding provider base URL",
	},
	FlagEmbeddingModel: {
		Name:        "embedding-model",
		Shorthand:   "m",
		ViperKey:    "embedding.model",
		Description: "Embedding model name",
	},
	FlagEmbeddingDims: {
		Name:        "embedding-dimensions",
		ViperKey:    "embedding.dimensions",
		Description: "Embedding vector dimensions",
	},
	FlagChunkSize: {
		Name:        "chunk-size",
		ViperKey:    "chunking.size",
		Description: "Chunk window size in runes",
	},
	FlagChunkOverlap: {
		Name:        "chunk-overlap",
		ViperKey:    "chunking.overlap",
		Description: "Runes shared between consecutive chunks",
	},
	FlagTopK: {
		Name:        "top-k",
		Shorthand:   "k",
		ViperKey:    "retrieval.top_k",
		Description: "How many matches to request from the index",
	},
	FlagMinScore: {
		Name:        "min-score",
		ViperKey:    "retrieval.min_score",
		Description: "Confidence threshold the best match must clear",
	},
	FlagFloorScore: {
		Name:        "floor-score",
		ViperKey:    "retrieval.floor_score",
		Description: "Secondary floor supporting matches must clear (0 derives it from min-score)",
	},
	FlagScoreWindow: {
		Name:        "score-window",
		ViperKey:    "retrieval.score_window",
		Description: "Keep only matches within this distance of the best score",
	},
	FlagMaxContexts: {
		Name:        "max-contexts",
		ViperKey:    "retrieval.max_contexts",
		Description: "Cap on forwarded chunks for an accepted query",
	},
	FlagMinMatches: {
		Name:        "min-matches",
		ViperKey:    "retrieval.min_matches",
		Description: "Minimum matches that must clear the floor threshold",
	},
	FlagBrokers: {
		Name:        "brokers",
		ViperKey:    "events.brokers",
		Description: "Comma-separated Kafka brokers for index events (empty disables)",
	},
	FlagTopic: {
		Name:        "topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for index events",
	},
	FlagExtensions: {
		Name:        "extensions",
		ViperKey:    "corpus.extensions",
		Description: "Comma-separated file extensions treated as documents",
	},
	FlagMaxFileBytes: {
		Name:        "max-file-bytes",
		ViperKey:    "corpus.max_file_bytes",
		Description: "Skip corpus files larger than this many bytes",
	},
	FlagDebounceMS: {
		Name:        "debounce-ms",
		ViperKey:    "corpus.debounce_ms",
		Description: "Watcher debounce window in milliseconds",
	},
}
