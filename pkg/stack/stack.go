// Package stack assembles the strata pipeline from resolved
// configuration: version store, vector index, embedder, event
// publisher, and the indexer and retriever wired over them.
//
// Commands build a Stack once in RunE and close it on the way out.
// Construction is lazy about nothing: a stack that builds successfully
// can ingest and query immediately.
package stack

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/strata/pkg/chunker"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/dotdir"
	"github.com/papercomputeco/strata/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/strata/pkg/embeddings/utils"
	"github.com/papercomputeco/strata/pkg/eventstream"
	"github.com/papercomputeco/strata/pkg/eventstream/kafka"
	"github.com/papercomputeco/strata/pkg/eventstream/nop"
	"github.com/papercomputeco/strata/pkg/indexer"
	"github.com/papercomputeco/strata/pkg/reconciler"
	"github.com/papercomputeco/strata/pkg/retrieval"
	"github.com/papercomputeco/strata/pkg/vector"
	vectorutils "github.com/papercomputeco/strata/pkg/vector/utils"
	"github.com/papercomputeco/strata/pkg/versions"
	versionutils "github.com/papercomputeco/strata/pkg/versions/utils"
)

const (
	// storeFile is the default version store database filename inside
	// a .strata/ directory.
	storeFile = "strata.db"

	// vectorFile is the default sqlite-vec database filename.
	vectorFile = "vectors.db"
)

// Stack is the assembled pipeline.
type Stack struct {
	Store     versions.Store
	Index     vector.Index
	Embedder  embeddings.Embedder
	Publisher eventstream.Publisher
	Indexer   *indexer.Indexer
	Retriever *retrieval.Retriever

	logger *slog.Logger
}

// Build wires a full stack from cfg. Database paths left empty resolve
// into the active .strata/ directory, falling back to the working
// directory when none exists.
func Build(cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	store, err := NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("building version store: %w", err)
	}

	index, err := newIndex(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("building vector index: %w", err)
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       os.Getenv("OPENAI_API_KEY"),
	})
	if err != nil {
		_ = store.Close()
		_ = index.Close()
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		_ = store.Close()
		_ = index.Close()
		_ = embedder.Close()
		return nil, fmt.Errorf("building event publisher: %w", err)
	}

	closeBackends := func() {
		_ = publisher.Close()
		_ = embedder.Close()
		_ = index.Close()
		_ = store.Close()
	}

	ch, err := chunker.New(chunker.Config{
		Size:    int(cfg.Chunking.Size),
		Overlap: int(cfg.Chunking.Overlap),
	})
	if err != nil {
		closeBackends()
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	rec, err := reconciler.New(store, index, embedder, reconciler.Config{}, logger)
	if err != nil {
		closeBackends()
		return nil, fmt.Errorf("building reconciler: %w", err)
	}

	ix, err := indexer.New(store, ch, rec, publisher, logger)
	if err != nil {
		closeBackends()
		return nil, fmt.Errorf("building indexer: %w", err)
	}

	retriever, err := retrieval.NewRetriever(store, index, embedder, retrieval.Policy{
		TopK:        int(cfg.Retrieval.TopK),
		MinScore:    float32(cfg.Retrieval.MinScore),
		FloorScore:  float32(cfg.Retrieval.FloorScore),
		MinMatches:  int(cfg.Retrieval.MinMatches),
		ScoreWindow: float32(cfg.Retrieval.ScoreWindow),
		MaxContexts: int(cfg.Retrieval.MaxContexts),
	}, logger)
	if err != nil {
		closeBackends()
		return nil, fmt.Errorf("building retriever: %w", err)
	}

	return &Stack{
		Store:     store,
		Index:     index,
		Embedder:  embedder,
		Publisher: publisher,
		Indexer:   ix,
		Retriever: retriever,
		logger:    logger,
	}, nil
}

// Close releases every backend the stack holds.
func (s *Stack) Close() error {
	var errs []error
	if err := s.Publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing publisher: %w", err))
	}
	if err := s.Embedder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing embedder: %w", err))
	}
	if err := s.Index.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing index: %w", err))
	}
	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	return errors.Join(errs...)
}

// NewStore builds only the version store. Read-only commands that
// never touch the index or the embedder use it directly.
func NewStore(cfg *config.Config) (versions.Store, error) {
	path := cfg.Storage.SQLitePath
	if path == "" {
		path = resolveDBPath(storeFile)
	}

	return versionutils.NewStore(&versionutils.NewStoreOpts{
		ProviderType: cfg.Storage.Provider,
		SQLitePath:   path,
		PostgresDSN:  cfg.Storage.PostgresDSN,
	})
}

func newIndex(cfg *config.Config, logger *slog.Logger) (vector.Index, error) {
	dbPath := cfg.VectorStore.DBPath
	if dbPath == "" {
		dbPath = resolveDBPath(vectorFile)
	}

	return vectorutils.NewIndex(&vectorutils.NewIndexOpts{
		ProviderType:   cfg.VectorStore.Provider,
		TargetURL:      cfg.VectorStore.Target,
		DBPath:         dbPath,
		APIKey:         os.Getenv("QDRANT_API_KEY"),
		CollectionName: cfg.VectorStore.Collection,
		Dimensions:     cfg.Embedding.Dimensions,
		Logger:         logger,
	})
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (eventstream.Publisher, error) {
	brokers := splitList(cfg.Events.Brokers)
	if len(brokers) == 0 {
		return nop.NewPublisher(), nil
	}

	return kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   cfg.Events.Topic,
	}, logger)
}

// resolveDBPath places a default database file inside the active
// .strata/ directory, or the working directory when none exists.
func resolveDBPath(name string) string {
	target, err := dotdir.NewManager().Target("")
	if err != nil || target == "" {
		return name
	}
	return filepath.Join(target, name)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
