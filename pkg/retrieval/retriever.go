package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/strata/pkg/embeddings"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/vector"
	"github.com/papercomputeco/strata/pkg/versions"
)

// Retriever answers queries: embed, search, hydrate against the
// version store, gate.
type Retriever struct {
	store    versions.Store
	index    vector.Index
	embedder embeddings.Embedder
	gate     *Gate
	logger   *slog.Logger
}

// NewRetriever wires a retriever over the given store, index, and
// embedder.
func NewRetriever(store versions.Store, index vector.Index, embedder embeddings.Embedder, policy Policy, log *slog.Logger) (*Retriever, error) {
	if store == nil || index == nil || embedder == nil {
		return nil, fmt.Errorf("retriever requires a store, an index, and an embedder")
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Retriever{
		store:    store,
		index:    index,
		embedder: embedder,
		gate:     NewGate(policy),
		logger:   log,
	}, nil
}

// Gate exposes the retriever's effective gate.
func (r *Retriever) Gate() *Gate {
	return r.gate
}

// Query embeds the question, searches the index, drops hits that are
// no longer part of their document's latest version, and gates what
// remains. A low-confidence result is a valid rejected outcome, not an
// error; an embedding failure is an error and wraps
// embeddings.ErrEmbeddingUnavailable.
func (r *Retriever) Query(ctx context.Context, query string) (*Outcome, error) {
	opCtx, cancel := context.WithTimeout(ctx, r.gate.Policy().OpTimeout)
	embedding, err := r.embedder.Embed(opCtx, query)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	opCtx, cancel = context.WithTimeout(ctx, r.gate.Policy().OpTimeout)
	matches, err := r.index.Search(opCtx, embedding, r.gate.Policy().TopK)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	candidates, err := r.hydrate(ctx, matches)
	if err != nil {
		return nil, err
	}

	outcome := r.gate.Evaluate(candidates)

	r.logger.Debug("gated query",
		"matches", len(matches),
		"current", len(candidates),
		"state", outcome.State,
		"forwarded", len(outcome.Contexts),
	)

	return outcome, nil
}

// hydrate resolves match ids through the version store, keeping only
// chunks still current for their document. Index hits from superseded
// versions, visible while reconciliation is catching up, drop out here.
func (r *Retriever) hydrate(ctx context.Context, matches []vector.Match) ([]Context, error) {
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ChunkID
	}

	chunks, err := r.store.ResolveCurrent(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving current chunks: %w", err)
	}

	byID := make(map[string]versions.Chunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.ID] = chunk
	}

	candidates := make([]Context, 0, len(chunks))
	for _, m := range matches {
		chunk, ok := byID[m.ChunkID]
		if !ok {
			continue
		}
		candidates = append(candidates, Context{
			ChunkID:     chunk.ID,
			DocumentID:  chunk.DocumentID,
			Version:     m.Version,
			Position:    chunk.Position,
			StartOffset: chunk.StartOffset,
			EndOffset:   chunk.EndOffset,
			Text:        chunk.Text,
			Score:       m.Score,
		})
	}
	return candidates, nil
}
