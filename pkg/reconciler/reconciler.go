// Package reconciler drives the vector index toward the version store.
//
// The version store is the source of truth: a commit lands there first
// and the index catches up afterwards. Reconciliation computes a plan
// (which chunk ids to embed and upsert, which stale ids to delete) from
// store state plus an index membership probe, then applies upserts
// before deletes so an interrupted pass never removes entries that are
// still the best available. Plans are convergent: re-running after a
// crash skips ids the index already holds and re-derives the same
// deletes.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/strata/pkg/embeddings"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/vector"
	"github.com/papercomputeco/strata/pkg/versions"
)

const (
	// DefaultConcurrency bounds parallel embedding calls.
	DefaultConcurrency = 4

	// DefaultOpTimeout bounds each store or index adapter call.
	DefaultOpTimeout = 30 * time.Second
)

// Config holds configuration for the reconciler.
type Config struct {
	// Concurrency bounds parallel embedding calls per document.
	// Defaults to DefaultConcurrency if zero.
	Concurrency int

	// OpTimeout bounds each embedder and index call. Defaults to
	// DefaultOpTimeout if zero.
	OpTimeout time.Duration
}

// Reconciler syncs the vector index with the version store.
type Reconciler struct {
	store       versions.Store
	index       vector.Index
	embedder    embeddings.Embedder
	concurrency int
	opTimeout   time.Duration
	logger      *slog.Logger
}

// Plan is the work needed to make the index reflect one document's
// latest version.
type Plan struct {
	DocumentID string
	Version    int64

	// Synced reports that the latest version was already reconciled
	// and the plan is trivially empty.
	Synced bool

	// Upserts are the latest version's chunks missing from the index.
	Upserts []versions.Chunk

	// Deletes are chunk ids present in the index's candidate window
	// but absent from the latest version.
	Deletes []string
}

// Empty reports whether the plan requires no index writes.
func (p *Plan) Empty() bool {
	return len(p.Upserts) == 0 && len(p.Deletes) == 0
}

// New creates a reconciler over the given store, index, and embedder.
func New(store versions.Store, index vector.Index, embedder embeddings.Embedder, cfg Config, log *slog.Logger) (*Reconciler, error) {
	if store == nil || index == nil || embedder == nil {
		return nil, fmt.Errorf("reconciler requires a store, an index, and an embedder")
	}
	if log == nil {
		log = logger.Nop()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}

	return &Reconciler{
		store:       store,
		index:       index,
		embedder:    embedder,
		concurrency: concurrency,
		opTimeout:   opTimeout,
		logger:      log,
	}, nil
}

// PlanDocument computes the plan for one document without applying it.
// An already-synced document yields an empty plan with no index calls.
func (r *Reconciler) PlanDocument(ctx context.Context, docID string) (*Plan, error) {
	latest, err := r.store.Latest(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("loading latest version of %q: %w", docID, err)
	}

	plan := &Plan{
		DocumentID: docID,
		Version:    latest.Number,
	}
	if latest.Synced {
		plan.Synced = true
		return plan, nil
	}

	lastSynced, err := r.store.LastSynced(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("loading last synced version of %q: %w", docID, err)
	}

	current := make(map[string]bool, len(latest.Chunks))
	currentIDs := make([]string, len(latest.Chunks))
	for i, chunk := range latest.Chunks {
		current[chunk.ID] = true
		currentIDs[i] = chunk.ID
	}

	// The index holds at most the last synced version's ids plus
	// whatever interrupted passes upserted since, so the candidate
	// window starts at lastSynced inclusive.
	candidates, err := r.store.ChunkIDsInRange(ctx, docID, lastSynced-1, latest.Number-1)
	if err != nil {
		return nil, fmt.Errorf("loading candidate chunk ids of %q: %w", docID, err)
	}
	for _, id := range candidates {
		if !current[id] {
			plan.Deletes = append(plan.Deletes, id)
		}
	}

	indexed, err := r.indexedIDs(ctx, currentIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: probing index for %q: %w", ErrIndexSyncFailure, docID, err)
	}
	for _, chunk := range latest.Chunks {
		if !indexed[chunk.ID] {
			plan.Upserts = append(plan.Upserts, chunk)
		}
	}

	return plan, nil
}

// ReconcileDocument plans and applies one document, then marks its
// latest version synced. Returns the applied plan.
func (r *Reconciler) ReconcileDocument(ctx context.Context, docID string) (*Plan, error) {
	plan, err := r.PlanDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if plan.Synced {
		return plan, nil
	}

	if err := r.apply(ctx, plan); err != nil {
		return nil, err
	}

	if err := r.store.MarkSynced(ctx, docID, plan.Version); err != nil {
		return nil, fmt.Errorf("%w: marking %q version %d synced: %w", ErrIndexSyncFailure, docID, plan.Version, err)
	}

	r.logger.Info("reconciled document",
		"doc", docID,
		"version", plan.Version,
		"upserts", len(plan.Upserts),
		"deletes", len(plan.Deletes),
	)

	return plan, nil
}

// ReconcileAll reconciles every document whose latest version is
// unsynced, in id order. Returns how many documents were brought up to
// date before the first failure.
func (r *Reconciler) ReconcileAll(ctx context.Context) (int, error) {
	docIDs, err := r.store.UnsyncedDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing unsynced documents: %w", err)
	}

	for i, docID := range docIDs {
		if _, err := r.ReconcileDocument(ctx, docID); err != nil {
			return i, err
		}
	}
	return len(docIDs), nil
}

// apply embeds and upserts missing chunks, then deletes stale ids.
// Upserts run first so a failure partway through never leaves the index
// without entries it previously held.
func (r *Reconciler) apply(ctx context.Context, plan *Plan) error {
	if len(plan.Upserts) > 0 {
		entries := make([]vector.Entry, len(plan.Upserts))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for i, chunk := range plan.Upserts {
			g.Go(func() error {
				embedding, err := r.embed(gctx, chunk.Text)
				if err != nil {
					return fmt.Errorf("%w: embedding chunk %s: %w", ErrIndexSyncFailure, chunk.ID, err)
				}
				entries[i] = vector.Entry{
					ChunkID:     chunk.ID,
					DocumentID:  chunk.DocumentID,
					Version:     plan.Version,
					StartOffset: chunk.StartOffset,
					EndOffset:   chunk.EndOffset,
					Embedding:   embedding,
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
		err := r.index.Upsert(opCtx, entries)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: upserting %d chunks of %q: %w", ErrIndexSyncFailure, len(entries), plan.DocumentID, err)
		}
	}

	if len(plan.Deletes) > 0 {
		opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
		err := r.index.Delete(opCtx, plan.Deletes)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: deleting %d stale chunks of %q: %w", ErrIndexSyncFailure, len(plan.Deletes), plan.DocumentID, err)
		}
	}

	return nil
}

// indexedIDs probes the index for the given ids and reports which are
// present.
func (r *Reconciler) indexedIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	entries, err := r.index.Get(opCtx, ids)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.ChunkID] = true
	}
	return present, nil
}

// embed wraps a single embedding call in the per-op timeout.
func (r *Reconciler) embed(ctx context.Context, text string) ([]float32, error) {
	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	return r.embedder.Embed(opCtx, text)
}
