// Package indexer orchestrates ingestion: chunk, fingerprint, commit a
// version, publish events, and reconcile the vector index.
//
// The version store commit is the durability point. Everything after it
// (events, reconciliation) can fail and be retried without losing the
// version; a commit that fails leaves the document exactly at its
// previous state.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/strata/pkg/chunker"
	"github.com/papercomputeco/strata/pkg/eventstream"
	"github.com/papercomputeco/strata/pkg/eventstream/nop"
	"github.com/papercomputeco/strata/pkg/fingerprint"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/reconciler"
	"github.com/papercomputeco/strata/pkg/versions"
)

// Indexer owns the ingest flow for a corpus of documents.
type Indexer struct {
	store     versions.Store
	chunker   *chunker.Chunker
	rec       *reconciler.Reconciler
	publisher eventstream.Publisher
	locks     *keyedMutex
	logger    *slog.Logger
}

// Result reports what one ingest or rollback did.
type Result struct {
	// Version is the resulting latest version. On NoChange it is the
	// pre-existing latest, not a new commit.
	Version *versions.Version

	// NoChange reports that the content hash matched the latest
	// version and nothing was committed or indexed.
	NoChange bool

	// Plan is the reconciliation applied for the commit. Nil on
	// NoChange or when reconciliation failed.
	Plan *reconciler.Plan
}

// New wires an indexer. A nil publisher disables events.
func New(store versions.Store, ch *chunker.Chunker, rec *reconciler.Reconciler, publisher eventstream.Publisher, log *slog.Logger) (*Indexer, error) {
	if store == nil || ch == nil || rec == nil {
		return nil, fmt.Errorf("indexer requires a store, a chunker, and a reconciler")
	}
	if publisher == nil {
		publisher = nop.NewPublisher()
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Indexer{
		store:     store,
		chunker:   ch,
		rec:       rec,
		publisher: publisher,
		locks:     newKeyedMutex(),
		logger:    log,
	}, nil
}

// Ingest commits text as the next version of docID and brings the
// vector index up to date.
//
// Unchanged content short-circuits to a NoChange result with zero index
// calls. A reconciliation failure returns both the committed version
// and an error wrapping reconciler.ErrIndexSyncFailure: the commit is
// durable and the next Ingest or Resync finishes the index work.
func (ix *Indexer) Ingest(ctx context.Context, docID, text string) (*Result, error) {
	if docID == "" {
		return nil, fmt.Errorf("document id is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document %q: %w", docID, ErrEmptyDocument)
	}

	unlock := ix.locks.lock(docID)
	defer unlock()

	contentHash := fingerprint.Text(text)

	var nextNumber int64 = 1
	latest, err := ix.store.Latest(ctx, docID)
	switch {
	case err == nil:
		if latest.ContentHash == contentHash {
			ix.logger.Debug("content unchanged", "doc", docID, "version", latest.Number)
			return &Result{Version: latest, NoChange: true}, nil
		}
		nextNumber = latest.Number + 1
	case errors.Is(err, versions.ErrDocumentNotFound):
		// First ingest of this document.
	default:
		return nil, fmt.Errorf("loading latest version of %q: %w", docID, err)
	}

	version := &versions.Version{
		DocumentID:  docID,
		Number:      nextNumber,
		ContentHash: contentHash,
	}
	for _, piece := range ix.chunker.Split(text) {
		fp := fingerprint.Text(piece.Text)
		version.Chunks = append(version.Chunks, versions.Chunk{
			ID:          fingerprint.ChunkID(docID, piece.Position, fp),
			DocumentID:  docID,
			Position:    piece.Position,
			StartOffset: piece.Start,
			EndOffset:   piece.End,
			Fingerprint: fp,
			Text:        piece.Text,
		})
	}

	return ix.commit(ctx, version)
}

// Rollback commits a new version whose chunk list is identical to the
// target version's. Chunk ids carry over, so only ids the index has
// since dropped get re-embedded. History is never rewritten.
func (ix *Indexer) Rollback(ctx context.Context, docID string, target int64) (*Result, error) {
	unlock := ix.locks.lock(docID)
	defer unlock()

	targetVersion, err := ix.store.GetVersion(ctx, docID, target)
	if err != nil {
		return nil, fmt.Errorf("loading rollback target: %w", err)
	}

	latest, err := ix.store.Latest(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("loading latest version of %q: %w", docID, err)
	}

	if latest.ContentHash == targetVersion.ContentHash {
		ix.logger.Debug("rollback target matches current content",
			"doc", docID, "target", target, "latest", latest.Number)
		return &Result{Version: latest, NoChange: true}, nil
	}

	version := &versions.Version{
		DocumentID:  docID,
		Number:      latest.Number + 1,
		ContentHash: targetVersion.ContentHash,
		Chunks:      targetVersion.Chunks,
	}

	return ix.commit(ctx, version)
}

// Resync finishes pending reconciliations for every unsynced document,
// in id order. Returns how many documents were synced before the first
// failure.
func (ix *Indexer) Resync(ctx context.Context) (int, error) {
	docIDs, err := ix.store.UnsyncedDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing unsynced documents: %w", err)
	}

	for i, docID := range docIDs {
		if _, err := ix.ResyncDocument(ctx, docID); err != nil {
			return i, err
		}
	}
	return len(docIDs), nil
}

// ResyncDocument reconciles one document's latest version. Idempotent:
// an already-synced document is a no-op.
func (ix *Indexer) ResyncDocument(ctx context.Context, docID string) (*reconciler.Plan, error) {
	unlock := ix.locks.lock(docID)
	defer unlock()

	return ix.reconcile(ctx, docID)
}

// Status lists every document's head state.
func (ix *Indexer) Status(ctx context.Context) ([]versions.DocumentStatus, error) {
	return ix.store.ListDocuments(ctx)
}

// commit persists the version, emits the committed event, and runs
// reconciliation. Callers hold the document lock.
func (ix *Indexer) commit(ctx context.Context, version *versions.Version) (*Result, error) {
	if err := ix.store.CreateVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("committing version %d of %q: %w", version.Number, version.DocumentID, err)
	}

	ix.publish(ctx, eventstream.NewVersionCommitted(version))
	ix.logger.Info("committed version",
		"doc", version.DocumentID,
		"version", version.Number,
		"chunks", len(version.Chunks),
	)

	plan, err := ix.reconcile(ctx, version.DocumentID)
	if err != nil {
		return &Result{Version: version}, err
	}
	return &Result{Version: version, Plan: plan}, nil
}

// reconcile applies the index plan for docID and emits the synced event
// when work was done.
func (ix *Indexer) reconcile(ctx context.Context, docID string) (*reconciler.Plan, error) {
	started := time.Now()

	plan, err := ix.rec.ReconcileDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !plan.Synced {
		ix.publish(ctx, eventstream.NewIndexSynced(
			docID,
			plan.Version,
			len(plan.Upserts),
			len(plan.Deletes),
			time.Since(started),
		))
	}
	return plan, nil
}

// publish emits an event. Event delivery is advisory: a failure is
// logged, never propagated into the ingest outcome.
func (ix *Indexer) publish(ctx context.Context, event *eventstream.IndexEvent) {
	if err := ix.publisher.Publish(ctx, event); err != nil {
		ix.logger.Warn("publishing event",
			"event_type", event.EventType,
			"doc", event.DocumentID,
			"error", err,
		)
	}
}
