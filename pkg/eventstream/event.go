package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/strata/pkg/versions"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeVersionCommitted is emitted after a document version is
	// durably committed to the version store.
	EventTypeVersionCommitted = "strata.version.committed"

	// EventTypeIndexSynced is emitted after the vector index has been
	// reconciled with a committed version.
	EventTypeIndexSynced = "strata.index.synced"
)

// IndexEvent is a transport-neutral event payload for a document
// version lifecycle transition.
type IndexEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	DocumentID    string    `json:"document_id"`
	Version       int64     `json:"version"`
	ContentHash   string    `json:"content_hash,omitempty"`
	ChunkCount    int       `json:"chunk_count,omitempty"`
	Sync          *SyncMeta `json:"sync,omitempty"`
}

// SyncMeta captures reconciliation results for index.synced events.
type SyncMeta struct {
	Upserts    int   `json:"upserts"`
	Deletes    int   `json:"deletes"`
	DurationMs int64 `json:"duration_ms"`
}

// NewVersionCommitted builds the event emitted when a version lands in
// the version store, before the index has caught up.
func NewVersionCommitted(v *versions.Version) *IndexEvent {
	return &IndexEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeVersionCommitted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		DocumentID:    v.DocumentID,
		Version:       v.Number,
		ContentHash:   v.ContentHash,
		ChunkCount:    len(v.Chunks),
	}
}

// NewIndexSynced builds the event emitted when reconciliation finishes
// for a committed version.
func NewIndexSynced(docID string, version int64, upserts, deletes int, took time.Duration) *IndexEvent {
	return &IndexEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeIndexSynced,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		DocumentID:    docID,
		Version:       version,
		Sync: &SyncMeta{
			Upserts:    upserts,
			Deletes:    deletes,
			DurationMs: took.Milliseconds(),
		},
	}
}
