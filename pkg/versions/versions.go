// Package versions defines the version store: the durable, append-only
// record of every document revision and the chunks that make it up.
// Versions are immutable once written; the only mutable state per
// document is which version is latest and whether it has been synced
// to the vector index.
package versions

import (
	"context"
	"time"
)

// Chunk is one content-addressed slice of a document version.
//
// The ID is derived from the document id, the chunk position, and the
// fingerprint of the text, so a chunk whose content and position survive
// a re-ingestion keeps its id and its existing embedding.
type Chunk struct {
	ID          string
	DocumentID  string
	Position    int
	StartOffset int
	EndOffset   int
	Fingerprint string
	Text        string
}

// Version is an immutable snapshot of a document at a point in time.
type Version struct {
	DocumentID  string
	Number      int64
	ContentHash string
	CreatedAt   time.Time

	// Synced reports whether the vector index reflects this version.
	// A version is committed first and synced after reconciliation.
	Synced bool

	// Chunks is the full ordered chunk list, ascending by Position.
	Chunks []Chunk
}

// Document is the head record for a document id.
type Document struct {
	ID            string
	LatestVersion int64
	ContentHash   string
	UpdatedAt     time.Time
}

// DocumentStatus is the projection rendered by status listings.
type DocumentStatus struct {
	ID            string
	LatestVersion int64
	ContentHash   string
	ChunkCount    int
	Synced        bool
	UpdatedAt     time.Time
}

// Store persists documents, versions, and chunks.
//
// Version numbers per document start at 1 and increase by exactly one
// with no gaps. CreateVersion enforces this with a compare-and-swap on
// the document head, so two writers racing on the same document cannot
// both win: the loser gets ErrOutOfOrderCommit and retries against the
// new latest.
type Store interface {
	// CreateVersion atomically persists v, its chunk records, and its
	// membership list, and advances the document head. v.Number must be
	// exactly one greater than the stored latest version (1 for a new
	// document); anything else fails with ErrOutOfOrderCommit.
	CreateVersion(ctx context.Context, v *Version) error

	// Latest returns the most recent version of a document, chunks
	// included. Returns ErrDocumentNotFound for unknown ids.
	Latest(ctx context.Context, docID string) (*Version, error)

	// GetVersion returns one specific version, chunks included.
	GetVersion(ctx context.Context, docID string, number int64) (*Version, error)

	// ListDocuments returns one status row per document, ordered by id.
	ListDocuments(ctx context.Context) ([]DocumentStatus, error)

	// MarkSynced records that the vector index reflects this version.
	MarkSynced(ctx context.Context, docID string, number int64) error

	// LastSynced returns the highest synced version number for the
	// document, or 0 when none has been synced yet.
	LastSynced(ctx context.Context, docID string) (int64, error)

	// UnsyncedDocuments lists ids whose latest version has not finished
	// reconciliation, ordered by id.
	UnsyncedDocuments(ctx context.Context) ([]string, error)

	// ChunkIDsInRange returns the distinct chunk ids referenced by the
	// document's versions in the half-open range (from, to]. The
	// reconciler uses it to find candidates for deletion that earlier,
	// possibly interrupted syncs may have left in the index.
	ChunkIDsInRange(ctx context.Context, docID string, from, to int64) ([]string, error)

	// ResolveCurrent hydrates the given chunk ids, keeping only those
	// that are members of their document's latest version. Stale ids
	// (hits from superseded versions still visible in the index) are
	// dropped silently. Output order follows the input ids.
	ResolveCurrent(ctx context.Context, ids []string) ([]Chunk, error)

	// Close releases resources held by the store.
	Close() error
}
