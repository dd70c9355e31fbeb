// Package vector provides the index adapter interface and implementations
// for storing and searching chunk embeddings.
package vector

import "context"

// Entry represents one embedded chunk as stored in the index.
type Entry struct {
	// ChunkID is the content-addressed chunk identifier.
	ChunkID string

	// DocumentID and Version identify the version that introduced the
	// chunk. Retrieval re-checks membership against the version store,
	// so these are provenance metadata, not the source of truth.
	DocumentID string
	Version    int64

	// StartOffset and EndOffset locate the chunk in its document text.
	StartOffset int
	EndOffset   int

	// Embedding is the vector representation of the chunk content.
	Embedding []float32
}

// Match represents a search result with similarity score.
type Match struct {
	Entry

	// Score is the similarity score (higher = more similar).
	Score float32
}

// Index handles storage and retrieval of chunk embeddings.
//
// Upsert and Delete are idempotent: upserting an id that already exists
// overwrites it, and deleting an id that is absent is not an error. The
// reconciler leans on both to make interrupted syncs safely retryable.
type Index interface {
	// Upsert stores entries, replacing any existing entry with the same
	// chunk id.
	Upsert(ctx context.Context, entries []Entry) error

	// Delete removes entries by chunk id. Missing ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// Get retrieves entries by chunk id. Missing ids are simply absent
	// from the result; the reconciler uses this for presence checks.
	Get(ctx context.Context, ids []string) ([]Entry, error)

	// Search finds the k most similar entries to the given embedding,
	// ordered by descending score.
	Search(ctx context.Context, embedding []float32, k int) ([]Match, error)

	// Close releases any resources held by the index.
	Close() error
}
