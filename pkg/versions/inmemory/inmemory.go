// Package inmemory implements the version store on plain maps. It is
// the zero-config default and the fixture most tests run against.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/strata/pkg/versions"
)

var _ versions.Store = (*Store)(nil)

// Store implements versions.Store using mutex-guarded maps.
type Store struct {
	mu sync.RWMutex

	// docs holds the head record per document id.
	docs map[string]*versions.Document

	// vers holds every committed version keyed by document id and number.
	vers map[string]map[int64]*versions.Version
}

// NewStore creates an empty in-memory version store.
func NewStore() *Store {
	return &Store{
		docs: make(map[string]*versions.Document),
		vers: make(map[string]map[int64]*versions.Version),
	}
}

// CreateVersion persists v and advances the document head. The version
// number must be exactly latest+1 (1 for a new document); otherwise the
// commit lost a race and fails with ErrOutOfOrderCommit.
func (s *Store) CreateVersion(_ context.Context, v *versions.Version) error {
	if v == nil {
		return errors.New("cannot store nil version")
	}
	if v.DocumentID == "" {
		return errors.New("version has no document id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var latest int64
	if doc, ok := s.docs[v.DocumentID]; ok {
		latest = doc.LatestVersion
	}
	if v.Number != latest+1 {
		return fmt.Errorf("document %q at version %d, got commit for %d: %w",
			v.DocumentID, latest, v.Number, versions.ErrOutOfOrderCommit)
	}

	stored := cloneVersion(v)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	if s.vers[v.DocumentID] == nil {
		s.vers[v.DocumentID] = make(map[int64]*versions.Version)
	}
	s.vers[v.DocumentID][v.Number] = stored

	s.docs[v.DocumentID] = &versions.Document{
		ID:            v.DocumentID,
		LatestVersion: v.Number,
		ContentHash:   v.ContentHash,
		UpdatedAt:     stored.CreatedAt,
	}

	return nil
}

// Latest returns the most recent version of a document.
func (s *Store) Latest(_ context.Context, docID string) (*versions.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[docID]
	if !ok {
		return nil, &versions.NotFoundError{DocumentID: docID}
	}
	return cloneVersion(s.vers[docID][doc.LatestVersion]), nil
}

// GetVersion returns one specific version of a document.
func (s *Store) GetVersion(_ context.Context, docID string, number int64) (*versions.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byNumber, ok := s.vers[docID]
	if !ok {
		return nil, &versions.NotFoundError{DocumentID: docID}
	}
	v, ok := byNumber[number]
	if !ok {
		return nil, &versions.NotFoundError{DocumentID: docID, Version: number}
	}
	return cloneVersion(v), nil
}

// ListDocuments returns a status row per document, ordered by id.
func (s *Store) ListDocuments(_ context.Context) ([]versions.DocumentStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]versions.DocumentStatus, 0, len(s.docs))
	for id, doc := range s.docs {
		latest := s.vers[id][doc.LatestVersion]
		statuses = append(statuses, versions.DocumentStatus{
			ID:            id,
			LatestVersion: doc.LatestVersion,
			ContentHash:   doc.ContentHash,
			ChunkCount:    len(latest.Chunks),
			Synced:        latest.Synced,
			UpdatedAt:     doc.UpdatedAt,
		})
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses, nil
}

// MarkSynced records that the vector index reflects this version.
func (s *Store) MarkSynced(_ context.Context, docID string, number int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byNumber, ok := s.vers[docID]
	if !ok {
		return &versions.NotFoundError{DocumentID: docID}
	}
	v, ok := byNumber[number]
	if !ok {
		return &versions.NotFoundError{DocumentID: docID, Version: number}
	}

	v.Synced = true
	return nil
}

// LastSynced returns the highest synced version number, or 0 when the
// document has never been synced.
func (s *Store) LastSynced(_ context.Context, docID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byNumber, ok := s.vers[docID]
	if !ok {
		return 0, &versions.NotFoundError{DocumentID: docID}
	}

	var last int64
	for number, v := range byNumber {
		if v.Synced && number > last {
			last = number
		}
	}
	return last, nil
}

// UnsyncedDocuments lists ids whose latest version is not yet synced.
func (s *Store) UnsyncedDocuments(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, doc := range s.docs {
		if !s.vers[id][doc.LatestVersion].Synced {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)
	return ids, nil
}

// ChunkIDsInRange returns the distinct chunk ids referenced by versions
// in the half-open range (from, to], in first-seen order.
func (s *Store) ChunkIDsInRange(_ context.Context, docID string, from, to int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byNumber, ok := s.vers[docID]
	if !ok {
		return nil, &versions.NotFoundError{DocumentID: docID}
	}

	seen := make(map[string]bool)
	var ids []string
	for number := from + 1; number <= to; number++ {
		v, ok := byNumber[number]
		if !ok {
			continue
		}
		for _, ch := range v.Chunks {
			if !seen[ch.ID] {
				seen[ch.ID] = true
				ids = append(ids, ch.ID)
			}
		}
	}
	return ids, nil
}

// ResolveCurrent hydrates chunk ids that are members of their document's
// latest version. Stale ids are dropped; output order follows input.
func (s *Store) ResolveCurrent(_ context.Context, ids []string) ([]versions.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Chunk membership per latest version, built once per call.
	current := make(map[string]versions.Chunk)
	for id, doc := range s.docs {
		for _, ch := range s.vers[id][doc.LatestVersion].Chunks {
			current[ch.ID] = ch
		}
	}

	var chunks []versions.Chunk
	for _, id := range ids {
		if ch, ok := current[id]; ok {
			chunks = append(chunks, ch)
		}
	}
	return chunks, nil
}

// Count returns the number of documents in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// cloneVersion deep-copies a version so callers cannot mutate stored
// state through returned pointers.
func cloneVersion(v *versions.Version) *versions.Version {
	if v == nil {
		return nil
	}
	out := *v
	out.Chunks = make([]versions.Chunk, len(v.Chunks))
	copy(out.Chunks, v.Chunks)
	return &out
}
