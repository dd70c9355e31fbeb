// Package inmemory provides an in-memory vector index for testing and
// single-process use.
package inmemory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/papercomputeco/strata/pkg/vector"
)

// Index implements vector.Index with an in-memory map and brute-force
// cosine similarity search.
type Index struct {
	mu      sync.RWMutex
	entries map[string]vector.Entry
}

var _ vector.Index = (*Index)(nil)

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{
		entries: make(map[string]vector.Entry),
	}
}

// Upsert stores entries keyed by chunk id, overwriting existing ones.
func (x *Index) Upsert(_ context.Context, entries []vector.Entry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, entry := range entries {
		entry.Embedding = append([]float32(nil), entry.Embedding...)
		x.entries[entry.ChunkID] = entry
	}
	return nil
}

// Search returns the k entries most similar to the query embedding,
// scored by cosine similarity.
func (x *Index) Search(_ context.Context, embedding []float32, k int) ([]vector.Match, error) {
	if k <= 0 {
		k = 10
	}

	x.mu.RLock()
	matches := make([]vector.Match, 0, len(x.entries))
	for _, entry := range x.entries {
		matches = append(matches, vector.Match{
			Entry: entry,
			Score: cosine(embedding, entry.Embedding),
		})
	}
	x.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}

	out := make([]vector.Match, len(matches))
	for i, m := range matches {
		m.Entry.Embedding = append([]float32(nil), m.Entry.Embedding...)
		out[i] = m
	}
	return out, nil
}

// Get returns the entries for the given chunk ids. Unknown ids are
// omitted.
func (x *Index) Get(_ context.Context, ids []string) ([]vector.Entry, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	entries := make([]vector.Entry, 0, len(ids))
	for _, id := range ids {
		entry, ok := x.entries[id]
		if !ok {
			continue
		}
		entry.Embedding = append([]float32(nil), entry.Embedding...)
		entries = append(entries, entry)
	}
	return entries, nil
}

// Delete removes the given chunk ids. Unknown ids are ignored.
func (x *Index) Delete(_ context.Context, ids []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, id := range ids {
		delete(x.entries, id)
	}
	return nil
}

// Close is a no-op for the in-memory index.
func (x *Index) Close() error {
	return nil
}

// Len reports how many entries the index currently holds.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// cosine computes cosine similarity between two vectors. Mismatched or
// zero-length vectors score zero.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
