package vector

import "errors"

var (
	// ErrNotFound is returned when a chunk is not present in the index.
	ErrNotFound = errors.New("chunk not found in index")

	// ErrEmbedding is returned when an entry's embedding is malformed,
	// e.g. its dimension does not match the index configuration.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the index backend is unreachable.
	ErrConnection = errors.New("vector index connection failed")
)
