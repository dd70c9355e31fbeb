package indexer

import "errors"

// ErrEmptyDocument rejects ingestion of empty or whitespace-only text.
// An empty document has no chunks and therefore nothing to index.
var ErrEmptyDocument = errors.New("empty document")
