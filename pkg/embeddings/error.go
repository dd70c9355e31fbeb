package embeddings

import "errors"

// ErrEmbeddingUnavailable indicates the embedding provider could not
// produce a vector. Callers should surface this distinctly from an
// empty retrieval result: the query was never evaluated.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
