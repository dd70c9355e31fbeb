package reconciler

import "errors"

// ErrIndexSyncFailure indicates a reconciliation pass could not bring
// the vector index up to date with the version store. The version stays
// unsynced and the pass can be retried; the plan recomputes to the same
// convergent result.
var ErrIndexSyncFailure = errors.New("index sync failure")
