// Package fingerprint computes content-addressed identifiers for
// documents and chunks (SHA-256, hex-encoded).
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Bytes returns the hex-encoded SHA-256 digest of b.
func Bytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Text returns the hex-encoded SHA-256 digest of s.
func Text(s string) string {
	return Bytes([]byte(s))
}

// ChunkID derives the stable identifier for a chunk from the document it
// belongs to, its position in the chunk sequence, and the fingerprint of
// its content. The three fields are joined with a NUL separator so that
// no concatenation of values can collide with another triple.
//
// A chunk whose content and position are unchanged across document
// versions keeps its id, which is what lets the reconciler skip
// re-embedding it.
func ChunkID(docID string, position int, contentFingerprint string) string {
	h := sha256.New()
	h.Write([]byte(docID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(position)))
	h.Write([]byte{0})
	h.Write([]byte(contentFingerprint))
	return hex.EncodeToString(h.Sum(nil))
}
