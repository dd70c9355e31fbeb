package versions

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound is returned when a document id has no versions.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrVersionNotFound is returned when a document exists but the
	// requested version number does not.
	ErrVersionNotFound = errors.New("version not found")

	// ErrOutOfOrderCommit is returned when a CreateVersion loses the
	// compare-and-swap on the document head. The caller may re-read the
	// latest version and retry.
	ErrOutOfOrderCommit = errors.New("version commit out of order")
)

// NotFoundError reports which document, and optionally which version,
// was missing. It matches ErrDocumentNotFound or ErrVersionNotFound
// under errors.Is.
type NotFoundError struct {
	DocumentID string

	// Version is zero when the whole document is unknown.
	Version int64
}

func (e *NotFoundError) Error() string {
	if e.Version == 0 {
		return fmt.Sprintf("document not found: %s", e.DocumentID)
	}
	return fmt.Sprintf("version %d of document %s not found", e.Version, e.DocumentID)
}

func (e *NotFoundError) Unwrap() error {
	if e.Version == 0 {
		return ErrDocumentNotFound
	}
	return ErrVersionNotFound
}

// IsNotFound reports whether err is a missing-document or
// missing-version failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound) || errors.Is(err, ErrVersionNotFound)
}
