package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/papercomputeco/strata/pkg/versions"
)

// ChangeStatus classifies one chunk position's transition between two
// versions.
type ChangeStatus string

const (
	ChangeAdded     ChangeStatus = "added"
	ChangeRemoved   ChangeStatus = "removed"
	ChangeChanged   ChangeStatus = "changed"
	ChangeUnchanged ChangeStatus = "unchanged"
)

// ChunkChange is one position's transition, with a unified text diff
// when the content moved.
type ChunkChange struct {
	Position int
	Status   ChangeStatus

	// Old is the chunk at this position in the from-version, nil when
	// the position was added.
	Old *versions.Chunk

	// New is the chunk at this position in the to-version, nil when
	// the position was removed.
	New *versions.Chunk

	// TextDiff is a unified diff of the position's text. Empty for
	// unchanged positions.
	TextDiff string
}

// Diff describes how a document moved between two versions: id-keyed
// added/removed/unchanged sets for the reconciler's perspective, and a
// positional walk with rendered text diffs for humans.
type Diff struct {
	DocumentID  string
	FromVersion int64
	ToVersion   int64

	// Added are chunks of the to-version whose ids the from-version
	// does not reference.
	Added []versions.Chunk

	// Removed are chunks of the from-version whose ids the to-version
	// does not reference.
	Removed []versions.Chunk

	// Unchanged are chunks referenced by both versions.
	Unchanged []versions.Chunk

	// Changes walks positions in order.
	Changes []ChunkChange

	// Unified is the concatenated text diff of every moved position.
	Unified string
}

// Diff loads two versions and reports added, removed, and unchanged
// chunks plus per-position unified text diffs.
func (ix *Indexer) Diff(ctx context.Context, docID string, from, to int64) (*Diff, error) {
	return DiffVersions(ctx, ix.store, docID, from, to)
}

// DiffVersions is Diff without an assembled indexer; read-only callers
// hand it a bare store.
func DiffVersions(ctx context.Context, store versions.Store, docID string, from, to int64) (*Diff, error) {
	a, err := store.GetVersion(ctx, docID, from)
	if err != nil {
		return nil, fmt.Errorf("loading version %d of %q: %w", from, docID, err)
	}
	b, err := store.GetVersion(ctx, docID, to)
	if err != nil {
		return nil, fmt.Errorf("loading version %d of %q: %w", to, docID, err)
	}

	d := &Diff{
		DocumentID:  docID,
		FromVersion: from,
		ToVersion:   to,
	}

	inA := make(map[string]bool, len(a.Chunks))
	for _, chunk := range a.Chunks {
		inA[chunk.ID] = true
	}
	inB := make(map[string]bool, len(b.Chunks))
	for _, chunk := range b.Chunks {
		inB[chunk.ID] = true
	}

	for _, chunk := range b.Chunks {
		if inA[chunk.ID] {
			d.Unchanged = append(d.Unchanged, chunk)
		} else {
			d.Added = append(d.Added, chunk)
		}
	}
	for _, chunk := range a.Chunks {
		if !inB[chunk.ID] {
			d.Removed = append(d.Removed, chunk)
		}
	}

	if err := d.walkPositions(a, b); err != nil {
		return nil, err
	}

	return d, nil
}

// walkPositions fills Changes and Unified from a positional comparison.
func (d *Diff) walkPositions(a, b *versions.Version) error {
	maxLen := len(a.Chunks)
	if len(b.Chunks) > maxLen {
		maxLen = len(b.Chunks)
	}

	var unified strings.Builder
	for pos := 0; pos < maxLen; pos++ {
		var before, after *versions.Chunk
		if pos < len(a.Chunks) {
			before = &a.Chunks[pos]
		}
		if pos < len(b.Chunks) {
			after = &b.Chunks[pos]
		}

		change := ChunkChange{Position: pos, Old: before, New: after}
		switch {
		case before != nil && after != nil && before.ID == after.ID:
			change.Status = ChangeUnchanged
		case before != nil && after != nil:
			change.Status = ChangeChanged
		case after != nil:
			change.Status = ChangeAdded
		default:
			change.Status = ChangeRemoved
		}

		if change.Status != ChangeUnchanged {
			text, err := d.renderTextDiff(pos, before, after)
			if err != nil {
				return err
			}
			change.TextDiff = text
			unified.WriteString(text)
		}

		d.Changes = append(d.Changes, change)
	}

	d.Unified = unified.String()
	return nil
}

// renderTextDiff produces a unified diff for one position.
func (d *Diff) renderTextDiff(pos int, before, after *versions.Chunk) (string, error) {
	var oldText, newText string
	if before != nil {
		oldText = before.Text
	}
	if after != nil {
		newText = after.Text
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: fmt.Sprintf("%s@v%d#%d", d.DocumentID, d.FromVersion, pos),
		ToFile:   fmt.Sprintf("%s@v%d#%d", d.DocumentID, d.ToVersion, pos),
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("rendering diff for position %d: %w", pos, err)
	}
	return text, nil
}
