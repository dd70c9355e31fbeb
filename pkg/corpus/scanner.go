// Package corpus ingests document files from a directory tree, once
// via the Scanner or continuously via the Watcher.
//
// Document ids are slash-normalized paths relative to the corpus root,
// so the same tree produces the same ids on every platform.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/strata/pkg/indexer"
)

const (
	// DefaultMaxFileSize caps how large a single document may be.
	DefaultMaxFileSize = 2 << 20

	// DefaultConcurrency bounds parallel file ingestion.
	DefaultConcurrency = 4
)

// DefaultExtensions are the file types treated as documents.
var DefaultExtensions = []string{".md", ".txt"}

// Config holds configuration for the corpus scanner.
type Config struct {
	// Dir is the corpus root directory. Required.
	Dir string

	// Concurrency bounds parallel file ingestion. Defaults to
	// DefaultConcurrency if zero.
	Concurrency int

	// MaxFileSize skips files larger than this many bytes. Defaults to
	// DefaultMaxFileSize if zero.
	MaxFileSize int64

	// Extensions are the file extensions to ingest, lowercase with
	// leading dot. Defaults to DefaultExtensions if empty.
	Extensions []string
}

// Summary aggregates what one scan did across the whole tree.
type Summary struct {
	DocsScanned   int
	DocsChanged   int
	DocsUnchanged int
	ChunksAdded   int
	ChunksUpdated int
	ChunksRemoved int
	Upserts       int
	Deletes       int
	Elapsed       time.Duration

	// ChunksTotal counts every scanned document's latest-version
	// chunks, changed or not.
	ChunksTotal int
}

// Scanner walks a directory tree and ingests every eligible file.
type Scanner struct {
	ix          *indexer.Indexer
	dir         string
	concurrency int
	maxFileSize int64
	extensions  map[string]bool
	logger      *slog.Logger
}

// NewScanner creates a scanner rooted at cfg.Dir.
func NewScanner(ix *indexer.Indexer, cfg Config, logger *slog.Logger) (*Scanner, error) {
	if ix == nil {
		return nil, fmt.Errorf("scanner requires an indexer")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("corpus directory is required")
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	maxFileSize := cfg.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	extensions := make(map[string]bool, len(exts))
	for _, ext := range exts {
		extensions[strings.ToLower(ext)] = true
	}

	return &Scanner{
		ix:          ix,
		dir:         cfg.Dir,
		concurrency: concurrency,
		maxFileSize: maxFileSize,
		extensions:  extensions,
		logger:      logger,
	}, nil
}

// Scan walks the tree and ingests every eligible file, bounded
// concurrently. Per-document serialization still holds inside the
// indexer, so concurrent files never race on the same id.
func (s *Scanner) Scan(ctx context.Context) (*Summary, error) {
	started := time.Now()

	paths, err := s.collect()
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, path := range paths {
		g.Go(func() error {
			docID, res, err := s.ingestFile(gctx, path)
			if err != nil {
				return fmt.Errorf("ingesting %q: %w", docID, err)
			}
			if res == nil {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			summary.DocsScanned++
			summary.ChunksTotal += len(res.Version.Chunks)
			if res.NoChange {
				summary.DocsUnchanged++
				return nil
			}
			summary.DocsChanged++
			if res.Plan != nil {
				summary.Upserts += len(res.Plan.Upserts)
				summary.Deletes += len(res.Plan.Deletes)
			}
			return s.countChunkChanges(gctx, summary, docID, res)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(started)

	s.logger.Info("scanned corpus",
		"dir", s.dir,
		"scanned", summary.DocsScanned,
		"changed", summary.DocsChanged,
		"unchanged", summary.DocsUnchanged,
		"upserts", summary.Upserts,
		"deletes", summary.Deletes,
		"elapsed", summary.Elapsed,
	)

	return summary, nil
}

// collect gathers eligible file paths under the root. Dot-prefixed
// files and directories are invisible to the corpus.
func (s *Scanner) collect() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != s.dir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !s.extensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", s.dir, err)
	}
	return paths, nil
}

// ingestFile reads one file and feeds it through the indexer. Oversized
// files are skipped with a warning, returning a nil result.
func (s *Scanner) ingestFile(ctx context.Context, path string) (string, *indexer.Result, error) {
	docID, err := s.docID(path)
	if err != nil {
		return path, nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return docID, nil, fmt.Errorf("stating file: %w", err)
	}
	if info.Size() > s.maxFileSize {
		s.logger.Warn("skipping oversized file",
			"doc", docID,
			"size", info.Size(),
			"limit", s.maxFileSize,
		)
		return docID, nil, nil
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return docID, nil, fmt.Errorf("reading file: %w", err)
	}

	res, err := s.ix.Ingest(ctx, docID, string(text))
	if errors.Is(err, indexer.ErrEmptyDocument) {
		s.logger.Warn("skipping empty file", "doc", docID)
		return docID, nil, nil
	}
	if err != nil {
		return docID, nil, err
	}
	return docID, res, nil
}

// docID maps an absolute path to its slash-normalized id relative to
// the corpus root.
func (s *Scanner) docID(path string) (string, error) {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil {
		return "", fmt.Errorf("relativizing %q: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}

// countChunkChanges splits a commit's chunk movement into added,
// updated, and removed by position.
func (s *Scanner) countChunkChanges(ctx context.Context, summary *Summary, docID string, res *indexer.Result) error {
	if res.Version.Number == 1 {
		summary.ChunksAdded += len(res.Version.Chunks)
		return nil
	}

	diff, err := s.ix.Diff(ctx, docID, res.Version.Number-1, res.Version.Number)
	if err != nil {
		return fmt.Errorf("diffing %q: %w", docID, err)
	}
	for _, change := range diff.Changes {
		switch change.Status {
		case indexer.ChangeAdded:
			summary.ChunksAdded++
		case indexer.ChangeChanged:
			summary.ChunksUpdated++
		case indexer.ChangeRemoved:
			summary.ChunksRemoved++
		}
	}
	return nil
}
