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

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/strata/pkg/indexer"
)

// DefaultDebounce is how long the watcher waits after the last write
// before re-ingesting a file. Editors tend to fire several events per
// save.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-ingests corpus files as they change on disk.
type Watcher struct {
	scanner  *Scanner
	debounce time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher sharing the scanner's root and filters.
func NewWatcher(scanner *Scanner, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if scanner == nil {
		return nil, fmt.Errorf("watcher requires a scanner")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		scanner:  scanner,
		debounce: debounce,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Watch blocks, re-ingesting eligible files on create, write, and
// rename until the context is canceled. New subdirectories are picked
// up as they appear.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.scanner.dir); err != nil {
		return err
	}

	w.logger.Info("watching corpus", "dir", w.scanner.dir, "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// handle routes one filesystem event.
func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, event.Name); err != nil {
				w.logger.Warn("watching new directory", "dir", event.Name, "error", err)
			}
			return
		}
	}

	if !w.eligible(event.Name) {
		return
	}

	w.schedule(ctx, event.Name)
}

// schedule (re)arms the debounce timer for one path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.debounce)
		return
	}

	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		w.ingest(ctx, path)
	})
}

// ingest re-ingests one settled file.
func (w *Watcher) ingest(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		// Deleted or renamed away before the debounce fired.
		return
	}

	docID, res, err := w.scanner.ingestFile(ctx, path)
	switch {
	case errors.Is(err, indexer.ErrEmptyDocument):
		return
	case err != nil:
		w.logger.Error("re-ingesting changed file", "doc", docID, "error", err)
		return
	case res == nil || res.NoChange:
		return
	}

	w.logger.Info("re-ingested changed file",
		"doc", docID,
		"version", res.Version.Number,
		"upserts", len(res.Plan.Upserts),
		"deletes", len(res.Plan.Deletes),
	)
}

// eligible reports whether the path is a corpus document.
func (w *Watcher) eligible(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return w.scanner.extensions[strings.ToLower(filepath.Ext(name))]
}

// addTree watches dir and every non-hidden subdirectory under it.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %q: %w", dir, err)
	}
	return nil
}
