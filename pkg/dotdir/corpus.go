package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	corpusFile = "corpus.json"
)

// CorpusState binds a .strata/ directory to the corpus it tracks.
// It is written after each successful scan so commands can default to
// the bound corpus root without repeating it.
type CorpusState struct {
	// Root is the absolute path of the tracked corpus directory.
	Root string `json:"root"`

	// LastScan is when the corpus was last fully scanned.
	LastScan time.Time `json:"last_scan"`

	// Documents is the number of documents seen in the last scan.
	Documents int `json:"documents"`

	// Chunks is the number of chunks across all documents in the
	// last scan.
	Chunks int `json:"chunks"`
}

// LoadCorpusState loads the corpus binding from a target .strata/corpus.json.
// Returns nil, nil if no binding exists.
// If overrideDir is non-empty, it is used instead of the default .strata/ location.
func (m *Manager) LoadCorpusState(overrideDir string) (*CorpusState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}

	path := filepath.Join(dir, corpusFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading corpus state: %w", err)
	}

	state := &CorpusState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing corpus state: %w", err)
	}

	return state, nil
}

// SaveCorpus persists the corpus binding to a target .strata/corpus.json.
func (m *Manager) SaveCorpus(state *CorpusState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil corpus state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return errors.New("no .strata directory resolved; run strata init first")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling corpus state: %w", err)
	}

	path := filepath.Join(dir, corpusFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing corpus state: %w", err)
	}

	return nil
}

// ClearCorpus removes the corpus binding file.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearCorpus(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return nil
	}

	path := filepath.Join(dir, corpusFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing corpus state: %w", err)
	}

	return nil
}
