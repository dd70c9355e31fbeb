// Package dotdir manages the .strata/ and ~/.strata directories.
//
// A .strata/ directory anchors one indexed corpus: it holds the
// config.toml, the default sqlite databases, and the corpus binding
// state written after scans. Resolution prefers a local directory so
// each project can carry its own index.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the strata directory.
	dirName = ".strata"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .strata/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.strata/ dir, if it exists
//  3. Home ~/.strata/ dir, if it exists
//
// Returns an empty path when nothing resolves; callers fall back to
// defaults and CreateLocal makes a directory explicitly.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating strata directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if dir := m.localDir(); dir != "" {
		return filepath.Abs(dir)
	}

	if dir := m.homeDir(); dir != "" {
		return filepath.Abs(dir)
	}

	return "", nil
}

// CreateLocal creates a .strata/ directory in the current working
// directory and returns its absolute path. Used by "strata init".
func (m *Manager) CreateLocal() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating strata directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// localDir returns the path of a .strata/ directory in the current
// working directory, or empty when none exists.
func (m *Manager) localDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := filepath.Join(cwd, dirName)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}
	return dir
}

// homeDir returns the path of a .strata/ directory in the user's home
// directory, or empty when none exists.
func (m *Manager) homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	dir := filepath.Join(home, dirName)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}
	return dir
}
