package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"threadscraper/pkg/thread"
)

const resultExt = ".json"

// ErrNotFound is returned when no saved result exists for a run ID
var ErrNotFound = errors.New("result not found")

// Manager persists reconstruction results as one JSON file per run
type Manager struct {
	outputDir string
	saved     map[string]bool
	mu        sync.RWMutex
}

// NewManager creates a storage manager writing to outputDir, creating it
// if needed and indexing results already present
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		saved:     make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}
	return manager, nil
}

// scanExistingFiles indexes the result files already in the output directory
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != resultExt {
			continue
		}
		m.saved[strings.TrimSuffix(entry.Name(), resultExt)] = true
	}
	return nil
}

// IsSaved reports whether a result for runID is on disk
func (m *Manager) IsSaved(runID string) bool {
	m.mu.RLock()
	known := m.saved[runID]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(m.pathFor(runID)); err == nil {
		m.mu.Lock()
		m.saved[runID] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// SaveResult writes res to <outputDir>/<run_id>.json and returns the path.
// The file is written to a temporary name and renamed into place.
func (m *Manager) SaveResult(res *thread.Result) (string, error) {
	if res == nil || res.RunID == "" {
		return "", errors.New("result has no run ID")
	}
	if strings.ContainsAny(res.RunID, `/\`) {
		return "", fmt.Errorf("invalid run ID %q", res.RunID)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	filename := m.pathFor(res.RunID)
	tempFile := filename + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.saved[res.RunID] = true
	m.mu.Unlock()

	return filename, nil
}

// LoadResult reads the saved result of runID
func (m *Manager) LoadResult(runID string) (*thread.Result, error) {
	data, err := os.ReadFile(m.pathFor(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, fmt.Errorf("failed to read result: %w", err)
	}

	var res thread.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", runID, err)
	}
	return &res, nil
}

// ListRunIDs returns the IDs of all saved results, sorted
func (m *Manager) ListRunIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.saved))
	for id := range m.saved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetSavedCount returns the number of saved results
func (m *Manager) GetSavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}

func (m *Manager) pathFor(runID string) string {
	return filepath.Join(m.outputDir, runID+resultExt)
}
