package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadscraper/pkg/models"
	"threadscraper/pkg/thread"
)

func sampleResult(runID string) *thread.Result {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &thread.Result{
		RunID: runID,
		Query: "golang",
		Mode:  models.SearchModeTop,
		Threads: []thread.ThreadResult{{
			RootID: "1",
			Author: "gopher",
			URL:    "https://x.com/gopher/status/1",
			Texts:  []string{"🧵 1/2", "2/2"},
			Entries: []thread.Entry{
				{PostID: "1", Text: "🧵 1/2", CreatedAt: started},
				{PostID: "2", Text: "2/2", CreatedAt: started.Add(time.Minute)},
			},
		}},
		Visited:    2,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
}

func TestSaveAndLoadResult(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, manager.GetSavedCount())
	assert.False(t, manager.IsSaved("run-1"))

	path, err := manager.SaveResult(sampleResult("run-1"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-1.json"), path)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must be renamed away")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "run-1", doc["run_id"])

	loaded, err := manager.LoadResult("run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"🧵 1/2", "2/2"}, loaded.Threads[0].Texts)
	assert.Equal(t, "2", loaded.Threads[0].Entries[1].PostID)
	assert.True(t, loaded.StartedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	assert.True(t, manager.IsSaved("run-1"))
	assert.Equal(t, 1, manager.GetSavedCount())
}

func TestLoadMissingResult(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = manager.LoadResult("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveResultRejectsBadRunIDs(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = manager.SaveResult(nil)
	assert.Error(t, err)

	_, err = manager.SaveResult(sampleResult(""))
	assert.Error(t, err)

	_, err = manager.SaveResult(sampleResult("../escape"))
	assert.Error(t, err)
}

func TestManagerIndexesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old-run.json"), []byte(`{"run_id":"old-run"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	manager, err := NewManager(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-run"}, manager.ListRunIDs())

	_, err = manager.SaveResult(sampleResult("new-run"))
	require.NoError(t, err)
	assert.Equal(t, []string{"new-run", "old-run"}, manager.ListRunIDs())

	// Files written by another process are picked up lazily
	require.NoError(t, os.WriteFile(filepath.Join(dir, "external.json"), []byte(`{}`), 0644))
	assert.True(t, manager.IsSaved("external"))
}

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "threads")
	manager, err := NewManager(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, manager.GetOutputDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
