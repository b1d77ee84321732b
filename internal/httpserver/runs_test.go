package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadscraper/pkg/logger"
	"threadscraper/pkg/storage"
	"threadscraper/pkg/thread"
)

func runsRouter(t *testing.T) (http.Handler, *storage.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewManager(dir)
	require.NoError(t, err)

	r := newTestRouter()
	MountRuns(r, store, logger.NewNopLogger())
	return r, store, dir
}

func TestRunsListAndGet(t *testing.T) {
	r, store, _ := runsRouter(t)

	rr := serve(r, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var empty RunList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &empty))
	assert.Zero(t, empty.Count)

	for _, id := range []string{"run-b", "run-a"} {
		_, err := store.SaveResult(&thread.Result{
			RunID:   id,
			Query:   "golang",
			Threads: []thread.ThreadResult{{RootID: "1", Texts: []string{"🧵 " + id}}},
		})
		require.NoError(t, err)
	}

	rr = serve(r, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list RunList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, []string{"run-a", "run-b"}, list.Runs)
	assert.Equal(t, 2, list.Count)

	rr = serve(r, httptest.NewRequest(http.MethodGet, "/v1/runs/run-b", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res thread.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "run-b", res.RunID)
	assert.Equal(t, []string{"🧵 run-b"}, res.Threads[0].Texts)
}

func TestRunsGetMissing(t *testing.T) {
	r, _, _ := runsRouter(t)

	rr := serve(r, httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "RUN_NOT_FOUND", decodeError(t, rr).Code)
}

func TestRunsGetCorruptFile(t *testing.T) {
	r, _, dir := runsRouter(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))

	rr := serve(r, httptest.NewRequest(http.MethodGet, "/v1/runs/broken", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "INTERNAL", decodeError(t, rr).Code)
}
