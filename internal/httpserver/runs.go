package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"threadscraper/pkg/logger"
	"threadscraper/pkg/storage"
	"threadscraper/pkg/thread"
)

// RunStore reads saved results
type RunStore interface {
	ListRunIDs() []string
	IsSaved(runID string) bool
	LoadResult(runID string) (*thread.Result, error)
}

// RunList is the body of GET /v1/runs
type RunList struct {
	Runs  []string `json:"runs"`
	Count int      `json:"count"`
}

// MountRuns registers GET /v1/runs and GET /v1/runs/{id}
func MountRuns(r chi.Router, store RunStore, log logger.Logger) {
	if log == nil {
		log = logger.GetLogger()
	}

	r.Get("/v1/runs", func(w http.ResponseWriter, _ *http.Request) {
		ids := store.ListRunIDs()
		WriteJSON(w, http.StatusOK, RunList{Runs: ids, Count: len(ids)})
	})

	r.Get("/v1/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		rid := RequestIDFromContext(r.Context())
		id := chi.URLParam(r, "id")

		if strings.ContainsAny(id, `/\`) || !store.IsSaved(id) {
			WriteError(w, http.StatusNotFound, "RUN_NOT_FOUND", "no saved run with this id", rid, map[string]any{"run_id": id})
			return
		}

		res, err := store.LoadResult(id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "RUN_NOT_FOUND", "no saved run with this id", rid, map[string]any{"run_id": id})
				return
			}
			log.WithContext(r.Context()).WithError(err).WithField("run_id", id).Error("Failed to load saved run")
			internal(w, rid)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	})
}
