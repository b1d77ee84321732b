package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	errs "threadscraper/pkg/errors"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/models"
	"threadscraper/pkg/thread"
)

// Runner reconstructs the threads matching a query
type Runner interface {
	Run(ctx context.Context, query string, mode models.SearchMode) (*thread.Result, error)
}

// Saver persists a result and returns where it was written
type Saver interface {
	SaveResult(res *thread.Result) (string, error)
}

// ThreadsOptions configure the threads handler
type ThreadsOptions struct {
	// DefaultMode applies when the request carries no mode
	DefaultMode models.SearchMode
	// RunTimeout bounds session verification and search
	RunTimeout time.Duration
	// Saver, if set, receives every successful result
	Saver Saver
}

// Threads returns the handler of GET /v1/threads?q=&mode=
func Threads(runner Runner, opts ThreadsOptions, log logger.Logger) http.HandlerFunc {
	if opts.DefaultMode == "" {
		opts.DefaultMode = models.SearchModeTop
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rid := RequestIDFromContext(r.Context())

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			badRequest(w, "MISSING_QUERY", "q is required", rid, nil)
			return
		}

		mode := opts.DefaultMode
		if raw := r.URL.Query().Get("mode"); raw != "" {
			parsed, err := models.ParseSearchMode(raw)
			if err != nil {
				badRequest(w, "INVALID_MODE", err.Error(), rid, map[string]any{"allowed": []string{"top", "latest"}})
				return
			}
			mode = parsed
		}

		ctx := r.Context()
		if opts.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.RunTimeout)
			defer cancel()
		}

		res, err := runner.Run(ctx, query, mode)
		if err != nil {
			reqLog := log.WithContext(r.Context()).WithError(err)
			switch {
			case errs.IsAuth(err):
				reqLog.Warn("Thread run rejected: upstream credentials invalid")
				unauthorized(w, "upstream credentials were rejected", rid)
			case errors.Is(err, context.DeadlineExceeded):
				reqLog.Warn("Thread run timed out")
				WriteError(w, http.StatusGatewayTimeout, "TIMEOUT", "thread run timed out", rid, nil)
			default:
				reqLog.Error("Thread run failed")
				WriteError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "upstream unavailable", rid, nil)
			}
			return
		}

		if opts.Saver != nil {
			if path, err := opts.Saver.SaveResult(res); err != nil {
				log.WithContext(r.Context()).WithError(err).Warn("Failed to save result")
			} else {
				log.WithContext(r.Context()).DebugWithFields("Result saved", map[string]interface{}{"path": path})
			}
		}

		WriteJSON(w, http.StatusOK, res)
	}
}
