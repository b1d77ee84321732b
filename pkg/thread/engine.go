package thread

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"threadscraper/internal/fetcher"
	"threadscraper/pkg/config"
	errs "threadscraper/pkg/errors"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/models"
)

// SessionVerifier is implemented by sources that must confirm their
// credentials before a run starts
type SessionVerifier interface {
	VerifySession(ctx context.Context) error
}

// Options control a reconstruction run
type Options struct {
	// Marker selects seed posts from the search results
	Marker Marker
	// MaxRepliesPerPost caps how many same-author replies are followed per post
	MaxRepliesPerPost int
	// FallbackSeeds is how many search results are returned when no seed matches
	FallbackSeeds int
	// Workers bounds the number of concurrent upstream fetches
	Workers int
	// Chronological sorts thread entries by creation time in the result
	Chronological bool
}

// DefaultOptions returns the default engine options
func DefaultOptions() Options {
	return Options{
		Marker:            ContainsText(DefaultMarker),
		MaxRepliesPerPost: 15,
		FallbackSeeds:     3,
		Workers:           8,
	}
}

// OptionsFromConfig builds engine options from the application configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Marker:            MarkerFromConfig(cfg.Seeds),
		MaxRepliesPerPost: cfg.Engine.MaxRepliesPerPost,
		FallbackSeeds:     cfg.Engine.FallbackSeeds,
		Workers:           cfg.Engine.FetchWorkers,
		Chronological:     cfg.Engine.Chronological,
	}
}

// Engine reconstructs threads from a Source
type Engine struct {
	source models.Source
	opts   Options
	logger logger.Logger
}

// NewEngine creates an Engine. Zero-valued options fall back to defaults.
func NewEngine(source models.Source, opts Options, log logger.Logger) *Engine {
	def := DefaultOptions()
	if opts.Marker == nil {
		opts.Marker = def.Marker
	}
	if opts.MaxRepliesPerPost <= 0 {
		opts.MaxRepliesPerPost = def.MaxRepliesPerPost
	}
	if opts.FallbackSeeds <= 0 {
		opts.FallbackSeeds = def.FallbackSeeds
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Engine{
		source: source,
		opts:   opts,
		logger: log.WithField("component", "engine"),
	}
}

// Run searches for query, selects seeds and reconstructs a thread for each
// of them. Authentication failures are returned; any other search failure
// yields an empty result. When no result matches the seed marker, the first
// FallbackSeeds results are returned as single-entry threads.
func (e *Engine) Run(ctx context.Context, query string, mode models.SearchMode) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := e.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"run_id": runID,
		"query":  query,
		"mode":   string(mode),
	})

	if v, ok := e.source.(SessionVerifier); ok {
		if err := v.VerifySession(ctx); err != nil {
			runsTotal.WithLabelValues("auth_error").Inc()
			log.WithError(err).Error("Session verification failed")
			return nil, fmt.Errorf("verify session: %w", err)
		}
	}

	posts, err := e.source.Search(ctx, query, mode)
	if err != nil {
		if errs.IsAuth(err) {
			runsTotal.WithLabelValues("auth_error").Inc()
			log.WithError(err).Error("Search rejected credentials")
			return nil, fmt.Errorf("search: %w", err)
		}
		runsTotal.WithLabelValues("search_error").Inc()
		log.WithError(err).Warn("Search failed, returning empty result")
		return e.finish(&Result{
			RunID:     runID,
			Query:     query,
			Mode:      mode,
			StartedAt: started,
		}, log), nil
	}

	seeds := uniqueByID(SelectSeeds(posts, e.opts.Marker))
	log.DebugWithFields("Search completed", map[string]interface{}{
		"results": len(posts),
		"seeds":   len(seeds),
	})

	if len(seeds) == 0 {
		res := e.fallback(runID, posts)
		res.Query = query
		res.Mode = mode
		res.StartedAt = started
		if len(res.Threads) == 0 {
			runsTotal.WithLabelValues("empty").Inc()
		} else {
			runsTotal.WithLabelValues("fallback").Inc()
		}
		log.WarnWithFields("No seed matched, returning first search results", map[string]interface{}{
			"returned": len(res.Threads),
		})
		return e.finish(res, log), nil
	}

	res := e.reconstruct(ctx, runID, seeds, log)
	res.Query = query
	res.Mode = mode
	res.StartedAt = started
	runsTotal.WithLabelValues("ok").Inc()
	return e.finish(res, log), nil
}

// Reconstruct builds one thread per seed. Seeds sharing an ID are
// collapsed to the first occurrence.
func (e *Engine) Reconstruct(ctx context.Context, seeds []models.Post) *Result {
	started := time.Now()
	runID := uuid.NewString()
	log := e.logger.WithContext(ctx).WithField("run_id", runID)

	res := e.reconstruct(ctx, runID, uniqueByID(seeds), log)
	res.StartedAt = started
	return e.finish(res, log)
}

func (e *Engine) finish(res *Result, log logger.Logger) *Result {
	res.FinishedAt = time.Now()
	runDuration.Observe(res.Duration().Seconds())
	logger.LogRunSummary(log, res.RunID, res.Query, len(res.Threads), res.Visited, len(res.Pruned), res.Duration())
	return res
}

// fallback returns the first search results verbatim, without expansion
func (e *Engine) fallback(runID string, posts []models.Post) *Result {
	store := NewStore()
	for _, p := range FirstN(posts, e.opts.FallbackSeeds) {
		th := store.NewThread(p, true)
		store.TryMarkVisited(p.ID)
		store.AppendIfNewTail(th, entryFor(p))
	}

	return &Result{
		RunID:    runID,
		Threads:  store.Snapshot(false),
		Visited:  store.VisitedCount(),
		Fallback: true,
	}
}

func (e *Engine) reconstruct(ctx context.Context, runID string, seeds []models.Post, log logger.Logger) *Result {
	// Runs always complete; values such as the request ID are kept for logging
	ctx = context.WithoutCancel(ctx)

	pool := fetcher.NewPool(e.opts.Workers, e.source, log)
	pool.Start()
	defer pool.Stop()

	r := &run{
		id:         runID,
		store:      NewStore(),
		pool:       pool,
		maxReplies: e.opts.MaxRepliesPerPost,
		logger:     log,
	}

	threads := make([]*Thread, len(seeds))
	for i, seed := range seeds {
		threads[i] = r.store.NewThread(seed, false)
	}

	var g errgroup.Group
	for i, seed := range seeds {
		th := threads[i]
		g.Go(func() error {
			r.expand(ctx, th, seed)
			return nil
		})
	}
	_ = g.Wait()

	return &Result{
		RunID:   runID,
		Threads: r.store.Snapshot(e.opts.Chronological),
		Pruned:  r.prunedEvents(),
		Visited: r.store.VisitedCount(),
	}
}

// run is the state of a single traversal
type run struct {
	id         string
	store      *Store
	pool       *fetcher.Pool
	maxReplies int
	logger     logger.Logger

	mu     sync.Mutex
	pruned []PruneEvent
}

// expand visits post, attaches it to th and recurses into the author's
// own replies. It returns once the whole subtree has been visited.
func (r *run) expand(ctx context.Context, th *Thread, post models.Post) {
	if !r.store.TryMarkVisited(post.ID) {
		return
	}
	postsVisited.Inc()

	if !r.store.AppendIfNewTail(th, entryFor(post)) {
		duplicatesSuppressed.Inc()
	}

	res := r.pool.Fetch(ctx, r.id, post.ID)
	fetchDuration.Observe(res.Duration.Seconds())
	if res.Err != nil {
		r.prune(th, post.ID, res.Op, res.Err)
		return
	}

	children := r.sameAuthorReplies(*res.Post, res.Replies)
	if len(children) == 0 {
		return
	}

	var g errgroup.Group
	for _, child := range children {
		g.Go(func() error {
			r.expand(ctx, th, child)
			return nil
		})
	}
	_ = g.Wait()
}

// sameAuthorReplies keeps replies written by parent's author, in source
// order, up to the fan-out cap
func (r *run) sameAuthorReplies(parent models.Post, replies []models.Post) []models.Post {
	if parent.AuthorID == "" {
		for range replies {
			repliesSkipped.WithLabelValues(skipMissingAuthor).Inc()
		}
		return nil
	}

	kept := make([]models.Post, 0, min(len(replies), r.maxReplies))
	for _, reply := range replies {
		var reason string
		switch {
		case reply.ID == "":
			reason = skipMissingID
		case reply.AuthorID == "":
			reason = skipMissingAuthor
		case !parent.SameAuthor(reply):
			reason = skipOtherAuthor
		case len(kept) >= r.maxReplies:
			reason = skipFanOutCap
		}
		if reason != "" {
			repliesSkipped.WithLabelValues(reason).Inc()
			if reason != skipOtherAuthor {
				r.logger.DebugWithFields("Reply skipped", map[string]interface{}{
					"parent_id": parent.ID,
					"reply_id":  reply.ID,
					"reason":    reason,
				})
			}
			continue
		}
		kept = append(kept, reply)
	}
	return kept
}

// prune records a failed fetch. The branch below postID is abandoned;
// siblings and ancestors keep going.
func (r *run) prune(th *Thread, postID, op string, err error) {
	errType := errs.TypeOf(err)
	branchesPruned.WithLabelValues(op, string(errType)).Inc()
	logger.LogPrunedBranch(r.logger, r.id, th.Root.ID, postID, op, err)

	r.mu.Lock()
	r.pruned = append(r.pruned, PruneEvent{
		RunID:     r.id,
		RootID:    th.Root.ID,
		PostID:    postID,
		Op:        op,
		Cause:     err.Error(),
		ErrorType: string(errType),
		At:        time.Now(),
	})
	r.mu.Unlock()
}

func (r *run) prunedEvents() []PruneEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PruneEvent, len(r.pruned))
	copy(out, r.pruned)
	return out
}

func entryFor(p models.Post) Entry {
	return Entry{PostID: p.ID, Text: p.Text, CreatedAt: p.CreatedAt}
}
