package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"threadscraper/pkg/logger"
	"threadscraper/pkg/models"
)

// Operations reported on a failed job
const (
	OpFetchReplies = "fetch_replies"
	OpFetchPost    = "fetch_post"
)

// ErrPoolStopped is returned when work is submitted to a stopped pool
var ErrPoolStopped = errors.New("fetch pool is stopped")

// Job asks a worker to load a post together with its direct replies
type Job struct {
	Ctx    context.Context
	PostID string
	RunID  string

	reply chan Result
}

// Result is the outcome of a Job. On failure Op names the call that failed.
type Result struct {
	Job      Job
	Post     *models.Post
	Replies  []models.Post
	Err      error
	Op       string
	Duration time.Duration
	WorkerID int
}

// Pool runs fetches against a Source on a fixed number of workers, so at
// most that many upstream requests are in flight at once.
type Pool struct {
	numWorkers int
	jobQueue   chan Job
	wg         sync.WaitGroup
	source     models.Source
	logger     logger.Logger

	mu      sync.RWMutex
	started bool
	stopped bool

	completed atomic.Int64
	failed    atomic.Int64
}

// NewPool creates a new fetch pool
func NewPool(numWorkers int, source models.Source, log logger.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job, numWorkers*2),
		source:     source,
		logger:     log,
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	p.logger.DebugWithFields("Starting fetch pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the queue and waits for queued jobs to finish
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobQueue)
	p.mu.Unlock()

	p.wg.Wait()

	p.logger.DebugWithFields("Fetch pool stopped", map[string]interface{}{
		"completed": p.completed.Load(),
		"failed":    p.failed.Load(),
	})
}

// Submit queues a job. The result is delivered on the returned channel.
func (p *Pool) Submit(job Job) (<-chan Result, error) {
	if job.Ctx == nil {
		job.Ctx = context.Background()
	}
	job.reply = make(chan Result, 1)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return nil, ErrPoolStopped
	}

	select {
	case p.jobQueue <- job:
		return job.reply, nil
	case <-job.Ctx.Done():
		return nil, job.Ctx.Err()
	}
}

// Fetch submits a job for postID and waits for its result
func (p *Pool) Fetch(ctx context.Context, runID, postID string) Result {
	job := Job{Ctx: ctx, PostID: postID, RunID: runID}

	reply, err := p.Submit(job)
	if err != nil {
		return Result{Job: job, Err: fmt.Errorf("submit fetch: %w", err), Op: OpFetchReplies}
	}

	select {
	case res := <-reply:
		return res
	case <-ctx.Done():
		return Result{Job: job, Err: ctx.Err(), Op: OpFetchReplies}
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		res := p.process(job, id)

		if res.Err != nil {
			p.failed.Add(1)
		} else {
			p.completed.Add(1)
		}
		job.reply <- res
	}
}

// process loads the replies of a post and then the post itself
func (p *Pool) process(job Job, workerID int) Result {
	start := time.Now()
	res := Result{Job: job, WorkerID: workerID}

	replies, err := p.source.FetchReplies(job.Ctx, job.PostID)
	if err != nil {
		res.Err = err
		res.Op = OpFetchReplies
		res.Duration = time.Since(start)
		return res
	}
	res.Replies = replies

	post, err := p.source.FetchPost(job.Ctx, job.PostID)
	if err != nil {
		res.Err = err
		res.Op = OpFetchPost
		res.Duration = time.Since(start)
		return res
	}
	if post == nil {
		res.Err = fmt.Errorf("post %s: empty response", job.PostID)
		res.Op = OpFetchPost
		res.Duration = time.Since(start)
		return res
	}
	res.Post = post
	res.Duration = time.Since(start)

	p.logger.DebugWithFields("Fetched post", map[string]interface{}{
		"worker_id": workerID,
		"run_id":    job.RunID,
		"post_id":   job.PostID,
		"replies":   len(replies),
		"duration":  res.Duration,
	})

	return res
}
