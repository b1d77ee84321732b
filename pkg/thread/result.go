package thread

import (
	"time"

	"threadscraper/pkg/models"
)

// PruneEvent records a branch that ended because a fetch failed
type PruneEvent struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	RootID    string    `json:"root_id" yaml:"root_id"`
	PostID    string    `json:"post_id" yaml:"post_id"`
	Op        string    `json:"op" yaml:"op"`
	Cause     string    `json:"cause" yaml:"cause"`
	ErrorType string    `json:"error_type" yaml:"error_type"`
	At        time.Time `json:"at" yaml:"at"`
}

// ThreadResult is a reconstructed thread as presented to callers
type ThreadResult struct {
	RootID   string   `json:"root_id" yaml:"root_id"`
	Author   string   `json:"author,omitempty" yaml:"author,omitempty"`
	URL      string   `json:"url" yaml:"url"`
	Fallback bool     `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	Texts    []string `json:"texts" yaml:"texts"`
	Entries  []Entry  `json:"entries" yaml:"entries"`
}

// Result is the outcome of a reconstruction run
type Result struct {
	RunID      string            `json:"run_id" yaml:"run_id"`
	Query      string            `json:"query" yaml:"query"`
	Mode       models.SearchMode `json:"mode" yaml:"mode"`
	Threads    []ThreadResult    `json:"threads" yaml:"threads"`
	Pruned     []PruneEvent      `json:"pruned,omitempty" yaml:"pruned,omitempty"`
	Visited    int               `json:"visited" yaml:"visited"`
	Fallback   bool              `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	StartedAt  time.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time         `json:"finished_at" yaml:"finished_at"`
}

// Duration returns how long the run took
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// TotalEntries returns the number of entries across all threads
func (r *Result) TotalEntries() int {
	n := 0
	for _, t := range r.Threads {
		n += len(t.Entries)
	}
	return n
}
