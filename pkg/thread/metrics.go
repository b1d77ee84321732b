package thread

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a reply is not followed
const (
	skipMissingID     = "missing_id"
	skipMissingAuthor = "missing_author"
	skipOtherAuthor   = "other_author"
	skipFanOutCap     = "fan_out_cap"
)

var (
	// runsTotal counts reconstruction runs.
	// Labels: outcome (ok, fallback, empty, search_error, auth_error)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "threadscraper",
		Subsystem: "engine",
		Name:      "runs_total",
		Help:      "Total reconstruction runs by outcome",
	}, []string{"outcome"})

	// postsVisited counts posts expanded by the engine
	postsVisited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "threadscraper",
		Subsystem: "engine",
		Name:      "posts_visited_total",
		Help:      "Total posts expanded across all runs",
	})

	// duplicatesSuppressed counts entries dropped by adjacent-duplicate suppression
	duplicatesSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "threadscraper",
		Subsystem: "engine",
		Name:      "duplicates_suppressed_total",
		Help:      "Total entries not appended because they repeated the previous text",
	})

	// repliesSkipped counts replies that were not followed.
	// Labels: reason (missing_id, missing_author, other_author, fan_out_cap)
	repliesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "threadscraper",
		Subsystem: "engine",
		Name:      "replies_skipped_total",
		Help:      "Total replies not followed, by reason",
	}, []string{"reason"})

	// branchesPruned counts branches that ended on a fetch error.
	// Labels: op (fetch_replies, fetch_post), error_type
	branchesPruned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "threadscraper",
		Subsystem: "engine",
		Name:      "branches_pruned_total",
		Help:      "Total traversal branches pruned after a failed fetch",
	}, []string{"op", "error_type"})

	// fetchDuration measures how long a worker spent on one post
	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "threadscraper",
		Subsystem: "engine",
		Name:      "fetch_duration_seconds",
		Help:      "Time to fetch a post and its replies",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	// runDuration measures end-to-end run latency
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "threadscraper",
		Subsystem: "engine",
		Name:      "run_duration_seconds",
		Help:      "Reconstruction run latency in seconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})
)
