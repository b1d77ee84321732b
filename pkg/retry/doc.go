// Package retry provides exponential backoff and retry logic for transient
// X API failures.
//
// Only whole-run operations go through it (search and session checks).
// Individual post and reply fetches are never retried: a failed fetch
// prunes that branch of the thread instead.
//
// Basic usage:
//
//	cfg := retry.FromConfig(appCfg.Retry, log)
//	posts, err := retry.DoWithResult(ctx, cfg, func(ctx context.Context) ([]models.Post, error) {
//		return client.searchOnce(ctx, query, mode)
//	})
//
// Rate limit, network and server errors each get their own backoff
// (see ErrorTypeBackoff). Authentication, not-found and parsing errors are
// returned immediately.
package retry
