// Package xapi is a client for the subset of the X API v2 that thread
// reconstruction needs: the authenticated user, single post lookup and
// recent search.
//
// Direct replies to a post are found with the search operator
// in_reply_to_tweet_id. Every request passes through a ratelimit.Limiter;
// a 429 response pauses the limiter until the x-rate-limit-reset time.
// Search and session checks are retried with the configured policy, post
// and reply fetches are attempted once so a failing branch can be pruned
// quickly.
//
// The xapitest subpackage provides an in-memory fake of these endpoints.
package xapi
