package xapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"threadscraper/pkg/config"
	errs "threadscraper/pkg/errors"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/models"
	"threadscraper/pkg/ratelimit"
	"threadscraper/pkg/retry"
)

// Options configure a Client
type Options struct {
	BaseURL     string
	AccessToken string
	UserAgent   string
	Timeout     time.Duration
	MaxResults  int

	// Limiter throttles every request; nil means unlimited
	Limiter ratelimit.Limiter
	// Retry applies to Search and VerifySession only; nil disables retries
	Retry *retry.Config
	// HTTPClient overrides the default HTTP client
	HTTPClient *http.Client
}

// Client talks to the X API v2. It is safe for concurrent use; headers are
// fixed at construction.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	maxResults int
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
}

// NewClient creates a new X API client
func NewClient(opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "threadscraper/1.0"
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited()
	}
	if opts.Retry == nil {
		opts.Retry = &retry.Config{MaxAttempts: 1, Logger: log}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		httpClient: httpClient,
		headers: map[string]string{
			"User-Agent": opts.UserAgent,
			"Accept":     "application/json",
		},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		maxResults: opts.MaxResults,
		limiter:    opts.Limiter,
		retry:      opts.Retry,
		logger:     log.WithField("component", "xapi"),
	}
	if opts.AccessToken != "" {
		c.headers["Authorization"] = "Bearer " + opts.AccessToken
	}
	return c
}

// NewClientFromConfig creates a client with rate limiting and retries
// configured from cfg
func NewClientFromConfig(cfg *config.Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return NewClient(Options{
		BaseURL:     cfg.X.BaseURL,
		AccessToken: cfg.X.AccessToken,
		UserAgent:   cfg.X.UserAgent,
		Timeout:     cfg.X.Timeout,
		MaxResults:  cfg.Search.MaxResults,
		Limiter:     ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize),
		Retry:       retry.FromConfig(cfg.Retry, log),
	}, log)
}

// VerifySession checks that the configured credentials are accepted
func (c *Client) VerifySession(ctx context.Context) error {
	_, err := c.Me(ctx)
	return err
}

// Me returns the authenticated user
func (c *Client) Me(ctx context.Context) (*User, error) {
	if _, ok := c.headers["Authorization"]; !ok {
		return nil, errs.New(errs.ErrorTypeAuth, http.StatusUnauthorized, "no access token configured")
	}

	return retry.DoWithResult(ctx, c.retry, func(ctx context.Context) (*User, error) {
		var resp UserResponse
		if err := c.getJSON(ctx, MeEndpoint, nil, &resp); err != nil {
			return nil, err
		}
		if resp.Data == nil {
			return nil, errs.New(errs.ErrorTypeAuth, http.StatusUnauthorized, "session not recognised: "+errorDetail(resp.Errors))
		}
		c.logger.DebugWithFields("session verified", map[string]interface{}{
			"username": resp.Data.Username,
		})
		return resp.Data, nil
	})
}

// FetchPost fetches a single post. Failures are not retried.
func (c *Client) FetchPost(ctx context.Context, id string) (*models.Post, error) {
	var resp TweetResponse
	if err := c.getJSON(ctx, TweetPath(id), lookupParams(), &resp); err != nil {
		return nil, fmt.Errorf("fetch post %s: %w", id, err)
	}
	if resp.Data == nil {
		msg := errorDetail(resp.Errors)
		if msg == "" {
			msg = "empty response"
		}
		return nil, fmt.Errorf("fetch post %s: %w", id, errs.New(errs.ErrorTypeNotFound, http.StatusOK, msg))
	}

	post := toPost(*resp.Data, indexUsers(resp.Includes))
	return &post, nil
}

// FetchReplies fetches the direct replies to a post in the order the API
// returns them. Failures are not retried.
func (c *Client) FetchReplies(ctx context.Context, id string) ([]models.Post, error) {
	params := SearchParams(RepliesQuery(id), models.SearchModeLatest, MaxSearchResults)

	var resp SearchResponse
	if err := c.getJSON(ctx, SearchEndpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("fetch replies %s: %w", id, err)
	}

	users := indexUsers(resp.Includes)
	replies := make([]models.Post, 0, len(resp.Data))
	for _, t := range resp.Data {
		replies = append(replies, toPost(t, users))
	}
	return replies, nil
}

// Search returns posts matching query. Transient failures are retried
// according to the client's retry policy.
func (c *Client) Search(ctx context.Context, query string, mode models.SearchMode) ([]models.Post, error) {
	params := SearchParams(query, mode, c.maxResults)

	posts, err := retry.DoWithResult(ctx, c.retry, func(ctx context.Context) ([]models.Post, error) {
		var resp SearchResponse
		if err := c.getJSON(ctx, SearchEndpoint, params, &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 && len(resp.Errors) > 0 {
			return nil, errs.New(errs.ErrorTypeParsing, http.StatusOK, errorDetail(resp.Errors))
		}

		users := indexUsers(resp.Includes)
		out := make([]models.Post, 0, len(resp.Data))
		for _, t := range resp.Data {
			out = append(out, toPost(t, users))
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	c.logger.DebugWithFields("search completed", map[string]interface{}{
		"query":   query,
		"mode":    string(mode),
		"results": len(posts),
	})
	return posts, nil
}

// getJSON performs a rate-limited GET and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, target interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return errs.Wrap(err, errs.ErrorTypeNetwork, "rate limiter wait cancelled")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeUnknown, "failed to create request")
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: "failed to read response body",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          req.URL.Path,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: "failed to parse JSON",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	return nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.Path,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(err, errs.ErrorTypeNetwork, "network error")
	}

	logger.LogRequest(c.logger, req.Method, req.URL.Path, resp.StatusCode, duration)
	return resp, nil
}

// checkResponseStatus maps HTTP status codes onto typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errs.New(errs.ErrorTypeAuth, resp.StatusCode, "authentication rejected")
	case resp.StatusCode == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, resp.StatusCode, "resource not found")
	case resp.StatusCode == http.StatusTooManyRequests:
		var wait time.Duration
		if reset := rateLimitReset(resp.Header); !reset.IsZero() {
			c.limiter.PauseUntil(reset)
			wait = time.Until(reset).Round(time.Second)
		}
		logger.LogRateLimit(c.logger, resp.Request.URL.Path, wait)
		return errs.New(errs.ErrorTypeRateLimit, resp.StatusCode, "rate limit exceeded")
	case resp.StatusCode >= 500:
		return errs.New(errs.ErrorTypeServerError, resp.StatusCode, "server error")
	default:
		return errs.New(errs.ErrorTypeUnknown, resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}
}

// rateLimitReset reads the x-rate-limit-reset header (unix seconds)
func rateLimitReset(h http.Header) time.Time {
	v := h.Get("x-rate-limit-reset")
	if v == "" {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
