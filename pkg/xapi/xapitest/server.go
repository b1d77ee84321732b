// Package xapitest provides an in-memory fake of the X API v2 endpoints
// used by threadscraper, for tests.
package xapitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"threadscraper/pkg/xapi"
)

// Error injection keys
const (
	KeyMe     = "me"
	KeySearch = "search"
)

// KeyTweet returns the error/delay key for the lookup of id
func KeyTweet(id string) string { return "tweet:" + id }

// KeyReplies returns the error/delay key for the reply search of id
func KeyReplies(id string) string { return "replies:" + id }

// Server simulates the X API with realistic response shapes
type Server struct {
	server *httptest.Server
	token  string

	mu       sync.RWMutex
	tweets   map[string]xapi.Tweet
	order    []string
	users    map[string]xapi.User
	errors   map[string]int
	delays   map[string]time.Duration
	requests map[string]int

	requestCount  int32
	rateLimitHits int32
	rateLimitNext int32
	rateLimitUnix int64
}

// NewServer starts a fake API accepting token as its bearer token.
// An empty token accepts any request.
func NewServer(token string) *Server {
	s := &Server{
		token:    token,
		tweets:   make(map[string]xapi.Tweet),
		users:    make(map[string]xapi.User),
		errors:   make(map[string]int),
		delays:   make(map[string]time.Duration),
		requests: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Get(xapi.MeEndpoint, s.handleMe)
	r.Get(xapi.SearchEndpoint, s.handleSearch)
	r.Get("/2/tweets/{id}", s.handleTweet)

	s.server = httptest.NewServer(r)
	return s
}

// URL returns the base URL of the fake API
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts down the fake API
func (s *Server) Close() {
	s.server.Close()
}

// AddUser registers a user
func (s *Server) AddUser(id, username, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = xapi.User{ID: id, Username: username, Name: name}
}

// AddTweet registers a tweet. Tweets are returned by searches in the order
// they were added.
func (s *Server) AddTweet(t xapi.Tweet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tweets[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.tweets[t.ID] = t
}

// AddPost registers a tweet by authorID replying to parentID (empty for
// a top-level post). Creation times increase with insertion order.
func (s *Server) AddPost(id, authorID, text, parentID string) {
	s.mu.RLock()
	n := len(s.order)
	s.mu.RUnlock()

	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Minute)
	t := xapi.Tweet{
		ID:             id,
		Text:           text,
		AuthorID:       authorID,
		ConversationID: id,
		CreatedAt:      &created,
	}
	if parentID != "" {
		t.ReferencedTweets = []xapi.ReferencedTweet{{Type: "replied_to", ID: parentID}}
		s.mu.RLock()
		if parent, ok := s.tweets[parentID]; ok && parent.ConversationID != "" {
			t.ConversationID = parent.ConversationID
		}
		s.mu.RUnlock()
	}
	s.AddTweet(t)
}

// SetErrorResponse makes requests matching key fail with code
func (s *Server) SetErrorResponse(key string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[key] = code
}

// ClearErrorResponse removes an injected error
func (s *Server) ClearErrorResponse(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errors, key)
}

// SetDelay delays responses for key
func (s *Server) SetDelay(key string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[key] = d
}

// RateLimitNext answers the next n requests with 429 and an
// x-rate-limit-reset header of reset. A zero reset omits the header.
func (s *Server) RateLimitNext(n int, reset time.Time) {
	var unix int64
	if !reset.IsZero() {
		unix = reset.Unix()
	}
	atomic.StoreInt64(&s.rateLimitUnix, unix)
	atomic.StoreInt32(&s.rateLimitNext, int32(n))
}

// Requests returns how many requests were served for key
func (s *Server) Requests(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests[key]
}

// RequestCount returns the total number of requests received
func (s *Server) RequestCount() int {
	return int(atomic.LoadInt32(&s.requestCount))
}

// RateLimitHits returns the number of 429 responses sent
func (s *Server) RateLimitHits() int {
	return int(atomic.LoadInt32(&s.rateLimitHits))
}

// ResetCounters resets all request counters
func (s *Server) ResetCounters() {
	atomic.StoreInt32(&s.requestCount, 0)
	atomic.StoreInt32(&s.rateLimitHits, 0)
	s.mu.Lock()
	s.requests = make(map[string]int)
	s.mu.Unlock()
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.requestCount, 1)

		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"title":  "Unauthorized",
				"type":   "about:blank",
				"status": http.StatusUnauthorized,
				"detail": "Unauthorized",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// intercept records the request and applies delays, rate limits and
// injected errors. It reports whether a response was already written.
func (s *Server) intercept(w http.ResponseWriter, r *http.Request, key string) bool {
	s.mu.Lock()
	s.requests[key]++
	delay := s.delays[key]
	code := s.errors[key]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return true
		}
	}

	if s.takeRateLimit() {
		atomic.AddInt32(&s.rateLimitHits, 1)
		if unix := atomic.LoadInt64(&s.rateLimitUnix); unix != 0 {
			w.Header().Set("x-rate-limit-reset", strconv.FormatInt(unix, 10))
		}
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"title":  "Too Many Requests",
			"detail": "Too Many Requests",
			"status": http.StatusTooManyRequests,
		})
		return true
	}

	if code > 0 {
		writeJSON(w, code, map[string]interface{}{
			"title":  http.StatusText(code),
			"detail": fmt.Sprintf("injected failure for %s", key),
			"status": code,
		})
		return true
	}
	return false
}

func (s *Server) takeRateLimit() bool {
	for {
		n := atomic.LoadInt32(&s.rateLimitNext)
		if n <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&s.rateLimitNext, n, n-1) {
			return true
		}
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if s.intercept(w, r, KeyMe) {
		return
	}
	writeJSON(w, http.StatusOK, xapi.UserResponse{
		Data: &xapi.User{ID: "0", Username: "threadscraper", Name: "Thread Scraper"},
	})
}

func (s *Server) handleTweet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.intercept(w, r, KeyTweet(id)) {
		return
	}

	s.mu.RLock()
	t, ok := s.tweets[id]
	s.mu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusOK, xapi.TweetResponse{
			Errors: []xapi.APIError{{
				Title:        "Not Found Error",
				Detail:       fmt.Sprintf("Could not find tweet with id: [%s].", id),
				Type:         "https://api.twitter.com/2/problems/resource-not-found",
				ResourceType: "tweet",
				ResourceID:   id,
			}},
		})
		return
	}

	writeJSON(w, http.StatusOK, xapi.TweetResponse{
		Data:     &t,
		Includes: s.includes([]xapi.Tweet{t}),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	limit, err := strconv.Atoi(q.Get("max_results"))
	if err != nil || limit <= 0 {
		limit = xapi.MinSearchResults
	}

	var (
		key   string
		match func(xapi.Tweet) bool
	)
	if parent, ok := strings.CutPrefix(query, "in_reply_to_tweet_id:"); ok {
		key = KeyReplies(parent)
		match = func(t xapi.Tweet) bool { return repliedTo(t) == parent }
	} else {
		key = KeySearch
		needle := strings.ToLower(query)
		match = func(t xapi.Tweet) bool { return strings.Contains(strings.ToLower(t.Text), needle) }
	}

	if s.intercept(w, r, key) {
		return
	}

	s.mu.RLock()
	var found []xapi.Tweet
	for _, id := range s.order {
		if t := s.tweets[id]; match(t) {
			found = append(found, t)
		}
	}
	s.mu.RUnlock()

	if key == KeySearch && q.Get("sort_order") == "recency" {
		for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
			found[i], found[j] = found[j], found[i]
		}
	}
	if len(found) > limit {
		found = found[:limit]
	}

	resp := xapi.SearchResponse{
		Data:     found,
		Includes: s.includes(found),
		Meta:     xapi.SearchMeta{ResultCount: len(found)},
	}
	if len(found) > 0 {
		resp.Meta.NewestID = found[0].ID
		resp.Meta.OldestID = found[len(found)-1].ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) includes(tweets []xapi.Tweet) xapi.Includes {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var inc xapi.Includes
	seen := make(map[string]bool)
	for _, t := range tweets {
		if u, ok := s.users[t.AuthorID]; ok && !seen[u.ID] {
			seen[u.ID] = true
			inc.Users = append(inc.Users, u)
		}
	}
	return inc
}

func repliedTo(t xapi.Tweet) string {
	for _, ref := range t.ReferencedTweets {
		if ref.Type == "replied_to" {
			return ref.ID
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
