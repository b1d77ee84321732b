package thread

import (
	"context"
	"fmt"
	"sync"
	"time"

	errs "threadscraper/pkg/errors"
	"threadscraper/pkg/models"
)

// graphSource is an in-memory Source built from posts and reply edges
type graphSource struct {
	mu          sync.Mutex
	posts       map[string]models.Post
	replies     map[string][]string
	failReplies map[string]error
	failPost    map[string]error
	search      []models.Post
	searchErr   error
	delay       time.Duration

	replyCalls  map[string]int
	postCalls   map[string]int
	searchCalls int
}

func newGraphSource() *graphSource {
	return &graphSource{
		posts:       make(map[string]models.Post),
		replies:     make(map[string][]string),
		failReplies: make(map[string]error),
		failPost:    make(map[string]error),
		replyCalls:  make(map[string]int),
		postCalls:   make(map[string]int),
	}
}

// add registers a post written by author as a reply to parent ("" for none)
func (g *graphSource) add(id, author, text, parent string) models.Post {
	p := models.Post{
		ID:          id,
		AuthorID:    author,
		AuthorName:  "user_" + author,
		Text:        text,
		InReplyToID: parent,
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, len(g.posts), 0, time.UTC),
	}
	g.posts[id] = p
	if parent != "" {
		g.replies[parent] = append(g.replies[parent], id)
	}
	return p
}

func (g *graphSource) FetchPost(ctx context.Context, id string) (*models.Post, error) {
	g.mu.Lock()
	g.postCalls[id]++
	err := g.failPost[id]
	p, ok := g.posts[id]
	g.mu.Unlock()

	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.ErrorTypeNotFound, 404, fmt.Sprintf("post %s not found", id))
	}
	return &p, nil
}

func (g *graphSource) FetchReplies(ctx context.Context, id string) ([]models.Post, error) {
	g.mu.Lock()
	g.replyCalls[id]++
	err := g.failReplies[id]
	var out []models.Post
	for _, rid := range g.replies[id] {
		out = append(out, g.posts[rid])
	}
	g.mu.Unlock()

	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *graphSource) Search(ctx context.Context, query string, mode models.SearchMode) ([]models.Post, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searchCalls++
	return g.search, g.searchErr
}

func (g *graphSource) repliesFetched(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.replyCalls[id]
}

// verifyingSource adds session verification to graphSource
type verifyingSource struct {
	*graphSource
	verifyErr error
}

func (v *verifyingSource) VerifySession(ctx context.Context) error {
	return v.verifyErr
}
