package thread

import (
	"sort"
	"sync"
	"time"

	"threadscraper/pkg/models"
)

// Entry is one post attached to a thread
type Entry struct {
	PostID    string    `json:"post_id" yaml:"post_id"`
	Text      string    `json:"text" yaml:"text"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// Thread is the ordered list of entries grown from a single root post.
// Entries are only ever appended.
type Thread struct {
	Root     models.Post
	Fallback bool

	mu      sync.Mutex
	entries []Entry
}

// Entries returns a copy of the thread's entries in append order
func (t *Thread) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Store holds the traversal state of a single run: the visited set and
// the threads being assembled. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	visited map[string]struct{}
	threads []*Thread
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{visited: make(map[string]struct{})}
}

// NewThread registers a thread rooted at root. Threads keep their
// registration order in snapshots.
func (s *Store) NewThread(root models.Post, fallback bool) *Thread {
	t := &Thread{Root: root, Fallback: fallback}

	s.mu.Lock()
	s.threads = append(s.threads, t)
	s.mu.Unlock()

	return t
}

// TryMarkVisited marks id as visited. It returns true only for the caller
// that performed the transition; empty IDs are never marked.
func (s *Store) TryMarkVisited(id string) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.visited[id]; ok {
		return false
	}
	s.visited[id] = struct{}{}
	return true
}

// IsVisited reports whether id has been marked
func (s *Store) IsVisited(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.visited[id]
	return ok
}

// VisitedCount returns the size of the visited set
func (s *Store) VisitedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visited)
}

// AppendIfNewTail appends e to t unless t's last entry has the same text.
// It reports whether e was appended.
func (s *Store) AppendIfNewTail(t *Thread, e Entry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.entries); n > 0 && t.entries[n-1].Text == e.Text {
		return false
	}
	t.entries = append(t.entries, e)
	return true
}

// Threads returns the registered threads
func (s *Store) Threads() []*Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Thread, len(s.threads))
	copy(out, s.threads)
	return out
}

// Snapshot converts the non-empty threads into results. With chronological
// set, entries are stable-sorted by CreatedAt; otherwise append order is kept.
func (s *Store) Snapshot(chronological bool) []ThreadResult {
	var out []ThreadResult
	for _, t := range s.Threads() {
		entries := t.Entries()
		if len(entries) == 0 {
			continue
		}
		if chronological {
			sort.SliceStable(entries, func(i, j int) bool {
				return entries[i].CreatedAt.Before(entries[j].CreatedAt)
			})
		}

		texts := make([]string, len(entries))
		for i, e := range entries {
			texts[i] = e.Text
		}

		out = append(out, ThreadResult{
			RootID:   t.Root.ID,
			Author:   t.Root.AuthorName,
			URL:      t.Root.URL(),
			Fallback: t.Fallback,
			Texts:    texts,
			Entries:  entries,
		})
	}
	return out
}
