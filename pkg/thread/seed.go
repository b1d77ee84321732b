package thread

import (
	"strings"

	"threadscraper/pkg/config"
	"threadscraper/pkg/models"
)

// DefaultMarker is the text that identifies the first post of a thread
const DefaultMarker = "🧵"

// Marker decides whether a search result starts a thread
type Marker interface {
	Match(p models.Post) bool
}

// MarkerFunc adapts a function to the Marker interface
type MarkerFunc func(p models.Post) bool

// Match calls f(p)
func (f MarkerFunc) Match(p models.Post) bool {
	return f(p)
}

// ContainsText matches posts whose text contains s. An empty s matches
// every post.
func ContainsText(s string) Marker {
	return MarkerFunc(func(p models.Post) bool {
		return strings.Contains(p.Text, s)
	})
}

// ByAuthor matches posts written by handle. The comparison ignores case and
// a leading "@" and accepts either the handle or the display name.
func ByAuthor(handle string) Marker {
	want := strings.TrimPrefix(strings.TrimSpace(handle), "@")
	return MarkerFunc(func(p models.Post) bool {
		if want == "" {
			return false
		}
		return strings.EqualFold(p.AuthorName, want) || strings.EqualFold(p.AuthorDisplay, want)
	})
}

// AllOf matches posts accepted by every marker
func AllOf(markers ...Marker) Marker {
	return MarkerFunc(func(p models.Post) bool {
		for _, m := range markers {
			if !m.Match(p) {
				return false
			}
		}
		return true
	})
}

// MarkerFromConfig builds the seed marker from the seeds configuration
func MarkerFromConfig(cfg config.SeedsConfig) Marker {
	markers := []Marker{ContainsText(cfg.Marker)}
	if cfg.Author != "" {
		markers = append(markers, ByAuthor(cfg.Author))
	}
	if len(markers) == 1 {
		return markers[0]
	}
	return AllOf(markers...)
}

// SelectSeeds returns the posts matched by marker, in their original order
func SelectSeeds(posts []models.Post, marker Marker) []models.Post {
	if marker == nil {
		marker = ContainsText(DefaultMarker)
	}

	var seeds []models.Post
	for _, p := range posts {
		if marker.Match(p) {
			seeds = append(seeds, p)
		}
	}
	return seeds
}

// FirstN returns at most the first k posts
func FirstN(posts []models.Post, k int) []models.Post {
	if k <= 0 {
		return nil
	}
	if k > len(posts) {
		k = len(posts)
	}
	out := make([]models.Post, k)
	copy(out, posts[:k])
	return out
}

// uniqueByID drops posts without an ID and later duplicates of an ID
func uniqueByID(posts []models.Post) []models.Post {
	seen := make(map[string]struct{}, len(posts))
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if p.ID == "" {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
