package models

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Post is a single post as returned by the upstream source.
// Posts are immutable once fetched.
type Post struct {
	ID             string    `json:"id" yaml:"id"`
	AuthorID       string    `json:"author_id" yaml:"author_id"`
	AuthorName     string    `json:"author_name,omitempty" yaml:"author_name,omitempty"`
	AuthorDisplay  string    `json:"author_display,omitempty" yaml:"author_display,omitempty"`
	Text           string    `json:"text" yaml:"text"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	ConversationID string    `json:"conversation_id,omitempty" yaml:"conversation_id,omitempty"`
	InReplyToID    string    `json:"in_reply_to_id,omitempty" yaml:"in_reply_to_id,omitempty"`
}

// SameAuthor reports whether p and other were written by the same, known author
func (p Post) SameAuthor(other Post) bool {
	return p.AuthorID != "" && p.AuthorID == other.AuthorID
}

// URL returns the canonical web link of the post
func (p Post) URL() string {
	handle := p.AuthorName
	if handle == "" {
		handle = "i/web"
	}
	return fmt.Sprintf("https://x.com/%s/status/%s", handle, p.ID)
}

// SearchMode selects how search results are ranked
type SearchMode string

const (
	SearchModeTop    SearchMode = "top"
	SearchModeLatest SearchMode = "latest"
)

// ParseSearchMode parses a search mode, case-insensitively
func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(strings.TrimSpace(s))) {
	case SearchModeTop, "":
		return SearchModeTop, nil
	case SearchModeLatest:
		return SearchModeLatest, nil
	default:
		return "", fmt.Errorf("unknown search mode %q (expected top or latest)", s)
	}
}

// Source retrieves posts and their direct replies from an upstream service.
// Implementations must be safe for concurrent use.
type Source interface {
	// FetchPost returns a single post by ID
	FetchPost(ctx context.Context, id string) (*Post, error)

	// FetchReplies returns the direct replies to a post, in source order
	FetchReplies(ctx context.Context, id string) ([]Post, error)

	// Search returns posts matching query, ranked according to mode
	Search(ctx context.Context, query string, mode SearchMode) ([]Post, error)
}
