package xapi

import (
	"strings"
	"time"

	"threadscraper/pkg/models"
)

// Tweet is a post object as returned by the v2 API
type Tweet struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	AuthorID         string            `json:"author_id,omitempty"`
	ConversationID   string            `json:"conversation_id,omitempty"`
	CreatedAt        *time.Time        `json:"created_at,omitempty"`
	ReferencedTweets []ReferencedTweet `json:"referenced_tweets,omitempty"`
}

// ReferencedTweet links a tweet to the one it replies to, quotes or retweets
type ReferencedTweet struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// User is a user object as returned by the v2 API
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Includes carries expanded objects referenced from data
type Includes struct {
	Users []User `json:"users,omitempty"`
}

// APIError is an entry of the "errors" array of a v2 response
type APIError struct {
	Title        string `json:"title"`
	Detail       string `json:"detail"`
	Type         string `json:"type"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
}

// TweetResponse is the body of GET /2/tweets/:id
type TweetResponse struct {
	Data     *Tweet     `json:"data,omitempty"`
	Includes Includes   `json:"includes,omitempty"`
	Errors   []APIError `json:"errors,omitempty"`
}

// SearchMeta describes a page of search results
type SearchMeta struct {
	ResultCount int    `json:"result_count"`
	NewestID    string `json:"newest_id,omitempty"`
	OldestID    string `json:"oldest_id,omitempty"`
	NextToken   string `json:"next_token,omitempty"`
}

// SearchResponse is the body of GET /2/tweets/search/recent
type SearchResponse struct {
	Data     []Tweet    `json:"data,omitempty"`
	Includes Includes   `json:"includes,omitempty"`
	Meta     SearchMeta `json:"meta"`
	Errors   []APIError `json:"errors,omitempty"`
}

// UserResponse is the body of GET /2/users/me
type UserResponse struct {
	Data   *User      `json:"data,omitempty"`
	Errors []APIError `json:"errors,omitempty"`
}

func errorDetail(errs []APIError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Detail != "" {
			parts = append(parts, e.Detail)
		} else {
			parts = append(parts, e.Title)
		}
	}
	return strings.Join(parts, "; ")
}

// toPost converts a v2 tweet, resolving its author from users
func toPost(t Tweet, users map[string]User) models.Post {
	p := models.Post{
		ID:             t.ID,
		AuthorID:       t.AuthorID,
		Text:           t.Text,
		ConversationID: t.ConversationID,
	}
	if t.CreatedAt != nil {
		p.CreatedAt = *t.CreatedAt
	}
	if u, ok := users[t.AuthorID]; ok {
		p.AuthorName = u.Username
		p.AuthorDisplay = u.Name
	}
	for _, ref := range t.ReferencedTweets {
		if ref.Type == "replied_to" {
			p.InReplyToID = ref.ID
			break
		}
	}
	return p
}

func indexUsers(inc Includes) map[string]User {
	users := make(map[string]User, len(inc.Users))
	for _, u := range inc.Users {
		users[u.ID] = u
	}
	return users
}
