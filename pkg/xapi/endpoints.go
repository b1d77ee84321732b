package xapi

import (
	"fmt"
	"net/url"

	"threadscraper/pkg/models"
)

const (
	// DefaultBaseURL is the base URL of the X API
	DefaultBaseURL = "https://api.x.com"

	// MeEndpoint returns the authenticated user
	MeEndpoint = "/2/users/me"

	// TweetEndpoint is the endpoint pattern for a single tweet
	TweetEndpoint = "/2/tweets/%s"

	// SearchEndpoint searches tweets from the last seven days
	SearchEndpoint = "/2/tweets/search/recent"

	// MinSearchResults and MaxSearchResults bound max_results for search
	MinSearchResults = 10
	MaxSearchResults = 100

	tweetFields = "author_id,conversation_id,created_at,referenced_tweets"
	userFields  = "username,name"
)

// lookupParams are the field selections shared by tweet lookups and searches
func lookupParams() url.Values {
	params := url.Values{}
	params.Set("tweet.fields", tweetFields)
	params.Set("expansions", "author_id")
	params.Set("user.fields", userFields)
	return params
}

// TweetPath returns the path of the tweet lookup endpoint for id
func TweetPath(id string) string {
	return fmt.Sprintf(TweetEndpoint, url.PathEscape(id))
}

// SearchParams builds the query string for a recent search
func SearchParams(query string, mode models.SearchMode, maxResults int) url.Values {
	if maxResults < MinSearchResults {
		maxResults = MinSearchResults
	} else if maxResults > MaxSearchResults {
		maxResults = MaxSearchResults
	}

	params := lookupParams()
	params.Set("query", query)
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	params.Set("sort_order", SortOrder(mode))
	return params
}

// RepliesQuery returns the search query selecting direct replies to id
func RepliesQuery(id string) string {
	return "in_reply_to_tweet_id:" + id
}

// SortOrder maps a search mode onto the API's sort_order parameter
func SortOrder(mode models.SearchMode) string {
	if mode == models.SearchModeLatest {
		return "recency"
	}
	return "relevancy"
}
