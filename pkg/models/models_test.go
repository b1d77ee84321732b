package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameAuthor(t *testing.T) {
	tests := []struct {
		name string
		a, b Post
		want bool
	}{
		{"same id", Post{AuthorID: "u1"}, Post{AuthorID: "u1"}, true},
		{"different id", Post{AuthorID: "u1"}, Post{AuthorID: "u2"}, false},
		{"both unknown", Post{}, Post{}, false},
		{"other unknown", Post{AuthorID: "u1"}, Post{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.SameAuthor(tt.b))
		})
	}
}

func TestPostURL(t *testing.T) {
	assert.Equal(t, "https://x.com/gopher/status/42", Post{ID: "42", AuthorName: "gopher"}.URL())
	assert.Equal(t, "https://x.com/i/web/status/42", Post{ID: "42"}.URL())
}

func TestParseSearchMode(t *testing.T) {
	m, err := ParseSearchMode(" Latest ")
	require.NoError(t, err)
	assert.Equal(t, SearchModeLatest, m)

	m, err = ParseSearchMode("")
	require.NoError(t, err)
	assert.Equal(t, SearchModeTop, m)

	_, err = ParseSearchMode("hot")
	assert.Error(t, err)
}
