package presenter

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"threadscraper/pkg/models"
	"threadscraper/pkg/thread"
)

func sample() *thread.Result {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &thread.Result{
		RunID: "run-42",
		Query: "golang",
		Mode:  models.SearchModeLatest,
		Threads: []thread.ThreadResult{{
			RootID: "1",
			Author: "gopher",
			URL:    "https://x.com/gopher/status/1",
			Texts:  []string{"Go tips 🧵 1/2", "2/2 line one\nline two"},
			Entries: []thread.Entry{
				{PostID: "1", Text: "Go tips 🧵 1/2", CreatedAt: start},
				{PostID: "2", Text: "2/2 line one\nline two", CreatedAt: start.Add(time.Minute)},
			},
		}},
		Pruned: []thread.PruneEvent{{
			RunID: "run-42", RootID: "1", PostID: "2", Op: "fetch_replies",
			Cause: "server_error error (code 503): server error", ErrorType: "server_error", At: start,
		}},
		Visited:    2,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}
}

func TestNew(t *testing.T) {
	for format, want := range map[string]interface{}{
		"":     &TextPresenter{},
		"text": &TextPresenter{},
		"JSON": &JSONPresenter{},
		"yaml": &YAMLPresenter{},
	} {
		p, err := New(format)
		require.NoError(t, err, format)
		assert.IsType(t, want, p, format)
	}

	_, err := New("xml")
	assert.Error(t, err)
}

func TestJSONPresenter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONPresenter{Indent: "  "}).Present(&buf, sample()))

	var decoded thread.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-42", decoded.RunID)
	assert.Equal(t, models.SearchModeLatest, decoded.Mode)
	assert.Equal(t, sample().Threads[0].Texts, decoded.Threads[0].Texts)
	assert.Contains(t, buf.String(), "🧵", "emoji must not be escaped")
}

func TestYAMLPresenter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLPresenter{}).Present(&buf, sample()))

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "golang", doc["query"])

	threads, ok := doc["threads"].([]interface{})
	require.True(t, ok)
	require.Len(t, threads, 1)
	assert.Equal(t, "gopher", threads[0].(map[string]interface{})["author"])
}

func TestTextPresenter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextPresenter{ShowPruned: true}).Present(&buf, sample()))
	out := buf.String()

	assert.Contains(t, out, `THREADS · "golang"`)
	assert.Contains(t, out, "Thread 1 · @gopher")
	assert.Contains(t, out, "https://x.com/gopher/status/1")
	assert.Contains(t, out, "1. Go tips 🧵 1/2")
	assert.Contains(t, out, "2. 2/2 line one")
	assert.Contains(t, out, "line two")
	assert.Contains(t, out, "Posts: 2")
	assert.Contains(t, out, "Elapsed: 1.5s")
	assert.Contains(t, out, "1 branch(es) pruned")
	assert.Contains(t, out, "fetch_replies 2")
	assert.Contains(t, out, "run run-42")
	assert.NotContains(t, out, "\x1b[", "non-terminal writers get no escape codes")
}

func TestTextPresenterEmptyAndFallback(t *testing.T) {
	var buf bytes.Buffer
	empty := &thread.Result{RunID: "r", Query: "nothing"}
	require.NoError(t, (&TextPresenter{}).Present(&buf, empty))
	assert.Contains(t, buf.String(), "No threads found.")

	buf.Reset()
	fb := sample()
	fb.Fallback = true
	fb.Pruned = nil
	require.NoError(t, (&TextPresenter{}).Present(&buf, fb))
	assert.Contains(t, buf.String(), "showing the top search results")
	assert.NotContains(t, buf.String(), "pruned")
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Logo()
	c.Error("search failed", errors.New("boom"))
	c.Success("saved")
	c.Warning("careful")
	c.Info("Query", "golang")
	c.Dim("done")

	out := buf.String()
	assert.Contains(t, out, Banner)
	assert.Contains(t, out, "search failed: boom")
	assert.Contains(t, out, "saved")
	assert.Contains(t, out, "careful")
	assert.Contains(t, out, "Query: golang")
	assert.Contains(t, out, "done")
}
