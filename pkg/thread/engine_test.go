package thread

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"threadscraper/internal/fetcher"
	errs "threadscraper/pkg/errors"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/models"
)

func newTestEngine(src models.Source, opts Options) (*Engine, *logger.TestLogger) {
	tl := logger.NewTestLogger()
	return NewEngine(src, opts, tl), tl
}

func sortedTexts(tr ThreadResult) []string {
	out := append([]string(nil), tr.Texts...)
	sort.Strings(out)
	return out
}

func TestDiamondVisitedOnce(t *testing.T) {
	g := newGraphSource()
	a := g.add("A", "u1", "🧵 root", "")
	g.add("B", "u1", "left", "A")
	g.add("C", "u1", "right", "A")
	g.add("D", "u1", "join", "B")
	g.replies["C"] = append(g.replies["C"], "D")

	e, _ := newTestEngine(g, Options{Workers: 4})
	res := e.Reconstruct(context.Background(), []models.Post{a})

	require.Len(t, res.Threads, 1)
	assert.Equal(t, []string{"join", "left", "right", "🧵 root"}, sortedTexts(res.Threads[0]))
	assert.Equal(t, 1, g.repliesFetched("D"), "D must be expanded exactly once")
	assert.Equal(t, 4, res.Visited)
	assert.Empty(t, res.Pruned)
}

func TestFanOutCap(t *testing.T) {
	g := newGraphSource()
	root := g.add("root", "u1", "🧵 big", "")
	for i := 1; i <= 20; i++ {
		g.add(fmt.Sprintf("r%02d", i), "u1", fmt.Sprintf("reply %d", i), "root")
	}

	before := testutil.ToFloat64(repliesSkipped.WithLabelValues(skipFanOutCap))

	e, _ := newTestEngine(g, Options{MaxRepliesPerPost: 15, Workers: 4})
	res := e.Reconstruct(context.Background(), []models.Post{root})

	require.Len(t, res.Threads, 1)
	assert.Len(t, res.Threads[0].Entries, 16)
	for i := 1; i <= 15; i++ {
		assert.Equal(t, 1, g.repliesFetched(fmt.Sprintf("r%02d", i)))
	}
	for i := 16; i <= 20; i++ {
		assert.Zero(t, g.repliesFetched(fmt.Sprintf("r%02d", i)), "reply %d is beyond the cap", i)
	}
	assert.Equal(t, 5.0, testutil.ToFloat64(repliesSkipped.WithLabelValues(skipFanOutCap))-before)
}

func TestOnlySameAuthorRepliesFollowed(t *testing.T) {
	g := newGraphSource()
	root := g.add("1", "author", "🧵 start", "")
	g.add("2", "someone", "nice thread!", "1")
	g.add("3", "author", "part two", "1")
	g.add("4", "", "deleted account", "1")
	g.add("5", "someone", "reply to reply", "3")

	e, _ := newTestEngine(g, DefaultOptions())
	res := e.Reconstruct(context.Background(), []models.Post{root})

	require.Len(t, res.Threads, 1)
	assert.Equal(t, []string{"🧵 start", "part two"}, res.Threads[0].Texts)
	assert.Zero(t, g.repliesFetched("2"))
	assert.Zero(t, g.repliesFetched("4"))
	assert.Zero(t, g.repliesFetched("5"))
}

func TestParentWithoutAuthorFollowsNothing(t *testing.T) {
	g := newGraphSource()
	root := g.add("1", "", "🧵 anonymous", "")
	g.add("2", "", "also anonymous", "1")

	e, _ := newTestEngine(g, DefaultOptions())
	res := e.Reconstruct(context.Background(), []models.Post{root})

	require.Len(t, res.Threads, 1)
	assert.Equal(t, []string{"🧵 anonymous"}, res.Threads[0].Texts)
	assert.Zero(t, g.repliesFetched("2"))
}

func TestAdjacentDuplicateSuppressed(t *testing.T) {
	g := newGraphSource()
	root := g.add("1", "u1", "same", "")
	g.add("2", "u1", "same", "1")
	g.add("3", "u1", "different", "2")

	e, _ := newTestEngine(g, DefaultOptions())
	res := e.Reconstruct(context.Background(), []models.Post{root})

	require.Len(t, res.Threads, 1)
	assert.Equal(t, []string{"same", "different"}, res.Threads[0].Texts)
	assert.Equal(t, 3, res.Visited, "a suppressed entry is still expanded")
}

func TestFetchFailurePrunesOnlyThatBranch(t *testing.T) {
	g := newGraphSource()
	root := g.add("1", "u1", "🧵 root", "")
	g.add("2", "u1", "broken branch", "1")
	g.add("3", "u1", "healthy branch", "1")
	g.add("4", "u1", "healthy child", "3")
	g.add("5", "u1", "unreachable", "2")
	g.failReplies["2"] = errs.New(errs.ErrorTypeServerError, 503, "upstream unavailable")

	e, tl := newTestEngine(g, DefaultOptions())
	res := e.Reconstruct(context.Background(), []models.Post{root})

	require.Len(t, res.Threads, 1)
	assert.Equal(t, []string{"broken branch", "healthy branch", "healthy child", "🧵 root"}, sortedTexts(res.Threads[0]))
	assert.Zero(t, g.repliesFetched("5"))

	require.Len(t, res.Pruned, 1)
	ev := res.Pruned[0]
	assert.Equal(t, "2", ev.PostID)
	assert.Equal(t, "1", ev.RootID)
	assert.Equal(t, fetcher.OpFetchReplies, ev.Op)
	assert.Equal(t, string(errs.ErrorTypeServerError), ev.ErrorType)
	assert.Equal(t, res.RunID, ev.RunID)
	assert.Contains(t, ev.Cause, "upstream unavailable")

	warns := tl.GetMessagesByLevel("WARN")
	require.NotEmpty(t, warns)
	assert.Equal(t, "Pruned thread branch", warns[0].Message)
	assert.Equal(t, "2", warns[0].Fields["post_id"])
}

func TestRootFetchFailureKeepsRootEntry(t *testing.T) {
	g := newGraphSource()
	root := g.add("1", "u1", "🧵 lonely root", "")
	g.failPost["1"] = errs.New(errs.ErrorTypeNotFound, 404, "gone")

	e, _ := newTestEngine(g, DefaultOptions())
	res := e.Reconstruct(context.Background(), []models.Post{root})

	require.Len(t, res.Threads, 1)
	assert.Equal(t, []string{"🧵 lonely root"}, res.Threads[0].Texts)
	require.Len(t, res.Pruned, 1)
	assert.Equal(t, fetcher.OpFetchPost, res.Pruned[0].Op)
}

func TestRunEndToEnd(t *testing.T) {
	g := newGraphSource()
	a := g.add("A", "u1", "🧵 1/3", "")
	g.add("A2", "u1", "2/3", "A")
	g.add("A3", "u1", "3/3", "A2")
	b := g.add("B1", "u2", "off-topic", "A2")
	g.search = []models.Post{a, b}

	e, _ := newTestEngine(g, DefaultOptions())
	res, err := e.Run(context.Background(), "golang", models.SearchModeTop)
	require.NoError(t, err)

	require.Len(t, res.Threads, 1)
	assert.Equal(t, []string{"🧵 1/3", "2/3", "3/3"}, res.Threads[0].Texts)
	assert.Equal(t, "A", res.Threads[0].RootID)
	assert.False(t, res.Fallback)
	assert.Equal(t, "golang", res.Query)
	assert.Equal(t, models.SearchModeTop, res.Mode)
	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.FinishedAt.Before(res.StartedAt))
	assert.Zero(t, g.repliesFetched("B1"), "other-author replies and non-seed results are never expanded")
}

func TestRunFallsBackToFirstResults(t *testing.T) {
	g := newGraphSource()
	var posts []models.Post
	for i := 1; i <= 5; i++ {
		posts = append(posts, g.add(fmt.Sprint(i), "u1", fmt.Sprintf("plain post %d", i), ""))
	}
	g.add("6", "u1", "reply that must not be fetched", "1")
	g.search = posts

	e, _ := newTestEngine(g, DefaultOptions())
	res, err := e.Run(context.Background(), "nothing marked", models.SearchModeLatest)
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	require.Len(t, res.Threads, 3)
	for i, th := range res.Threads {
		assert.Equal(t, []string{fmt.Sprintf("plain post %d", i+1)}, th.Texts)
		assert.True(t, th.Fallback)
	}
	assert.Zero(t, g.repliesFetched("1"))
}

func TestRunFallbackWithZeroOptions(t *testing.T) {
	g := newGraphSource()
	for i := 1; i <= 5; i++ {
		g.search = append(g.search, g.add(fmt.Sprint(i), "u1", fmt.Sprintf("no marker %d", i), ""))
	}

	e, _ := newTestEngine(g, Options{})
	res, err := e.Run(context.Background(), "q", models.SearchModeTop)
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	require.Len(t, res.Threads, 3)
	assert.Equal(t, "1", res.Threads[0].RootID)
	assert.Equal(t, "3", res.Threads[2].RootID)
}

func TestRunSearchFailureYieldsEmptyResult(t *testing.T) {
	g := newGraphSource()
	g.searchErr = errs.New(errs.ErrorTypeServerError, 500, "search down")

	e, tl := newTestEngine(g, DefaultOptions())
	res, err := e.Run(context.Background(), "q", models.SearchModeTop)

	require.NoError(t, err)
	assert.Empty(t, res.Threads)
	assert.True(t, tl.HasMessage("Search failed, returning empty result"))
}

func TestRunAuthFailureIsReturned(t *testing.T) {
	g := newGraphSource()
	g.searchErr = errs.New(errs.ErrorTypeAuth, 401, "bad token")

	e, _ := newTestEngine(g, DefaultOptions())
	res, err := e.Run(context.Background(), "q", models.SearchModeTop)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errs.IsAuth(err))
}

func TestRunVerifiesSessionFirst(t *testing.T) {
	g := newGraphSource()
	src := &verifyingSource{graphSource: g, verifyErr: errs.New(errs.ErrorTypeAuth, 401, "expired")}

	e, _ := newTestEngine(src, DefaultOptions())
	_, err := e.Run(context.Background(), "q", models.SearchModeTop)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify session")
	assert.Zero(t, g.searchCalls)
}

func TestDuplicateSeedsCollapse(t *testing.T) {
	g := newGraphSource()
	a := g.add("A", "u1", "🧵 one", "")
	g.search = []models.Post{a, a, a}

	e, _ := newTestEngine(g, DefaultOptions())
	res, err := e.Run(context.Background(), "q", models.SearchModeTop)
	require.NoError(t, err)

	assert.Len(t, res.Threads, 1)
	assert.Equal(t, 1, g.repliesFetched("A"))
}

func TestDeepChainWithSingleWorker(t *testing.T) {
	g := newGraphSource()
	root := g.add("p0", "u1", "🧵 0", "")
	for i := 1; i < 60; i++ {
		g.add(fmt.Sprintf("p%d", i), "u1", fmt.Sprintf("part %d", i), fmt.Sprintf("p%d", i-1))
	}

	e, _ := newTestEngine(g, Options{Workers: 1})

	done := make(chan *Result, 1)
	go func() { done <- e.Reconstruct(context.Background(), []models.Post{root}) }()

	select {
	case res := <-done:
		require.Len(t, res.Threads, 1)
		assert.Len(t, res.Threads[0].Texts, 60)
		assert.Equal(t, "part 59", res.Threads[0].Texts[59])
	case <-time.After(5 * time.Second):
		t.Fatal("traversal did not finish")
	}
}

func TestRunIgnoresCallerCancellationDuringTraversal(t *testing.T) {
	g := newGraphSource()
	g.delay = 10 * time.Millisecond
	root := g.add("1", "u1", "🧵 slow", "")
	g.add("2", "u1", "slow child", "1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, _ := newTestEngine(g, DefaultOptions())
	res := e.Reconstruct(ctx, []models.Post{root})

	require.Len(t, res.Threads, 1)
	assert.Equal(t, []string{"🧵 slow", "slow child"}, res.Threads[0].Texts)
}

func TestChronologicalOption(t *testing.T) {
	g := newGraphSource()
	root := g.add("1", "u1", "🧵 first", "")
	late := g.add("2", "u1", "written later", "1")
	early := g.add("3", "u1", "backdated", "2")
	early.CreatedAt = late.CreatedAt.Add(-time.Hour)
	g.posts["3"] = early

	e, _ := newTestEngine(g, Options{Chronological: true})
	res := e.Reconstruct(context.Background(), []models.Post{root})

	require.Len(t, res.Threads, 1)
	assert.Equal(t, []string{"backdated", "🧵 first", "written later"}, res.Threads[0].Texts)
}
