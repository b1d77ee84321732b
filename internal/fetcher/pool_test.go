package fetcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/models"
)

// mockSource counts calls and tracks the highest number of concurrent requests
type mockSource struct {
	delay       time.Duration
	repliesErr  error
	postErr     error
	calls       int32
	inFlight    int32
	maxInFlight int32
}

func (m *mockSource) enter() {
	atomic.AddInt32(&m.calls, 1)
	n := atomic.AddInt32(&m.inFlight, 1)
	for {
		cur := atomic.LoadInt32(&m.maxInFlight)
		if n <= cur || atomic.CompareAndSwapInt32(&m.maxInFlight, cur, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
}

func (m *mockSource) leave() {
	atomic.AddInt32(&m.inFlight, -1)
}

func (m *mockSource) FetchPost(ctx context.Context, id string) (*models.Post, error) {
	m.enter()
	defer m.leave()
	if m.postErr != nil {
		return nil, m.postErr
	}
	return &models.Post{ID: id, AuthorID: "u1", Text: "post " + id}, nil
}

func (m *mockSource) FetchReplies(ctx context.Context, id string) ([]models.Post, error) {
	m.enter()
	defer m.leave()
	if m.repliesErr != nil {
		return nil, m.repliesErr
	}
	return []models.Post{{ID: id + "-r1", AuthorID: "u1"}}, nil
}

func (m *mockSource) Search(ctx context.Context, query string, mode models.SearchMode) ([]models.Post, error) {
	return nil, nil
}

func TestPoolFetch(t *testing.T) {
	src := &mockSource{}
	pool := NewPool(2, src, logger.NewNopLogger())
	pool.Start()
	defer pool.Stop()

	res := pool.Fetch(context.Background(), "run-1", "100")

	require.NoError(t, res.Err)
	require.NotNil(t, res.Post)
	assert.Equal(t, "100", res.Post.ID)
	require.Len(t, res.Replies, 1)
	assert.Equal(t, "100-r1", res.Replies[0].ID)
	assert.Equal(t, "run-1", res.Job.RunID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&src.calls))
}

func TestPoolReportsFailingOperation(t *testing.T) {
	tests := []struct {
		name   string
		source *mockSource
		wantOp string
	}{
		{"replies fail", &mockSource{repliesErr: fmt.Errorf("timeout")}, OpFetchReplies},
		{"post fails", &mockSource{postErr: fmt.Errorf("not found")}, OpFetchPost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(1, tt.source, logger.NewNopLogger())
			pool.Start()
			defer pool.Stop()

			res := pool.Fetch(context.Background(), "run", "1")
			require.Error(t, res.Err)
			assert.Equal(t, tt.wantOp, res.Op)
			assert.Nil(t, res.Post)
		})
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	src := &mockSource{delay: 20 * time.Millisecond}
	pool := NewPool(3, src, logger.NewNopLogger())
	pool.Start()
	defer pool.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := pool.Fetch(context.Background(), "run", fmt.Sprintf("%d", i))
			assert.NoError(t, res.Err)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&src.maxInFlight), int32(3))
	assert.Equal(t, int32(40), atomic.LoadInt32(&src.calls))
}

func TestPoolRunsInParallel(t *testing.T) {
	src := &mockSource{delay: 50 * time.Millisecond}
	pool := NewPool(5, src, logger.NewNopLogger())
	pool.Start()
	defer pool.Stop()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pool.Fetch(context.Background(), "run", fmt.Sprintf("%d", i))
		}(i)
	}
	wg.Wait()

	// Each job makes two sequential 50ms calls
	assert.Less(t, time.Since(start), 300*time.Millisecond)
}

func TestPoolSubmitAfterStop(t *testing.T) {
	pool := NewPool(1, &mockSource{}, logger.NewNopLogger())
	pool.Start()
	pool.Stop()
	pool.Stop()

	_, err := pool.Submit(Job{PostID: "1"})
	assert.ErrorIs(t, err, ErrPoolStopped)

	res := pool.Fetch(context.Background(), "run", "1")
	assert.ErrorIs(t, res.Err, ErrPoolStopped)
}

func TestPoolStopDrainsQueue(t *testing.T) {
	src := &mockSource{delay: 5 * time.Millisecond}
	pool := NewPool(2, src, logger.NewNopLogger())
	pool.Start()

	var replies []<-chan Result
	for i := 0; i < 4; i++ {
		ch, err := pool.Submit(Job{PostID: fmt.Sprintf("%d", i)})
		require.NoError(t, err)
		replies = append(replies, ch)
	}
	pool.Stop()

	for _, ch := range replies {
		select {
		case res := <-ch:
			assert.NoError(t, res.Err)
		default:
			t.Fatal("queued job was not processed before Stop returned")
		}
	}
}
