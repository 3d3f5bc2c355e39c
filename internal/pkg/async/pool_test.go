package async_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohortly/internal/pkg/async"
)

func TestPoolExecute(t *testing.T) {
	var running, peak atomic.Int32
	tasks := make([]async.Task[int], 0, 10)
	for i := 0; i < 10; i++ {
		n := i
		tasks = append(tasks, async.Task[int]{
			Name: fmt.Sprintf("task-%d", n),
			Execute: func(ctx context.Context) (int, error) {
				current := running.Add(1)
				for {
					old := peak.Load()
					if current <= old || peak.CompareAndSwap(old, current) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				if n == 3 {
					return 0, errors.New("bad file")
				}
				return n * n, nil
			},
		})
	}

	results := async.NewPool[int](3).Execute(context.Background(), tasks)

	require.Len(t, results, 10)
	assert.Equal(t, 81, results["task-9"].Data)
	assert.NoError(t, results["task-9"].Err)
	assert.EqualError(t, results["task-3"].Err, "bad file")
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestPoolReusable(t *testing.T) {
	pool := async.NewPool[string](0)
	task := []async.Task[string]{{
		Name:    "only",
		Execute: func(ctx context.Context) (string, error) { return "done", nil },
	}}

	for i := 0; i < 2; i++ {
		results := pool.Execute(context.Background(), task)
		assert.Equal(t, "done", results["only"].Data)
	}
}

func TestPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := async.NewPool[int](2).Execute(ctx, []async.Task[int]{
		{Name: "a", Execute: func(ctx context.Context) (int, error) { return 1, nil }},
		{Name: "b", Execute: func(ctx context.Context) (int, error) { return 2, nil }},
	})
	assert.LessOrEqual(t, len(results), 2)
}
