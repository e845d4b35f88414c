package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	select {
	case id := <-done:
		require.Equal(t, "job-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueWithoutRetriesRunsOnce(t *testing.T) {
	var calls int32
	q := NewQueue("no-retry", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}, QueueConfig{Workers: 1, MaxRetries: 0, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueueRetriesRetryableErrors(t *testing.T) {
	var calls int32
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("transient")
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 3 }, time.Second, 5*time.Millisecond)
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "x"}))
}
