package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zest-protocol/dashboard/types"
)

func waitStatus(t *testing.T, q *Queue, id string, want Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, ok := q.Status(id)
		return ok && s == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestQueueRunsJob(t *testing.T) {
	q := New(WithWorkers(1))
	var got struct {
		Name string `json:"name"`
	}
	done := make(chan struct{})
	q.Register("greet", func(ctx context.Context, job Job) error {
		defer close(done)
		return job.Decode(&got)
	})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue("greet", map[string]string{"name": "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	<-done
	waitStatus(t, q, id, StatusCompleted)
	assert.Equal(t, "alice", got.Name)
}

func TestQueueRetriesTransientFailures(t *testing.T) {
	q := New(WithWorkers(1), WithAttempts(3), WithBackoff(time.Millisecond, 5*time.Millisecond))
	var calls int32
	q.Register("flaky", func(ctx context.Context, job Job) error {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, int(n), job.Attempt)
		if n < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue("flaky", nil)
	require.NoError(t, err)

	waitStatus(t, q, id, StatusCompleted)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueGivesUpAfterAttempts(t *testing.T) {
	q := New(WithWorkers(1), WithAttempts(2), WithBackoff(time.Millisecond, time.Millisecond))
	var calls int32
	q.Register("broken", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("still broken")
	})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue("broken", nil)
	require.NoError(t, err)

	waitStatus(t, q, id, StatusFailed)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQueuePermanentErrorStopsRetries(t *testing.T) {
	q := New(WithWorkers(1), WithAttempts(5), WithBackoff(time.Millisecond, time.Millisecond))
	var calls int32
	q.Register("fatal", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return Permanent(errors.New("bad input"))
	})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue("fatal", nil)
	require.NoError(t, err)

	waitStatus(t, q, id, StatusFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueueFull(t *testing.T) {
	q := New(WithCapacity(1))
	q.Register("noop", func(ctx context.Context, job Job) error { return nil })

	first, err := q.Enqueue("noop", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Pending())

	_, err = q.Enqueue("noop", nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnavailable))

	s, ok := q.Status(first)
	require.True(t, ok)
	assert.Equal(t, StatusQueued, s)
}

func TestQueueUnknownKind(t *testing.T) {
	q := New()
	_, err := q.Enqueue("missing", nil)
	assert.Error(t, err)
}

func TestQueueStatusUnknownJob(t *testing.T) {
	q := New()
	_, ok := q.Status("nope")
	assert.False(t, ok)
}

func TestDecodeFailureIsPermanent(t *testing.T) {
	q := New(WithWorkers(1), WithAttempts(3), WithBackoff(time.Millisecond, time.Millisecond))
	var calls int32
	q.Register("typed", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		var n int
		return job.Decode(&n)
	})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue("typed", "not a number")
	require.NoError(t, err)

	waitStatus(t, q, id, StatusFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
