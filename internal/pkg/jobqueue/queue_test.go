package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/civicdash/internal/pkg/redistest"
)

const jobQueueTestRedisDB = 14

func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueue(nil, tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.NotNil(t, queue.handlers)
			assert.NotNil(t, queue.stopCh)
			assert.False(t, queue.running)
		})
	}
}

func TestQueueProcessesJobs(t *testing.T) {
	client := redistest.Client(t, jobQueueTestRedisDB)
	ctx := context.Background()
	q := NewQueue(client, 1)

	var seen []string
	q.Handle(JobTypeImageDelete, func(_ context.Context, job *Job) error {
		p, err := ImageDeletePayloadFromMap(job.Payload)
		if err != nil {
			return err
		}
		seen = append(seen, p.Key)
		return nil
	})

	job, err := q.EnqueueJob(ctx, JobTypeImageDelete, ImageDeletePayload{Key: "a.png"}.ToMap())
	require.NoError(t, err)

	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	processed, err := q.processNext(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, job.ID, processed.ID)
	assert.Equal(t, []string{"a.png"}, seen)

	_, err = q.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, redis.Nil, "completed jobs are removed")

	processing, err := q.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, processing)

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusCompleted])

	_, err = q.processNext(ctx, 100*time.Millisecond)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	client := redistest.Client(t, jobQueueTestRedisDB)
	ctx := context.Background()
	q := NewQueue(client, 1)
	q.retryBackoff = 10 * time.Millisecond

	attempts := 0
	q.Handle(JobTypeResolutionMail, func(context.Context, *Job) error {
		attempts++
		if attempts < 2 {
			return errors.New("smtp unavailable")
		}
		return nil
	})

	job, err := q.EnqueueJob(ctx, JobTypeResolutionMail, IssueMailPayload{IssueID: "i", RecipientID: "r"}.ToMap())
	require.NoError(t, err)

	_, err = q.processNext(ctx, time.Second)
	require.NoError(t, err)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRetrying, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)

	// The retry waits in Redis, not in the pending list.
	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
	retries, err := q.GetRetrySize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), retries)

	n, err := q.promoteDueRetries(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = q.processNext(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	_, err = q.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestQueueFailsUnknownJobTypesPermanently(t *testing.T) {
	client := redistest.Client(t, jobQueueTestRedisDB)
	ctx := context.Background()
	q := NewQueue(client, 1)

	job, err := q.EnqueueJob(ctx, JobType("bogus"), nil)
	require.NoError(t, err)

	// Exhaust retries without waiting on the backoff.
	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	stored.RetryCount = DefaultMaxRetries - 1
	q.updateJob(ctx, stored)

	_, err = q.processNext(ctx, time.Second)
	require.NoError(t, err)

	stored, err = q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMsg, "unknown job type")

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusFailed])
}

func TestRecoverStuckRequeuesOldJobs(t *testing.T) {
	client := redistest.Client(t, jobQueueTestRedisDB)
	ctx := context.Background()
	q := NewQueue(client, 1)

	job, err := q.EnqueueJob(ctx, JobTypeImageDelete, ImageDeletePayload{Key: "k"}.ToMap())
	require.NoError(t, err)

	// Simulate a worker that crashed mid-job.
	dequeued, err := q.dequeueJob(ctx, time.Second)
	require.NoError(t, err)
	dequeued.MarkAsProcessing()
	q.updateJob(ctx, dequeued)

	require.NoError(t, q.recoverStuck(ctx, 10*time.Minute, time.Now()))
	size, _ := q.GetQueueSize(ctx)
	assert.Zero(t, size, "fresh jobs are left alone")

	require.NoError(t, q.recoverStuck(ctx, 10*time.Minute, time.Now().Add(time.Hour)))
	size, _ = q.GetQueueSize(ctx)
	assert.Equal(t, int64(1), size)
	processing, _ := q.GetProcessingSize(ctx)
	assert.Zero(t, processing)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, stored.Status)
	assert.Equal(t, "recovered by sweeper", stored.ErrorMsg)
}

func TestRetriesSurviveRestart(t *testing.T) {
	client := redistest.Client(t, jobQueueTestRedisDB)
	ctx := context.Background()

	failing := NewQueue(client, 1)
	failing.retryBackoff = time.Hour
	failing.Handle(JobTypeAssignmentMail, func(context.Context, *Job) error {
		return errors.New("smtp unavailable")
	})
	job, err := failing.EnqueueJob(ctx, JobTypeAssignmentMail, IssueMailPayload{IssueID: "i", RecipientID: "w"}.ToMap())
	require.NoError(t, err)
	_, err = failing.processNext(ctx, time.Second)
	require.NoError(t, err)

	// A fresh instance picks the retry up from Redis once it is due.
	restarted := NewQueue(client, 1)
	var handled []string
	restarted.Handle(JobTypeAssignmentMail, func(_ context.Context, j *Job) error {
		handled = append(handled, j.ID)
		return nil
	})

	n, err := restarted.promoteDueRetries(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n, "backoff not elapsed yet")

	n, err = restarted.promoteDueRetries(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = restarted.promoteDueRetries(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "a retry is promoted only once")

	_, err = restarted.processNext(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID}, handled)

	retries, err := restarted.GetRetrySize(ctx)
	require.NoError(t, err)
	assert.Zero(t, retries)
}
