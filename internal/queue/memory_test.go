package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vixomaix/reel-to-recipe-api/internal/queue"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

func TestMemoryQueue_FIFOWithinStage(t *testing.T) {
	q := queue.NewMemoryQueue(time.Minute)
	ctx := context.Background()

	first, second := uuid.New(), uuid.New()
	require.NoError(t, q.Enqueue(ctx, models.StageDownload, first, 0))
	require.NoError(t, q.Enqueue(ctx, models.StageDownload, second, 0))

	d1, err := q.Dequeue(ctx, models.StageDownload, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first, d1.JobID)
	assert.Equal(t, models.StageDownload, d1.Stage)

	d2, err := q.Dequeue(ctx, models.StageDownload, time.Second)
	require.NoError(t, err)
	assert.Equal(t, second, d2.JobID)
}

func TestMemoryQueue_EmptyTimesOut(t *testing.T) {
	q := queue.NewMemoryQueue(time.Minute)
	_, err := q.Dequeue(context.Background(), models.StageDownload, 20*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestMemoryQueue_StagesAreIsolated(t *testing.T) {
	q := queue.NewMemoryQueue(time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, models.StageMediaExtract, uuid.New(), 0))
	_, err := q.Dequeue(ctx, models.StageDownload, 20*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestMemoryQueue_DelayedEnqueue(t *testing.T) {
	q := queue.NewMemoryQueue(time.Minute)
	ctx := context.Background()
	jobID := uuid.New()

	require.NoError(t, q.Enqueue(ctx, models.StageDownload, jobID, 30*time.Millisecond))

	_, err := q.Dequeue(ctx, models.StageDownload, 5*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrEmpty, "delayed item is invisible before its delay")

	d, err := q.Dequeue(ctx, models.StageDownload, time.Second)
	require.NoError(t, err)
	assert.Equal(t, jobID, d.JobID)
}

func TestMemoryQueue_UnackedItemIsRedelivered(t *testing.T) {
	q := queue.NewMemoryQueue(30 * time.Millisecond)
	ctx := context.Background()
	jobID := uuid.New()

	require.NoError(t, q.Enqueue(ctx, models.StageDownload, jobID, 0))

	d, err := q.Dequeue(ctx, models.StageDownload, time.Second)
	require.NoError(t, err)
	assert.Equal(t, jobID, d.JobID)
	// Never acked: the visibility timeout puts it back.

	redelivered, err := q.Dequeue(ctx, models.StageDownload, time.Second)
	require.NoError(t, err)
	assert.Equal(t, jobID, redelivered.JobID)
}

func TestMemoryQueue_AckedItemStaysGone(t *testing.T) {
	q := queue.NewMemoryQueue(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, models.StageDownload, uuid.New(), 0))
	d, err := q.Dequeue(ctx, models.StageDownload, time.Second)
	require.NoError(t, err)
	require.NoError(t, q.Ack(ctx, d))

	time.Sleep(50 * time.Millisecond) // past the visibility timeout
	_, err = q.Dequeue(ctx, models.StageDownload, 20*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestMemoryQueue_DequeueHonorsContext(t *testing.T) {
	q := queue.NewMemoryQueue(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Dequeue(ctx, models.StageDownload, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
