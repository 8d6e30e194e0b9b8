package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vixomaix/reel-to-recipe-api/internal/queue"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// setupRedisQueue spins up a Redis container and returns a connected queue.
func setupRedisQueue(t *testing.T, visibility time.Duration) *queue.RedisQueue {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	q, err := queue.NewRedisQueue("redis://"+host+":"+port.Port(), visibility)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, q.Close()) })

	return q
}

func TestRedisQueue_EnqueueDequeueAck(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	q := setupRedisQueue(t, time.Minute)
	ctx := context.Background()
	jobID := uuid.New()

	require.NoError(t, q.Enqueue(ctx, models.StageDownload, jobID, 0))

	d, err := q.Dequeue(ctx, models.StageDownload, time.Second)
	require.NoError(t, err)
	assert.Equal(t, jobID, d.JobID)
	assert.Equal(t, models.StageDownload, d.Stage)

	require.NoError(t, q.Ack(ctx, d))

	_, err = q.Dequeue(ctx, models.StageDownload, 100*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestRedisQueue_FIFOWithinStage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	q := setupRedisQueue(t, time.Minute)
	ctx := context.Background()

	first, second := uuid.New(), uuid.New()
	require.NoError(t, q.Enqueue(ctx, models.StageMediaExtract, first, 0))
	require.NoError(t, q.Enqueue(ctx, models.StageMediaExtract, second, 0))

	d1, err := q.Dequeue(ctx, models.StageMediaExtract, time.Second)
	require.NoError(t, err)
	d2, err := q.Dequeue(ctx, models.StageMediaExtract, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first, d1.JobID)
	assert.Equal(t, second, d2.JobID)
}

func TestRedisQueue_DelayedItemBecomesVisible(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	q := setupRedisQueue(t, time.Minute)
	ctx := context.Background()
	jobID := uuid.New()

	require.NoError(t, q.Enqueue(ctx, models.StageDownload, jobID, 300*time.Millisecond))

	_, err := q.Dequeue(ctx, models.StageDownload, 50*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrEmpty)

	time.Sleep(350 * time.Millisecond)
	d, err := q.Dequeue(ctx, models.StageDownload, time.Second)
	require.NoError(t, err)
	assert.Equal(t, jobID, d.JobID)
}

func TestRedisQueue_ExpiredClaimIsRedelivered(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	q := setupRedisQueue(t, 200*time.Millisecond)
	ctx := context.Background()
	jobID := uuid.New()

	require.NoError(t, q.Enqueue(ctx, models.StageAIExtract, jobID, 0))

	d, err := q.Dequeue(ctx, models.StageAIExtract, time.Second)
	require.NoError(t, err)
	assert.Equal(t, jobID, d.JobID)
	// Simulate a crashed worker: no ack.

	time.Sleep(300 * time.Millisecond)
	redelivered, err := q.Dequeue(ctx, models.StageAIExtract, time.Second)
	require.NoError(t, err)
	assert.Equal(t, jobID, redelivered.JobID)
}

func TestRedisQueue_DuplicateCopiesExpireIndependently(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	q := setupRedisQueue(t, 200*time.Millisecond)
	ctx := context.Background()
	jobID := uuid.New()

	// The coordinator's handoff repair can put a second copy of one job on a
	// stage's queue. Each copy has its own claim lifecycle: acking one must
	// not stop the other from being redelivered when its worker dies.
	require.NoError(t, q.Enqueue(ctx, models.StageMediaExtract, jobID, 0))
	require.NoError(t, q.Enqueue(ctx, models.StageMediaExtract, jobID, 0))

	d1, err := q.Dequeue(ctx, models.StageMediaExtract, time.Second)
	require.NoError(t, err)
	d2, err := q.Dequeue(ctx, models.StageMediaExtract, time.Second)
	require.NoError(t, err)
	assert.Equal(t, jobID, d1.JobID)
	assert.Equal(t, jobID, d2.JobID)

	require.NoError(t, q.Ack(ctx, d1))
	// d2's worker crashes without acking.

	time.Sleep(300 * time.Millisecond)
	redelivered, err := q.Dequeue(ctx, models.StageMediaExtract, time.Second)
	require.NoError(t, err)
	assert.Equal(t, jobID, redelivered.JobID)

	require.NoError(t, q.Ack(ctx, redelivered))
	_, err = q.Dequeue(ctx, models.StageMediaExtract, 100*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestRedisQueue_AckedClaimIsNotRedelivered(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	q := setupRedisQueue(t, 100*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, models.StageDownload, uuid.New(), 0))
	d, err := q.Dequeue(ctx, models.StageDownload, time.Second)
	require.NoError(t, err)
	require.NoError(t, q.Ack(ctx, d))

	time.Sleep(200 * time.Millisecond)
	_, err = q.Dequeue(ctx, models.StageDownload, 100*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}
