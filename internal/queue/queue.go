// Package queue provides at-least-once delivery of stage work items. Each
// pipeline stage has its own backlog; ordering is FIFO best-effort within a
// stage and unspecified across jobs. A dequeued item that is never acked is
// redelivered after the visibility timeout, which is why stage executors
// must be re-entrant safe.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// ErrEmpty is returned by Dequeue when no item became available within the
// caller's wait window.
var ErrEmpty = errors.New("queue empty")

// Delivery is one dequeued work item plus the receipt needed to ack it.
// Failing to Ack before the visibility timeout causes redelivery.
type Delivery struct {
	Stage models.Stage
	JobID uuid.UUID

	// token identifies this delivery to the backend. Opaque to callers.
	token string
}

// Queue is the transport between pipeline stages.
type Queue interface {
	// Enqueue adds a work item for a stage. A positive delay keeps the item
	// invisible until it elapses (used for retry backoff).
	Enqueue(ctx context.Context, stage models.Stage, jobID uuid.UUID, delay time.Duration) error
	// Dequeue blocks up to wait for an item, returning ErrEmpty on timeout.
	Dequeue(ctx context.Context, stage models.Stage, wait time.Duration) (*Delivery, error)
	// Ack removes a delivered item permanently.
	Ack(ctx context.Context, d *Delivery) error
}
