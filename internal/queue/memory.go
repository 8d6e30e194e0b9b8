package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// MemoryQueue is an in-process Queue with the same contract as RedisQueue:
// per-stage FIFO, delayed entries, and visibility-timeout redelivery. Used by
// tests and single-binary development mode.
type MemoryQueue struct {
	visibility time.Duration

	mu       sync.Mutex
	ready    map[models.Stage][]uuid.UUID
	inflight map[string]inflightItem
	delays   map[models.Stage][]time.Duration
	wake     chan struct{}
}

type inflightItem struct {
	stage     models.Stage
	jobID     uuid.UUID
	claimedAt time.Time
}

// NewMemoryQueue creates an empty MemoryQueue.
func NewMemoryQueue(visibility time.Duration) *MemoryQueue {
	return &MemoryQueue{
		visibility: visibility,
		ready:      make(map[models.Stage][]uuid.UUID),
		inflight:   make(map[string]inflightItem),
		delays:     make(map[models.Stage][]time.Duration),
		wake:       make(chan struct{}, 1),
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, stage models.Stage, jobID uuid.UUID, delay time.Duration) error {
	q.mu.Lock()
	q.delays[stage] = append(q.delays[stage], delay)
	q.mu.Unlock()

	if delay > 0 {
		time.AfterFunc(delay, func() { q.push(stage, jobID) })
		return nil
	}
	q.push(stage, jobID)
	return nil
}

func (q *MemoryQueue) push(stage models.Stage, jobID uuid.UUID) {
	q.mu.Lock()
	q.ready[stage] = append(q.ready[stage], jobID)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, stage models.Stage, wait time.Duration) (*Delivery, error) {
	deadline := time.Now().Add(wait)
	for {
		if d, ok := q.tryDequeue(stage); ok {
			return d, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrEmpty
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
			return nil, ErrEmpty
		}
	}
}

func (q *MemoryQueue) tryDequeue(stage models.Stage) (*Delivery, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.ready[stage]
	if len(items) == 0 {
		return nil, false
	}
	jobID := items[0]
	q.ready[stage] = items[1:]

	token := uuid.NewString()
	q.inflight[token] = inflightItem{stage: stage, jobID: jobID, claimedAt: time.Now()}

	// Redeliver if the claim is never acked.
	time.AfterFunc(q.visibility, func() { q.expire(token) })

	return &Delivery{Stage: stage, JobID: jobID, token: token}, true
}

func (q *MemoryQueue) expire(token string) {
	q.mu.Lock()
	item, ok := q.inflight[token]
	if !ok {
		q.mu.Unlock()
		return
	}
	delete(q.inflight, token)
	q.ready[item.stage] = append(q.ready[item.stage], item.jobID)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *MemoryQueue) Ack(_ context.Context, d *Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, d.token)
	return nil
}

// RecordedDelays returns the delay passed to every Enqueue for a stage, in
// order. Test support: this is how backoff schedules are observed.
func (q *MemoryQueue) RecordedDelays(stage models.Stage) []time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]time.Duration(nil), q.delays[stage]...)
}

var _ Queue = (*MemoryQueue)(nil)
