package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// pollInterval is how often an idle Dequeue re-checks the ready list.
const pollInterval = 50 * time.Millisecond

// RedisQueue implements Queue on go-redis/v9.
//
// Layout per stage: a ready list feeds workers, an in-flight sorted set holds
// delivered items scored by their visibility deadline, and delayed (backoff)
// items sit in a second sorted set scored by their ready time. The pop and
// the in-flight registration happen in one Lua script, so there is no window
// where an item has left the ready list without a redelivery deadline: a
// worker that crashes at any point after Dequeue leaves an entry whose
// deadline elapses and whose item goes back on the ready list.
//
// Every enqueued item carries its own delivery token, so two in-flight
// copies of the same job (the coordinator's handoff repair produces those on
// purpose) expire and ack independently.
type RedisQueue struct {
	client     *redis.Client
	visibility time.Duration
}

// NewRedisQueue creates a RedisQueue from a Redis URL.
func NewRedisQueue(redisURL string, visibility time.Duration) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisQueue{client: redis.NewClient(opts), visibility: visibility}, nil
}

// NewRedisQueueFromClient wraps an existing client; used by tests.
func NewRedisQueueFromClient(client *redis.Client, visibility time.Duration) *RedisQueue {
	return &RedisQueue{client: client, visibility: visibility}
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func readyKey(stage models.Stage) string    { return fmt.Sprintf("pipeline:%s:ready", stage) }
func inflightKey(stage models.Stage) string { return fmt.Sprintf("pipeline:%s:inflight", stage) }
func delayedKey(stage models.Stage) string  { return fmt.Sprintf("pipeline:%s:delayed", stage) }

// claimScript pops the oldest ready item and records its visibility deadline
// in the in-flight set as a single atomic step.
var claimScript = redis.NewScript(`
local item = redis.call('RPOP', KEYS[1])
if item then
	redis.call('ZADD', KEYS[2], ARGV[1], item)
end
return item
`)

// payload is "<jobID>:<deliveryToken>". The token makes every enqueued copy a
// distinct queue member with its own claim lifecycle.
func newPayload(jobID uuid.UUID) string {
	return jobID.String() + ":" + uuid.NewString()
}

func payloadJobID(payload string) (uuid.UUID, error) {
	idPart, _, ok := strings.Cut(payload, ":")
	if !ok {
		return uuid.Nil, fmt.Errorf("malformed payload %q", payload)
	}
	return uuid.Parse(idPart)
}

func (q *RedisQueue) Enqueue(ctx context.Context, stage models.Stage, jobID uuid.UUID, delay time.Duration) error {
	payload := newPayload(jobID)
	if delay > 0 {
		readyAt := float64(time.Now().Add(delay).UnixMilli())
		if err := q.client.ZAdd(ctx, delayedKey(stage), redis.Z{Score: readyAt, Member: payload}).Err(); err != nil {
			return fmt.Errorf("enqueue delayed %s: %w", stage, err)
		}
		return nil
	}
	if err := q.client.LPush(ctx, readyKey(stage), payload).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", stage, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, stage models.Stage, wait time.Duration) (*Delivery, error) {
	deadline := time.Now().Add(wait)
	for {
		if err := q.sweep(ctx, stage); err != nil {
			return nil, err
		}

		expiresAt := time.Now().Add(q.visibility).UnixMilli()
		payload, err := claimScript.Run(ctx, q.client,
			[]string{readyKey(stage), inflightKey(stage)}, expiresAt).Text()
		if err == nil {
			jobID, parseErr := payloadJobID(payload)
			if parseErr != nil {
				// Poisoned payload: drop it rather than loop forever.
				q.client.ZRem(ctx, inflightKey(stage), payload)
				return nil, fmt.Errorf("dequeue %s: %w", stage, parseErr)
			}
			return &Delivery{Stage: stage, JobID: jobID, token: payload}, nil
		}
		if err != redis.Nil {
			return nil, fmt.Errorf("dequeue %s: %w", stage, err)
		}

		if time.Now().After(deadline) {
			return nil, ErrEmpty
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.client.ZRem(ctx, inflightKey(d.Stage), d.token).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", d.Stage, err)
	}
	return nil
}

// sweep promotes due delayed items to the ready list and requeues in-flight
// items whose visibility deadline has elapsed.
func (q *RedisQueue) sweep(ctx context.Context, stage models.Stage) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	due, err := q.client.ZRangeByScore(ctx, delayedKey(stage), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("scan delayed %s: %w", stage, err)
	}
	for _, payload := range due {
		removed, err := q.client.ZRem(ctx, delayedKey(stage), payload).Result()
		if err != nil {
			return fmt.Errorf("promote delayed %s: %w", stage, err)
		}
		// ZRem returning 0 means another worker promoted it first.
		if removed > 0 {
			if err := q.client.LPush(ctx, readyKey(stage), payload).Err(); err != nil {
				return fmt.Errorf("promote delayed %s: %w", stage, err)
			}
		}
	}

	expired, err := q.client.ZRangeByScore(ctx, inflightKey(stage), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("scan inflight %s: %w", stage, err)
	}
	for _, payload := range expired {
		removed, err := q.client.ZRem(ctx, inflightKey(stage), payload).Result()
		if err != nil {
			return fmt.Errorf("expire claim %s: %w", stage, err)
		}
		if removed == 0 {
			continue // lost the race to another sweeper
		}
		if err := q.client.LPush(ctx, readyKey(stage), payload).Err(); err != nil {
			return fmt.Errorf("requeue expired %s: %w", stage, err)
		}
	}
	return nil
}

var _ Queue = (*RedisQueue)(nil)
