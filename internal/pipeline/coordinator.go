package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vixomaix/reel-to-recipe-api/internal/queue"
	"github.com/vixomaix/reel-to-recipe-api/internal/store"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// statusCacheTTL bounds how long a cached job status can outlive its job.
const statusCacheTTL = 30 * time.Minute

// StatusCache is the subset of the cache layer the pipeline writes through.
// Best-effort: cache failures never fail a transition.
type StatusCache interface {
	SetJob(ctx context.Context, job *models.Job, ttl time.Duration) error
}

// Config tunes the coordinator. Zero worker counts default to one worker per
// stage.
type Config struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	DequeueWait time.Duration
	Workers     map[models.Stage]int
}

// Coordinator drives jobs through the pipeline state machine. It owns the
// claim/commit critical section around each executor call; the executors own
// everything long-running. A job is advanced by exactly one worker at a time:
// the claim is an optimistic store update (it bumps the stage's attempt
// counter), so of two racing claims exactly one commits and the loser
// observes a conflict and abandons without side effects.
type Coordinator struct {
	store     store.Store
	queue     queue.Queue
	executors map[models.Stage]Executor
	cfg       Config
	logger    *slog.Logger
	cache     StatusCache // may be nil
}

// NewCoordinator wires the coordinator. cache may be nil.
func NewCoordinator(st store.Store, q queue.Queue, executors []Executor, cfg Config, logger *slog.Logger, cache StatusCache) *Coordinator {
	byStage := make(map[models.Stage]Executor, len(executors))
	for _, ex := range executors {
		byStage[ex.Stage()] = ex
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:     st,
		queue:     q,
		executors: byStage,
		cfg:       cfg,
		logger:    logger,
		cache:     cache,
	}
}

// Run starts the per-stage worker pools and blocks until ctx is cancelled
// and all workers have drained.
func (c *Coordinator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for stage := range c.executors {
		workers := c.cfg.Workers[stage]
		if workers < 1 {
			workers = 1
		}
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(stage models.Stage) {
				defer wg.Done()
				c.workerLoop(ctx, stage)
			}(stage)
		}
	}
	wg.Wait()
}

func (c *Coordinator) workerLoop(ctx context.Context, stage models.Stage) {
	for {
		if ctx.Err() != nil {
			return
		}
		delivery, err := c.queue.Dequeue(ctx, stage, c.cfg.DequeueWait)
		if errors.Is(err, queue.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("dequeue failed", "stage", stage, "error", err)
			time.Sleep(time.Second)
			continue
		}
		c.process(ctx, delivery)
	}
}

// errNotClaimable aborts a claim mutation when the re-read job is no longer
// in a claimable state.
var errNotClaimable = errors.New("job not claimable")

// process handles one delivery end to end: claim, execute, commit, ack.
// The delivery is always acked — retries travel as fresh (delayed) enqueues,
// not as unacked redeliveries.
func (c *Coordinator) process(ctx context.Context, d *queue.Delivery) {
	spec := stageSpecs[d.Stage]
	logger := c.logger.With("stage", d.Stage, "job_id", d.JobID)

	job, err := c.store.GetJob(ctx, d.JobID)
	if errors.Is(err, store.ErrNotFound) {
		logger.Warn("job not found, dropping delivery")
		c.ack(ctx, d, logger)
		return
	}
	if err != nil {
		logger.Error("load job failed", "error", err)
		return // leave unacked; visibility timeout redelivers
	}

	// Redelivery of a stage whose commit landed but whose next-stage enqueue
	// did not: re-enqueue the handoff. Duplicates are harmless, the next
	// stage's claim dedupes them.
	if spec.nextStage != "" && job.Status == spec.next {
		if err := c.queue.Enqueue(ctx, spec.nextStage, d.JobID, 0); err != nil {
			logger.Error("re-enqueue next stage failed", "next_stage", spec.nextStage, "error", err)
			return
		}
		c.ack(ctx, d, logger)
		return
	}

	// Idempotent redelivery: the job already moved past this stage, or was
	// terminated or is being cancelled externally. Nothing to do.
	if job.Status.Terminal() || job.Status.After(spec.running) || !spec.claimable(job.Status) {
		logger.Debug("skipping delivery", "status", job.Status)
		c.ack(ctx, d, logger)
		return
	}

	claimed, err := c.store.UpdateJob(ctx, d.JobID, func(j *models.Job) error {
		if !spec.claimable(j.Status) {
			return errNotClaimable
		}
		j.Status = spec.running
		j.BumpAttempt(d.Stage)
		return nil
	})
	if errors.Is(err, store.ErrConflict) || errors.Is(err, errNotClaimable) {
		// Lost the claim race; the winner advances the job.
		logger.Debug("claim lost, abandoning delivery")
		c.ack(ctx, d, logger)
		return
	}
	if err != nil {
		logger.Error("claim failed", "error", err)
		return
	}
	c.setCachedStatus(ctx, claimed)

	attempt := claimed.Attempts(d.Stage)
	logger.Info("stage started", "attempt", attempt)

	outcome, execErr := c.executors[d.Stage].Execute(ctx, claimed.Clone())
	if execErr != nil {
		if ctx.Err() != nil {
			// Shutdown mid-run: leave the delivery unacked so the visibility
			// timeout hands the job to another worker.
			logger.Info("stage interrupted by shutdown")
			return
		}
		c.handleFailure(ctx, d, claimed, attempt, execErr, logger)
		return
	}
	if spec.nextStage == "" && outcome.Recipe == nil {
		c.handleFailure(ctx, d, claimed, attempt,
			Errf(models.ErrKindSchemaInvalid, "ai-extract produced no recipe"), logger)
		return
	}

	c.commitSuccess(ctx, d, spec, outcome, logger)
}

// commitSuccess merges artifacts, advances the status, and enqueues the next
// stage. For the final stage the recipe is persisted before the status flips
// to completed, so a crash in between leaves a redeliverable analyzing job
// whose recipe insert is idempotent.
func (c *Coordinator) commitSuccess(ctx context.Context, d *queue.Delivery, spec stageSpec, outcome *Outcome, logger *slog.Logger) {
	if spec.nextStage == "" {
		recipe := outcome.Recipe
		recipe.JobID = d.JobID
		if recipe.CreatedAt.IsZero() {
			recipe.CreatedAt = time.Now().UTC()
		}
		if err := c.store.CreateRecipe(ctx, recipe); err != nil {
			logger.Error("persist recipe failed", "error", err)
			return // unacked; redelivery retries the commit
		}
	}

	updated, err := c.store.UpdateJob(ctx, d.JobID, func(j *models.Job) error {
		if j.Status != spec.running {
			return errNotClaimable
		}
		j.Artifacts = j.Artifacts.Merge(outcome.Artifacts)
		j.Status = spec.next
		delete(j.StageAttempts, d.Stage)
		if spec.next == models.JobStatusCompleted {
			now := time.Now().UTC()
			j.CompletedAt = &now
		}
		return nil
	})
	if err != nil {
		// A conflict here means another worker took over after our claim's
		// visibility expired; its commit supersedes ours.
		logger.Warn("commit abandoned", "error", err)
		c.ack(ctx, d, logger)
		return
	}
	c.setCachedStatus(ctx, updated)

	if spec.nextStage != "" {
		if err := c.queue.Enqueue(ctx, spec.nextStage, d.JobID, 0); err != nil {
			logger.Error("enqueue next stage failed", "next_stage", spec.nextStage, "error", err)
			// The status is committed but the next work item is not. Leave
			// this delivery unacked: the redelivery finds the job past our
			// stage, skips the executor, and the sweep puts it back in reach.
			return
		}
	}

	logger.Info("stage completed", "status", updated.Status)
	c.ack(ctx, d, logger)
}

// handleFailure applies the uniform retry policy: retryable kinds under the
// attempt bound go back on the stage's queue with exponential backoff;
// everything else is terminal.
func (c *Coordinator) handleFailure(ctx context.Context, d *queue.Delivery, job *models.Job, attempt int, execErr error, logger *slog.Logger) {
	kind := Classify(execErr)

	if kind.Retryable() && attempt < c.cfg.MaxAttempts {
		delay := Backoff(c.cfg.BackoffBase, c.cfg.BackoffCap, attempt)
		logger.Warn("stage failed, retrying",
			"kind", kind, "attempt", attempt, "max_attempts", c.cfg.MaxAttempts,
			"retry_in", delay, "error", execErr)
		if err := c.queue.Enqueue(ctx, d.Stage, d.JobID, delay); err != nil {
			logger.Error("re-enqueue failed", "error", err)
			return // unacked; visibility timeout redelivers instead
		}
		c.ack(ctx, d, logger)
		return
	}

	logger.Error("stage failed terminally", "kind", kind, "attempt", attempt, "error", execErr)
	failed, err := c.store.UpdateJob(ctx, d.JobID, func(j *models.Job) error {
		if j.Status.Terminal() {
			return errNotClaimable
		}
		j.Status = models.JobStatusFailed
		j.Error = &models.JobError{Stage: d.Stage, Kind: kind, Message: execErr.Error()}
		now := time.Now().UTC()
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		logger.Warn("failure commit abandoned", "error", err)
		c.ack(ctx, d, logger)
		return
	}
	c.setCachedStatus(ctx, failed)
	c.ack(ctx, d, logger)
}

func (c *Coordinator) ack(ctx context.Context, d *queue.Delivery, logger *slog.Logger) {
	if err := c.queue.Ack(ctx, d); err != nil {
		logger.Error("ack failed", "error", err)
	}
}

func (c *Coordinator) setCachedStatus(ctx context.Context, job *models.Job) {
	if c.cache == nil || job == nil {
		return
	}
	_ = c.cache.SetJob(ctx, job, statusCacheTTL)
}
