package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vixomaix/reel-to-recipe-api/internal/platform"
	"github.com/vixomaix/reel-to-recipe-api/internal/queue"
	"github.com/vixomaix/reel-to-recipe-api/internal/store"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// ErrInvalidURL wraps submission validation failures so callers can map them
// to a client error.
var ErrInvalidURL = errors.New("invalid source url")

// ErrJobTerminal is returned by Cancel when the job already finished.
var ErrJobTerminal = errors.New("job already in a terminal state")

// Service is the write-side entry point: it turns a submitted URL into a
// durable pending job with a queued download work item, and handles external
// cancellation between stages.
type Service struct {
	store  store.Store
	queue  queue.Queue
	logger *slog.Logger
	cache  StatusCache // may be nil
}

// NewService wires the submission service. cache may be nil.
func NewService(st store.Store, q queue.Queue, logger *slog.Logger, cache StatusCache) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, queue: q, logger: logger, cache: cache}
}

// Submit validates the URL, creates the job in pending, and enqueues the
// download stage. The job record is durable before the work item exists, so
// a crash in between leaves a visible pending job rather than a ghost work
// item.
func (s *Service) Submit(ctx context.Context, sourceURL, preferredLanguage string) (*models.Job, error) {
	detected, err := platform.Validate(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:                uuid.New(),
		SourceURL:         sourceURL,
		Platform:          detected,
		PreferredLanguage: preferredLanguage,
		Status:            models.JobStatusPending,
		StageAttempts:     map[models.Stage]int{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.SetJob(ctx, job, statusCacheTTL)
	}

	if err := s.queue.Enqueue(ctx, models.StageDownload, job.ID, 0); err != nil {
		return nil, fmt.Errorf("enqueue download: %w", err)
	}

	s.logger.Info("job submitted", "job_id", job.ID, "platform", detected)
	return job, nil
}

// Cancel marks a non-terminal job cancelling and then failed. The coordinator
// checks the status before every claim, so an in-between-stages job never
// gets picked up again; a stage already running finishes its executor call
// but cannot commit past the terminal state.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	_, err := s.store.UpdateJob(ctx, id, func(j *models.Job) error {
		if j.Status.Terminal() {
			return ErrJobTerminal
		}
		j.Status = models.JobStatusCancelling
		return nil
	})
	if err != nil {
		return s.resolveCancelConflict(ctx, id, err)
	}

	failed, err := s.store.UpdateJob(ctx, id, func(j *models.Job) error {
		if j.Status != models.JobStatusCancelling {
			return store.ErrConflict
		}
		j.Status = models.JobStatusFailed
		j.Error = &models.JobError{Kind: models.ErrKindCancelled, Message: "cancelled by user"}
		now := time.Now().UTC()
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		return s.resolveCancelConflict(ctx, id, err)
	}
	if s.cache != nil {
		_ = s.cache.SetJob(ctx, failed, statusCacheTTL)
	}

	s.logger.Info("job cancelled", "job_id", id)
	return nil
}

// resolveCancelConflict settles a cancellation that lost a race against the
// pipeline. A conflict against a job that meanwhile committed a terminal
// state is the same outcome as cancelling a finished job, so it surfaces as
// ErrJobTerminal rather than an internal conflict.
func (s *Service) resolveCancelConflict(ctx context.Context, id uuid.UUID, err error) error {
	if !errors.Is(err, store.ErrConflict) {
		return err
	}
	job, getErr := s.store.GetJob(ctx, id)
	if getErr == nil && job.Status.Terminal() {
		return ErrJobTerminal
	}
	return err
}
