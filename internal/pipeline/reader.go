package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vixomaix/reel-to-recipe-api/internal/cache"
	"github.com/vixomaix/reel-to-recipe-api/internal/store"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

const recipeCacheTTL = time.Hour

// ReaderCache is the subset of the cache layer the read side uses. All calls
// are best-effort; a cache miss or error falls through to the store.
type ReaderCache interface {
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// Reader serves job status and extraction results.
type Reader struct {
	store  store.Store
	logger *slog.Logger
	cache  ReaderCache // may be nil
}

// NewReader wires the read side. cache may be nil.
func NewReader(st store.Store, logger *slog.Logger, cache ReaderCache) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{store: st, logger: logger, cache: cache}
}

// Job returns the full job record. Status-only callers still get the whole
// row; the cache fast path is reserved for Status.
func (r *Reader) Job(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return r.store.GetJob(ctx, id)
}

// Status returns the current job, consulting the cached snapshot first.
// Failed jobs always hit the store so the caller sees the freshest error
// detail alongside the status.
func (r *Reader) Status(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	if r.cache != nil {
		if cached, ok, err := r.cache.GetJob(ctx, id); err == nil && ok &&
			cached.Status != models.JobStatusFailed {
			return cached, nil
		}
	}
	return r.store.GetJob(ctx, id)
}

// Result returns the extracted recipe for a completed job. A running job
// yields ErrNotReady, a failed job yields a *JobFailedError carrying the
// recorded stage error, and an unknown id yields store.ErrNotFound.
func (r *Reader) Result(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	if r.cache != nil {
		if raw, ok, err := r.cache.Get(ctx, cache.RecipeKey(id)); err == nil && ok {
			var recipe models.Recipe
			if err := json.Unmarshal(raw, &recipe); err == nil {
				return &recipe, nil
			}
		}
	}

	job, err := r.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case job.Status == models.JobStatusFailed:
		jobErr := job.Error
		if jobErr == nil {
			jobErr = &models.JobError{Kind: models.ErrKindTransientIO, Message: "job failed"}
		}
		return nil, &JobFailedError{JobError: *jobErr}
	case job.Status != models.JobStatusCompleted:
		return nil, ErrNotReady
	}

	recipe, err := r.store.GetRecipeByJobID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if raw, err := json.Marshal(recipe); err == nil {
			_ = r.cache.Set(ctx, cache.RecipeKey(id), raw, recipeCacheTTL)
		}
	}
	return recipe, nil
}

// List returns jobs matching the filter, newest first, plus the total count
// across all pages.
func (r *Reader) List(ctx context.Context, filter store.JobFilter) ([]*models.Job, int, error) {
	return r.store.ListJobs(ctx, filter)
}

// Recipes returns stored recipes matching the filter.
func (r *Reader) Recipes(ctx context.Context, filter store.RecipeFilter) ([]*models.Recipe, error) {
	return r.store.ListRecipes(ctx, filter)
}
