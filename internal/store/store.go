package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicateKey is returned on a unique-constraint violation.
	ErrDuplicateKey = errors.New("duplicate key violation")
	// ErrConflict is returned by UpdateJob when the job's status or stage
	// attempts changed between read and write. The caller lost the race and
	// must abandon without side effects.
	ErrConflict = errors.New("concurrent update conflict")
)

// UpdateFn mutates a job in place. It runs against a private copy of the
// current record; the mutation is only persisted if the job's status and
// stage_attempts are still what they were when the copy was taken.
type UpdateFn func(*models.Job) error

// JobFilter narrows ListJobs.
type JobFilter struct {
	Status models.JobStatus
	Limit  int
	Offset int
}

// RecipeFilter narrows ListRecipes. Search matches against the title,
// case-insensitively.
type RecipeFilter struct {
	Search string
	Tag    string
	Limit  int
	Offset int
}

// Store is the data access interface. All durable state goes through here.
// UpdateJob is the single mutation path for jobs after creation; its
// optimistic-concurrency contract is what serializes concurrent stage claims
// on one job.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateJob(ctx context.Context, id uuid.UUID, fn UpdateFn) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)

	CreateRecipe(ctx context.Context, recipe *models.Recipe) error
	GetRecipeByJobID(ctx context.Context, jobID uuid.UUID) (*models.Recipe, error)
	ListRecipes(ctx context.Context, filter RecipeFilter) ([]*models.Recipe, error)
}
