package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
//
// Job mutations go through an optimistic-concurrency UPDATE: the write is
// guarded on the status and stage_attempts observed at read time, so exactly
// one of two racing updates commits and the other sees ErrConflict.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Jobs ---

const jobColumns = `id, source_url, platform, preferred_language, status, stage_attempts, artifacts, error, created_at, updated_at, completed_at`

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	attempts, artifacts, jobErr, err := marshalJobJSON(job)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID, job.SourceURL, job.Platform, job.PreferredLanguage, job.Status,
		attempts, artifacts, jobErr, job.CreatedAt, job.UpdatedAt, job.CompletedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// UpdateJob applies fn to the current job record and persists the result,
// but only if the status and stage_attempts are unchanged since the read.
// A lost race returns ErrConflict and persists nothing.
func (s *PostgresStore) UpdateJob(ctx context.Context, id uuid.UUID, fn UpdateFn) (*models.Job, error) {
	current, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	guardAttempts, err := json.Marshal(attemptsOrEmpty(current.StageAttempts))
	if err != nil {
		return nil, fmt.Errorf("marshal stage attempts: %w", err)
	}
	guardStatus := current.Status

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()

	attempts, artifacts, jobErr, err := marshalJobJSON(next)
	if err != nil {
		return nil, err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $2, stage_attempts = $3, artifacts = $4, error = $5,
		     updated_at = $6, completed_at = $7
		 WHERE id = $1 AND status = $8 AND stage_attempts = $9::jsonb`,
		id, next.Status, attempts, artifacts, jobErr,
		next.UpdatedAt, next.CompletedAt, guardStatus, guardAttempts)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row vanished or someone else won the race.
		if _, getErr := s.GetJob(ctx, id); errors.Is(getErr, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}
	return next, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(
		`SELECT `+jobColumns+` FROM jobs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, total, rows.Err()
}

// --- Recipes ---

// CreateRecipe persists the final recipe for a job. A recipe is produced
// once; a redelivered final-stage commit hits the job_id primary key and is
// a no-op rather than an error.
func (s *PostgresStore) CreateRecipe(ctx context.Context, recipe *models.Recipe) error {
	ingredients, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return fmt.Errorf("marshal ingredients: %w", err)
	}
	instructions, err := json.Marshal(recipe.Instructions)
	if err != nil {
		return fmt.Errorf("marshal instructions: %w", err)
	}
	tags, err := json.Marshal(tagsOrEmpty(recipe.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO recipes (job_id, title, description, ingredients, instructions,
		   cook_time_minutes, prep_time_minutes, servings, difficulty, tags,
		   source_url, confidence_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (job_id) DO NOTHING`,
		recipe.JobID, recipe.Title, recipe.Description, ingredients, instructions,
		recipe.CookTimeMinutes, recipe.PrepTimeMinutes, recipe.Servings, recipe.Difficulty,
		tags, recipe.SourceURL, recipe.ConfidenceScore, recipe.CreatedAt)
	if err != nil {
		return fmt.Errorf("create recipe: %w", err)
	}
	return nil
}

const recipeColumns = `job_id, title, description, ingredients, instructions, cook_time_minutes, prep_time_minutes, servings, difficulty, tags, source_url, confidence_score, created_at`

func (s *PostgresStore) GetRecipeByJobID(ctx context.Context, jobID uuid.UUID) (*models.Recipe, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE job_id = $1`, jobID)
	recipe, err := scanRecipe(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe by job: %w", err)
	}
	return recipe, nil
}

func (s *PostgresStore) ListRecipes(ctx context.Context, filter RecipeFilter) ([]*models.Recipe, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}
	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("tags @> $%d::jsonb", argIdx))
		tag, err := json.Marshal([]string{filter.Tag})
		if err != nil {
			return nil, fmt.Errorf("marshal tag filter: %w", err)
		}
		args = append(args, tag)
		argIdx++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(
		`SELECT `+recipeColumns+` FROM recipes WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "), argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*models.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}

// --- helpers ---

func marshalJobJSON(job *models.Job) (attempts, artifacts, jobErr []byte, err error) {
	attempts, err = json.Marshal(attemptsOrEmpty(job.StageAttempts))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal stage attempts: %w", err)
	}
	artifacts, err = json.Marshal(job.Artifacts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal artifacts: %w", err)
	}
	if job.Error != nil {
		jobErr, err = json.Marshal(job.Error)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal job error: %w", err)
		}
	}
	return attempts, artifacts, jobErr, nil
}

func attemptsOrEmpty(m map[models.Stage]int) map[models.Stage]int {
	if m == nil {
		return map[models.Stage]int{}
	}
	return m
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var (
		j         models.Job
		attempts  []byte
		artifacts []byte
		jobErr    []byte
	)
	if err := row.Scan(&j.ID, &j.SourceURL, &j.Platform, &j.PreferredLanguage, &j.Status,
		&attempts, &artifacts, &jobErr, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attempts, &j.StageAttempts); err != nil {
		return nil, fmt.Errorf("unmarshal stage attempts: %w", err)
	}
	if err := json.Unmarshal(artifacts, &j.Artifacts); err != nil {
		return nil, fmt.Errorf("unmarshal artifacts: %w", err)
	}
	if len(jobErr) > 0 {
		j.Error = &models.JobError{}
		if err := json.Unmarshal(jobErr, j.Error); err != nil {
			return nil, fmt.Errorf("unmarshal job error: %w", err)
		}
	}
	return &j, nil
}

func scanRecipe(row pgx.Row) (*models.Recipe, error) {
	var (
		r            models.Recipe
		ingredients  []byte
		instructions []byte
		tags         []byte
	)
	if err := row.Scan(&r.JobID, &r.Title, &r.Description, &ingredients, &instructions,
		&r.CookTimeMinutes, &r.PrepTimeMinutes, &r.Servings, &r.Difficulty, &tags,
		&r.SourceURL, &r.ConfidenceScore, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ingredients, &r.Ingredients); err != nil {
		return nil, fmt.Errorf("unmarshal ingredients: %w", err)
	}
	if err := json.Unmarshal(instructions, &r.Instructions); err != nil {
		return nil, fmt.Errorf("unmarshal instructions: %w", err)
	}
	if err := json.Unmarshal(tags, &r.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &r, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
