package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vixomaix/reel-to-recipe-api/internal/store"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

func TestMemoryStore_JobLifecycle(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	job := newJob()
	require.NoError(t, s.CreateJob(ctx, job))
	assert.ErrorIs(t, s.CreateJob(ctx, job), store.ErrDuplicateKey)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, got.Status)

	// GetJob hands out copies; mutating one must not leak into the store.
	got.Status = models.JobStatusCompleted
	again, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, again.Status)

	_, err = s.GetJob(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStore_UpdateConflict(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	job := newJob()
	require.NoError(t, s.CreateJob(ctx, job))

	var barrier sync.WaitGroup
	barrier.Add(2)
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := s.UpdateJob(ctx, job.ID, func(j *models.Job) error {
				barrier.Done()
				barrier.Wait()
				j.Status = models.JobStatusDownloading
				j.BumpAttempt(models.StageDownload)
				return nil
			})
			errs <- err
		}()
	}

	var wins, conflicts int
	for i := 0; i < 2; i++ {
		if err := <-errs; err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, store.ErrConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts(models.StageDownload))
}

func TestMemoryStore_UpdateFnErrorAborts(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	job := newJob()
	require.NoError(t, s.CreateJob(ctx, job))

	sentinel := assert.AnError
	_, err := s.UpdateJob(ctx, job.ID, func(j *models.Job) error {
		j.Status = models.JobStatusFailed
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, got.Status, "aborted mutation leaves no trace")
}

func TestMemoryStore_RecipeIdempotent(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	jobID := uuid.New()
	first := newRecipe(jobID)
	require.NoError(t, s.CreateRecipe(ctx, first))

	dup := newRecipe(jobID)
	dup.Title = "Should Not Overwrite"
	require.NoError(t, s.CreateRecipe(ctx, dup))

	got, err := s.GetRecipeByJobID(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "Garlic Butter Pasta", got.Title)
}

func TestMemoryStore_ListJobsFilterAndPaging(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		job := newJob()
		job.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if i == 0 {
			job.Status = models.JobStatusCompleted
		}
		require.NoError(t, s.CreateJob(ctx, job))
	}

	pending, total, err := s.ListJobs(ctx, store.JobFilter{Status: models.JobStatusPending, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, pending, 3)

	next, _, err := s.ListJobs(ctx, store.JobFilter{Status: models.JobStatusPending, Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, next, 1)
}
