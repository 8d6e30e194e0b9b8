package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// MemoryStore is an in-process Store with the same optimistic-concurrency
// semantics as PostgresStore. Used by tests and by single-binary development
// mode; it is not durable.
type MemoryStore struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*models.Job
	recipes map[uuid.UUID]*models.Recipe
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[uuid.UUID]*models.Job),
		recipes: make(map[uuid.UUID]*models.Recipe),
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return ErrDuplicateKey
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

// UpdateJob mirrors the Postgres guard: the mutation commits only if status
// and stage_attempts are unchanged since the snapshot fn ran against.
//
// The mutation itself runs outside the lock so a slow fn cannot serialize
// unrelated jobs; the conflict check re-acquires and compares.
func (s *MemoryStore) UpdateJob(_ context.Context, id uuid.UUID, fn UpdateFn) (*models.Job, error) {
	s.mu.Lock()
	current, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	snapshot := current.Clone()
	s.mu.Unlock()

	next := snapshot.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok = s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if current.Status != snapshot.Status || !attemptsEqual(current.StageAttempts, snapshot.StageAttempts) {
		return nil, ErrConflict
	}
	s.jobs[id] = next.Clone()
	return next, nil
}

func (s *MemoryStore) ListJobs(_ context.Context, filter JobFilter) ([]*models.Job, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Job
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		all = append(all, job.Clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *MemoryStore) CreateRecipe(_ context.Context, recipe *models.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.recipes[recipe.JobID]; exists {
		return nil // produced once; duplicate commit is a no-op
	}
	cp := *recipe
	s.recipes[recipe.JobID] = &cp
	return nil
}

func (s *MemoryStore) GetRecipeByJobID(_ context.Context, jobID uuid.UUID) (*models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recipe, ok := s.recipes[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *recipe
	return &cp, nil
}

func (s *MemoryStore) ListRecipes(_ context.Context, filter RecipeFilter) ([]*models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Recipe
	for _, recipe := range s.recipes {
		if filter.Search != "" && !strings.Contains(strings.ToLower(recipe.Title), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Tag != "" && !containsTag(recipe.Tags, filter.Tag) {
			continue
		}
		cp := *recipe
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func attemptsEqual(a, b map[models.Stage]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*PostgresStore)(nil)
