package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vixomaix/reel-to-recipe-api/internal/api"
	"github.com/vixomaix/reel-to-recipe-api/internal/api/handler"
	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/internal/queue"
	"github.com/vixomaix/reel-to-recipe-api/internal/store"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

type fixture struct {
	router http.Handler
	store  *store.MemoryStore
	queue  *queue.MemoryQueue
	svc    *pipeline.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	q := queue.NewMemoryQueue(time.Minute)
	svc := pipeline.NewService(st, q, slog.Default(), nil)
	reader := pipeline.NewReader(st, slog.Default(), nil)

	router := api.NewRouter(api.Dependencies{
		HealthHandler:      handler.NewHealthHandler(st, nil),
		ExtractHandler:     handler.NewExtractHandler(svc),
		GetJobHandler:      handler.NewGetJobHandler(reader),
		ListJobsHandler:    handler.NewListJobsHandler(reader),
		CancelJobHandler:   handler.NewCancelJobHandler(svc),
		GetRecipeHandler:   handler.NewGetRecipeHandler(reader),
		ListRecipesHandler: handler.NewListRecipesHandler(reader),
	})
	return &fixture{router: router, store: st, queue: q, svc: svc}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func TestExtractEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/extract",
		map[string]string{"url": "https://www.tiktok.com/@cook/video/1"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "tiktok", data["platform"])

	jobID, err := uuid.Parse(data["job_id"].(string))
	require.NoError(t, err)
	_, err = f.store.GetJob(context.Background(), jobID)
	assert.NoError(t, err)

	d, err := f.queue.Dequeue(context.Background(), models.StageDownload, time.Second)
	require.NoError(t, err)
	assert.Equal(t, jobID, d.JobID)
}

func TestExtractEndpointRejections(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		body     any
		wantCode string
	}{
		{"missing url", map[string]string{}, "INVALID_REQUEST"},
		{"unsupported platform", map[string]string{"url": "https://vimeo.com/1"}, "INVALID_URL"},
		{"not http", map[string]string{"url": "ftp://tiktok.com/video/1"}, "INVALID_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/extract", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, decodeErrorCode(t, rec))
		})
	}
}

func TestGetJobEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.svc.Submit(ctx, "https://www.instagram.com/reel/abc/", "")
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, float64(0), data["progress"])

	_, err = f.store.UpdateJob(ctx, job.ID, func(j *models.Job) error {
		j.Status = models.JobStatusAnalyzing
		return nil
	})
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeData(t, rec)
	assert.Equal(t, "analyzing", data["status"])
	assert.Equal(t, float64(80), data["progress"])

	rec = f.do(t, http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB_NOT_FOUND", decodeErrorCode(t, rec))

	rec = f.do(t, http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JOB_ID", decodeErrorCode(t, rec))
}

func TestCancelJobEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.svc.Submit(ctx, "https://www.tiktok.com/@cook/video/2", "")
	require.NoError(t, err)

	rec := f.do(t, http.MethodDelete, "/api/v1/jobs/"+job.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)

	// Cancelling a finished job conflicts.
	rec = f.do(t, http.MethodDelete, "/api/v1/jobs/"+job.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "JOB_FINISHED", decodeErrorCode(t, rec))
}

func TestGetRecipeEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.svc.Submit(ctx, "https://www.tiktok.com/@cook/video/3", "")
	require.NoError(t, err)

	t.Run("still in progress", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/recipes/"+job.ID.String(), nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "NOT_READY", decodeErrorCode(t, rec))
	})

	t.Run("completed", func(t *testing.T) {
		recipe := &models.Recipe{
			JobID:           job.ID,
			Title:           "Garlic Butter Pasta",
			Ingredients:     []models.Ingredient{{Name: "spaghetti"}},
			Instructions:    []models.Instruction{{StepNumber: 1, Description: "Cook."}},
			ConfidenceScore: 0.94,
			CreatedAt:       time.Now().UTC(),
		}
		require.NoError(t, f.store.CreateRecipe(ctx, recipe))
		_, err := f.store.UpdateJob(ctx, job.ID, func(j *models.Job) error {
			j.Status = models.JobStatusCompleted
			return nil
		})
		require.NoError(t, err)

		rec := f.do(t, http.MethodGet, "/api/v1/recipes/"+job.ID.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeData(t, rec)
		assert.Equal(t, "Garlic Butter Pasta", data["title"])
		assert.InDelta(t, 0.94, data["confidence_score"].(float64), 1e-9)
	})

	t.Run("unknown job", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/recipes/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetRecipeEndpointFailedJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.svc.Submit(ctx, "https://www.tiktok.com/@cook/video/4", "")
	require.NoError(t, err)
	_, err = f.store.UpdateJob(ctx, job.ID, func(j *models.Job) error {
		j.Status = models.JobStatusFailed
		j.Error = &models.JobError{
			Stage:   models.StageAIExtract,
			Kind:    models.ErrKindSchemaInvalid,
			Message: "recipe has no ingredients",
		}
		return nil
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/v1/recipes/"+job.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "JOB_FAILED", decodeErrorCode(t, rec))

	var envelope struct {
		Error struct {
			Details models.JobError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, models.ErrKindSchemaInvalid, envelope.Error.Details.Kind)
}

func TestListJobsEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Submit(ctx, "https://www.tiktok.com/@cook/video/1", "")
		require.NoError(t, err)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/jobs?status=pending&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []map[string]any `json:"data"`
		Meta struct {
			Total   int  `json:"total"`
			HasNext bool `json:"has_next"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
	assert.Equal(t, 3, envelope.Meta.Total)
	assert.True(t, envelope.Meta.HasNext)
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "degraded", data["status"], "no cache configured in the fixture")
	checks := data["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["database"])
}
