package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vixomaix/reel-to-recipe-api/internal/api/response"
	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/internal/store"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// Submitter defines the interface the extract handler depends on.
type Submitter interface {
	Submit(ctx context.Context, sourceURL, preferredLanguage string) (*models.Job, error)
}

// Canceller defines the interface the cancel handler depends on.
type Canceller interface {
	Cancel(ctx context.Context, id uuid.UUID) error
}

// JobReader defines the interface the job read handlers depend on.
type JobReader interface {
	Status(ctx context.Context, id uuid.UUID) (*models.Job, error)
	Job(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, filter store.JobFilter) ([]*models.Job, int, error)
}

// NewExtractHandler returns an http.HandlerFunc for POST /api/v1/extract.
func NewExtractHandler(svc Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL               string `json:"url"`
			PreferredLanguage string `json:"preferred_language"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.URL == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "url is required", nil)
			return
		}

		job, err := svc.Submit(r.Context(), req.URL, req.PreferredLanguage)
		if err != nil {
			if errors.Is(err, pipeline.ErrInvalidURL) {
				response.Error(w, http.StatusBadRequest, "INVALID_URL", err.Error(), nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Accepted(w, jobView(job))
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(reader JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseJobID(w, r)
		if !ok {
			return
		}

		job, err := reader.Status(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, jobView(job))
	}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
func NewListJobsHandler(reader JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := pagination(r)
		filter := store.JobFilter{
			Status: models.JobStatus(r.URL.Query().Get("status")),
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		jobs, total, err := reader.List(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		views := make([]any, 0, len(jobs))
		for _, j := range jobs {
			views = append(views, jobView(j))
		}
		response.Collection(w, views, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

// NewCancelJobHandler returns an http.HandlerFunc for DELETE /api/v1/jobs/{jobID}.
func NewCancelJobHandler(svc Canceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseJobID(w, r)
		if !ok {
			return
		}

		if err := svc.Cancel(r.Context(), id); err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
			case errors.Is(err, pipeline.ErrJobTerminal):
				response.Error(w, http.StatusConflict, "JOB_FINISHED",
					"Job already completed or failed", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.JSON(w, map[string]string{"job_id": id.String(), "status": string(models.JobStatusFailed)})
	}
}

func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_JOB_ID", "jobID must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}
