package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/vixomaix/reel-to-recipe-api/internal/api/response"
	"github.com/vixomaix/reel-to-recipe-api/internal/pipeline"
	"github.com/vixomaix/reel-to-recipe-api/internal/store"
	"github.com/vixomaix/reel-to-recipe-api/pkg/models"
)

// ResultReader defines the interface the recipe handlers depend on.
type ResultReader interface {
	Result(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
	Recipes(ctx context.Context, filter store.RecipeFilter) ([]*models.Recipe, error)
}

// NewGetRecipeHandler returns an http.HandlerFunc for GET /api/v1/recipes/{jobID}.
func NewGetRecipeHandler(reader ResultReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseJobID(w, r)
		if !ok {
			return
		}

		recipe, err := reader.Result(r.Context(), id)
		if err != nil {
			var failed *pipeline.JobFailedError
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job or recipe not found", nil)
			case errors.Is(err, pipeline.ErrNotReady):
				response.Error(w, http.StatusConflict, "NOT_READY",
					"Extraction is still in progress", nil)
			case errors.As(err, &failed):
				response.Error(w, http.StatusConflict, "JOB_FAILED",
					"Extraction failed", failed.JobError)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.JSON(w, recipe)
	}
}

// NewListRecipesHandler returns an http.HandlerFunc for GET /api/v1/recipes.
func NewListRecipesHandler(reader ResultReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := pagination(r)
		filter := store.RecipeFilter{
			Search: r.URL.Query().Get("search"),
			Tag:    r.URL.Query().Get("tag"),
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		recipes, err := reader.Recipes(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Collection(w, recipes, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   len(recipes),
			HasNext: len(recipes) == limit,
		})
	}
}
