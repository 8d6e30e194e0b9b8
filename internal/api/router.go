package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	mw "github.com/vixomaix/reel-to-recipe-api/internal/api/middleware"
	"github.com/vixomaix/reel-to-recipe-api/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
// A nil RateLimiter disables rate limiting (tests, single-user setups).
type Dependencies struct {
	RateLimiter     mw.RateLimiter
	RateLimit       int64
	RateLimitWindow time.Duration

	HealthHandler      http.HandlerFunc
	ExtractHandler     http.HandlerFunc
	GetJobHandler      http.HandlerFunc
	ListJobsHandler    http.HandlerFunc
	CancelJobHandler   http.HandlerFunc
	GetRecipeHandler   http.HandlerFunc
	ListRecipesHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			limit := deps.RateLimit
			if limit <= 0 {
				limit = 60
			}
			window := deps.RateLimitWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(mw.RateLimit(deps.RateLimiter, limit, window))
		}

		r.Post("/api/v1/extract", orNotImplemented(deps.ExtractHandler))

		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobsHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))
		r.Delete("/api/v1/jobs/{jobID}", orNotImplemented(deps.CancelJobHandler))

		r.Get("/api/v1/recipes", orNotImplemented(deps.ListRecipesHandler))
		r.Get("/api/v1/recipes/{jobID}", orNotImplemented(deps.GetRecipeHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
