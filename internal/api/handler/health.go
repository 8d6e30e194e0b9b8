package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/vixomaix/reel-to-recipe-api/internal/api/response"
)

// Pinger is anything whose liveness the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// Degraded dependencies are reported, not hidden: the endpoint stays 200 as
// long as the process is serving, and the body says what is down.
func NewHealthHandler(db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{
			"database": pingStatus(ctx, db),
			"cache":    pingStatus(ctx, cache),
		}
		status := "ok"
		for _, c := range checks {
			if c != "ok" {
				status = "degraded"
				break
			}
		}

		response.JSON(w, map[string]any{
			"status": status,
			"checks": checks,
		})
	}
}

func pingStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "not configured"
	}
	if err := p.Ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
