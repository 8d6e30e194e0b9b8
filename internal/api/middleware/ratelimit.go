package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vixomaix/reel-to-recipe-api/internal/api/response"
	"github.com/vixomaix/reel-to-recipe-api/internal/cache"
)

// RateLimiter is the counter the limiter increments, one window per client.
type RateLimiter interface {
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RateLimit caps requests per client IP in a fixed window. If the counter
// backend is unavailable the request is allowed through; extraction traffic
// is cheap to admit and expensive to drop.
func RateLimit(limiter RateLimiter, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			count, err := limiter.IncrWithExpiry(r.Context(), cache.RateLimitKey(ip), window)
			if err != nil {
				slog.Warn("rate limit counter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if count > limit {
				response.Error(w, http.StatusTooManyRequests,
					"RATE_LIMITED", "Too many requests, slow down", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
