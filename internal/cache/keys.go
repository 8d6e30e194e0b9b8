package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// Key builders. Keeping them in one place makes the keyspace greppable.

func JobKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

func RecipeKey(jobID uuid.UUID) string {
	return fmt.Sprintf("recipe:%s", jobID)
}

func RateLimitKey(clientIP string) string {
	return fmt.Sprintf("ratelimit:%s", clientIP)
}
