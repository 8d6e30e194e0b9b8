package pipeline

import "time"

// Backoff returns the delay before retry number attempt (1-based): the base
// doubles per attempt and is capped. Backoff(2s, 1m, 1) = 2s, attempt 2 = 4s,
// attempt 3 = 8s, ... attempt 6+ = 1m.
func Backoff(base, cap time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cap || d < 0 {
			return cap
		}
	}
	if d > cap {
		return cap
	}
	return d
}
