package worker

import "time"

// RetryDelay computes the delay before redelivering a job whose given
// 1-based attempt just failed: base doubled per prior attempt, capped at max.
func RetryDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = time.Minute
	}

	// Guard the shift; anything past the cap is the cap anyway
	if attempt > 20 {
		return max
	}

	delay := base << (attempt - 1)
	if delay > max || delay <= 0 {
		delay = max
	}

	return delay
}
