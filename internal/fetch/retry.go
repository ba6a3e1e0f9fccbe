package fetch

import (
	"math"
	"math/rand"
	"time"
)

// backoff implements §5's C4 formula: min(2^attempt, 30) seconds with
// jitter ±20%. attempt starts at 1.
func backoff(attempt int) time.Duration {
	base := math.Min(math.Pow(2, float64(attempt)), 30)
	jitter := base * 0.2 * (rand.Float64()*2 - 1)
	seconds := base + jitter
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds * float64(time.Second))
}

const maxAttempts = 3
