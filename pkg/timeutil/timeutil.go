package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoffDelay computes the delay before the next retry attempt.
// The base delay grows geometrically with attempt (1-based) and is capped at
// the configured maximum; the jitter window is sampled from the provided rng
// so callers that seed the generator get reproducible delays.
func ExponentialBackoffDelay(
	attempt int,
	jitter time.Duration,
	rng rand.Rand,
	backoffParam BackoffParam,
) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := float64(backoffParam.InitialDuration()) *
		math.Pow(backoffParam.Multiplier(), float64(attempt-1))

	delay := time.Duration(base)
	if max := backoffParam.MaxDuration(); max > 0 && delay > max {
		delay = max
	}

	if jitter > 0 {
		delay += time.Duration(rng.Int63n(int64(jitter)))
	}

	return delay
}
