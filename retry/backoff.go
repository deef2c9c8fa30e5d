package retry

import (
	"math"
	"math/rand"
	"time"
)

// Policy configures the retry schedule (§4.1): attempt i sleeps
// random() * min(maxSleep, 2^i-1) seconds before firing, starting at i=0
// (which is always a zero sleep). RETRIABLE_FOREVER extends the schedule
// by one slot at i = current schedule length, using the same formula.
type Policy struct {
	MaxTries int
	MaxSleep time.Duration
}

// DefaultPolicy is maxTries=5, maxSleep=20s per §4.1.
func DefaultPolicy() Policy {
	return Policy{MaxTries: 5, MaxSleep: 20 * time.Second}
}

// sleepFor returns the sleep duration before attempt i fires.
func (p Policy) sleepFor(i int, rnd *rand.Rand) time.Duration {
	bound := math.Pow(2, float64(i)) - 1
	maxSleepSeconds := p.MaxSleep.Seconds()
	if bound > maxSleepSeconds {
		bound = maxSleepSeconds
	}
	if bound <= 0 {
		return 0
	}
	return time.Duration(rnd.Float64() * bound * float64(time.Second))
}
