package retry

import (
	"math/rand"
	"time"

	"github.com/golang/glog"

	"github.com/cfninit/cfninit/errs"
)

// Op is one retryable attempt: it returns nil on success, or a
// classification plus the error that occurred.
type Op func(attempt int) (errs.RetryMode, error)

// WithRetry runs op against policy's backoff schedule (§4.1): attempt i
// sleeps before firing, starting at i=0 (zero sleep). Terminal failures
// return immediately; RetriableForever extends the schedule by one slot;
// the schedule otherwise exhausts after policy.MaxTries attempts, at
// which point the last error is returned.
func WithRetry(policy Policy, label string, op Op) error {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	schedule := make([]time.Duration, policy.MaxTries)
	for i := range schedule {
		schedule[i] = policy.sleepFor(i, rnd)
	}
	var lastErr error
	for i := 0; i < len(schedule); i++ {
		if schedule[i] > 0 {
			time.Sleep(schedule[i])
		}
		mode, err := op(i)
		if err == nil {
			attemptsTotal.WithLabelValues("success").Inc()
			return nil
		}
		lastErr = err
		attemptsTotal.WithLabelValues(mode.String()).Inc()
		glog.V(1).Infof("retry[%s]: attempt %d classified %s: %v", label, i, mode, err)
		if mode == errs.Terminal {
			return lastErr
		}
		if mode == errs.RetriableForever {
			schedule = append(schedule, policy.sleepFor(len(schedule), rnd))
		}
	}
	return lastErr
}
