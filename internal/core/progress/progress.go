// Package progress derives percent complete and an ETA from job counters
package progress

import "time"

// Estimate is a point in time view of how far a job has come
type Estimate struct {
	Percent float64
	ETA     *time.Duration
}

// Of computes the estimate for done out of total units of work.
// Percent is 0 when total is 0; ETA stays nil until at least one unit is done
func Of(done, total int, startedAt, now time.Time) Estimate {
	var e Estimate
	if total <= 0 {
		return e
	}
	if done > total {
		done = total
	}
	e.Percent = float64(done) / float64(total) * 100
	if done <= 0 || startedAt.IsZero() {
		return e
	}

	elapsed := max(now.Sub(startedAt), 0)
	eta := time.Duration(float64(elapsed)*float64(total)/float64(done)) - elapsed
	eta = max(eta, 0)
	e.ETA = &eta
	return e
}
