// Package guardrails holds the time budgets and retry pacing of a collection job
package guardrails

import (
	"context"
	"math/rand/v2"
	"time"
)

// Timeouts are the budgets for one job. Zero values mean no extra limit at that level
type Timeouts struct {
	// Job caps the whole scan
	Job time.Duration

	// Fetch caps reading one channel's history
	Fetch time.Duration

	// Checkpoint caps the persistence of one channel
	Checkpoint time.Duration
}

// ForJob returns a context limited by the job budget
func ForJob(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Job)
}

// ForFetch returns a sub context for one channel scan bounded by Fetch and any remaining parent budget
func ForFetch(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Fetch)
}

// ForCheckpoint returns a sub context for one checkpoint bounded by Checkpoint and the parent
func ForCheckpoint(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Checkpoint)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of d and the parent remainder and never extends the parent
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}

// MaxBackoff caps a single retry pause
const MaxBackoff = 30 * time.Second

// Backoff returns the jittered pause before retry attempt i (0 based):
// base<<i capped at MaxBackoff, then a random value in [d/2, d)
func Backoff(base time.Duration, i int) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := MaxBackoff
	if i < 16 {
		d = min(base<<i, MaxBackoff)
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int64N(int64(half)))
}

// Sleep waits d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
