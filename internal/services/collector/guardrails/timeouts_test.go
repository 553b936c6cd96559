package guardrails

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithChildTimeout_NeverExtendsParent(t *testing.T) {
	t.Parallel()
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ctx, c2 := ForFetch(parent, Timeouts{Fetch: time.Hour})
	defer c2()
	if rem := Remaining(ctx); rem <= 0 || rem > 50*time.Millisecond {
		t.Fatalf("remaining = %v, want <= parent budget", rem)
	}
}

func TestWithChildTimeout_Zero(t *testing.T) {
	t.Parallel()
	ctx, cancel := ForCheckpoint(context.Background(), Timeouts{})
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatal("zero budget should not set a deadline")
	}
	cancel()
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Fatal("child should still be cancelable")
	}
}

func TestForJob_SetsDeadline(t *testing.T) {
	t.Parallel()
	ctx, cancel := ForJob(context.Background(), Timeouts{Job: time.Minute})
	defer cancel()
	if rem := Remaining(ctx); rem <= 0 || rem > time.Minute {
		t.Fatalf("remaining = %v", rem)
	}
}

func TestBackoff_Bounds(t *testing.T) {
	t.Parallel()
	base := 100 * time.Millisecond
	for i := range 40 {
		d := Backoff(base, i)
		upper := MaxBackoff
		if i < 16 {
			upper = min(base<<i, MaxBackoff)
		}
		if d < upper/2 || d >= upper {
			t.Fatalf("attempt %d: %v outside [%v, %v)", i, d, upper/2, upper)
		}
	}
}

func TestSleep_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("err = %v", err)
	}
}
