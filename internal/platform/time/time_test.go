package time

import (
	"testing"
	"time"
)

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2024, 3, 2, 2, 30, 0, 0, loc) // 2024-03-01 21:30 UTC
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := Day(in); !got.Equal(want) {
		t.Fatalf("Day = %v, want %v", got, want)
	}
}

func TestPtrAndDaysAgo(t *testing.T) {
	if Ptr(time.Time{}) != nil {
		t.Fatalf("zero time should be nil")
	}
	ref := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	if got := DaysAgo(ref, 30); !got.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("DaysAgo = %v", got)
	}
}
