// Package time contains time related helpers
package time

import "time"

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Day truncates t to midnight UTC, the bucket used by daily rollups
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysAgo returns the instant n whole days before ref
func DaysAgo(ref time.Time, n int) time.Time { return ref.AddDate(0, 0, -n) }
