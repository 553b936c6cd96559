// Package windows turns raw message timestamps into trailing window counters
package windows

import "time"

// Window lengths in days
const (
	Week    = 7
	Month   = 30
	Quarter = 90
)

// Counts is the windowed summary of one user in one channel
type Counts struct {
	Last7d    int
	Last30d   int
	Last90d   int
	Total     int
	FirstSeen time.Time
	LastSeen  time.Time
}

// Compute counts timestamps inside [ref - N days, ref] for each window.
// An empty input reports ref as both first and last seen so callers never store null dates
func Compute(ts []time.Time, ref time.Time) Counts {
	c := Counts{Total: len(ts), FirstSeen: ref, LastSeen: ref}
	if len(ts) == 0 {
		return c
	}

	c7 := ref.AddDate(0, 0, -Week)
	c30 := ref.AddDate(0, 0, -Month)
	c90 := ref.AddDate(0, 0, -Quarter)

	c.FirstSeen, c.LastSeen = ts[0], ts[0]
	for _, t := range ts {
		if t.Before(c.FirstSeen) {
			c.FirstSeen = t
		}
		if t.After(c.LastSeen) {
			c.LastSeen = t
		}
		if t.After(ref) {
			continue
		}
		if !t.Before(c90) {
			c.Last90d++
			if !t.Before(c30) {
				c.Last30d++
				if !t.Before(c7) {
					c.Last7d++
				}
			}
		}
	}
	return c
}

// Valid reports whether the nesting 7d <= 30d <= 90d <= total holds
func (c Counts) Valid() bool {
	return c.Last7d <= c.Last30d && c.Last30d <= c.Last90d && c.Last90d <= c.Total
}
