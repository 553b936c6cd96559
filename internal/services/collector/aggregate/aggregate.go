// Package aggregate accumulates per (user, channel) tallies for one job
package aggregate

import (
	"sort"
	"sync"
	"time"

	ptime "msgstats/internal/platform/time"
	"msgstats/internal/services/collector/domain"
)

// Aggregator is scoped to a single job and never shared across jobs
type Aggregator struct {
	mu        sync.Mutex
	byChannel map[string]map[string]*domain.Tally
}

// New returns an empty aggregator
func New() *Aggregator {
	return &Aggregator{byChannel: make(map[string]map[string]*domain.Tally)}
}

// Record appends one message to the (user, channel) tally and keeps the latest profile
func (a *Aggregator) Record(userID, channelID string, ts time.Time, p domain.Profile) {
	a.mu.Lock()
	defer a.mu.Unlock()

	users, ok := a.byChannel[channelID]
	if !ok {
		users = make(map[string]*domain.Tally)
		a.byChannel[channelID] = users
	}
	t, ok := users[userID]
	if !ok {
		t = &domain.Tally{UserID: userID, ChannelID: channelID}
		users[userID] = t
	}
	t.Timestamps = append(t.Timestamps, ts)
	t.Count = len(t.Timestamps)
	if p != (domain.Profile{}) {
		t.Profile = p
	}
}

// DrainChannel removes and returns the channel's tallies ordered by user id
func (a *Aggregator) DrainChannel(channelID string) []domain.Tally {
	a.mu.Lock()
	users := a.byChannel[channelID]
	delete(a.byChannel, channelID)
	a.mu.Unlock()

	out := make([]domain.Tally, 0, len(users))
	for _, t := range users {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// DiscardChannel drops partial tallies and returns how many messages were dropped
func (a *Aggregator) DiscardChannel(channelID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, t := range a.byChannel[channelID] {
		n += t.Count
	}
	delete(a.byChannel, channelID)
	return n
}

// Pending returns the number of messages not yet drained
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, users := range a.byChannel {
		for _, t := range users {
			n += t.Count
		}
	}
	return n
}

// Daily buckets tallies into per day counts, ordered by user then day
func Daily(guildID string, tallies []domain.Tally, collectedAt time.Time) []domain.DailyRow {
	var out []domain.DailyRow
	for _, t := range tallies {
		perDay := map[time.Time]int{}
		for _, ts := range t.Timestamps {
			perDay[ptime.Day(ts)]++
		}
		days := make([]time.Time, 0, len(perDay))
		for d := range perDay {
			days = append(days, d)
		}
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
		for _, d := range days {
			out = append(out, domain.DailyRow{
				GuildID:     guildID,
				ChannelID:   t.ChannelID,
				UserID:      t.UserID,
				Day:         d,
				Messages:    perDay[d],
				CollectedAt: collectedAt,
			})
		}
	}
	return out
}
