package aggregate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"msgstats/internal/services/collector/domain"
)

var t0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func TestRecordAndDrain(t *testing.T) {
	t.Parallel()
	a := New()
	a.Record("u2", "A", t0, domain.Profile{Username: "bob"})
	a.Record("u1", "A", t0.Add(time.Minute), domain.Profile{Username: "al"})
	a.Record("u1", "A", t0.Add(2*time.Minute), domain.Profile{Username: "alice"})
	a.Record("u1", "B", t0, domain.Profile{})

	got := a.DrainChannel("A")
	require.Len(t, got, 2)
	require.Equal(t, "u1", got[0].UserID)
	require.Equal(t, 2, got[0].Count)
	require.Len(t, got[0].Timestamps, got[0].Count)
	require.Equal(t, "alice", got[0].Profile.Username)
	require.Equal(t, "u2", got[1].UserID)

	require.Empty(t, a.DrainChannel("A"), "drain removes the channel")
	require.Equal(t, 1, a.Pending())
}

func TestRecord_EmptyProfileKeepsPrevious(t *testing.T) {
	t.Parallel()
	a := New()
	a.Record("u1", "A", t0, domain.Profile{Username: "al"})
	a.Record("u1", "A", t0, domain.Profile{})
	require.Equal(t, "al", a.DrainChannel("A")[0].Profile.Username)
}

func TestDiscardChannel(t *testing.T) {
	t.Parallel()
	a := New()
	a.Record("u1", "A", t0, domain.Profile{})
	a.Record("u2", "A", t0, domain.Profile{})
	a.Record("u1", "B", t0, domain.Profile{})

	require.Equal(t, 2, a.DiscardChannel("A"))
	require.Equal(t, 0, a.DiscardChannel("A"))
	require.Empty(t, a.DrainChannel("A"))
	require.Len(t, a.DrainChannel("B"), 1)
}

func TestRecord_Concurrent(t *testing.T) {
	t.Parallel()
	a := New()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				a.Record([]string{"u1", "u2"}[i%2], "A", t0, domain.Profile{})
			}
		}()
	}
	wg.Wait()

	sum := 0
	for _, tl := range a.DrainChannel("A") {
		require.Equal(t, len(tl.Timestamps), tl.Count)
		sum += tl.Count
	}
	require.Equal(t, 800, sum)
}

func TestDaily_BucketsByUTCDay(t *testing.T) {
	t.Parallel()
	d1 := time.Date(2025, 4, 1, 23, 30, 0, 0, time.UTC)
	d2 := time.Date(2025, 4, 2, 0, 30, 0, 0, time.UTC)
	collected := d2.Add(time.Hour)

	rows := Daily("g1", []domain.Tally{
		{UserID: "u1", ChannelID: "c1", Timestamps: []time.Time{d2, d1, d1.Add(-time.Hour)}, Count: 3},
		{UserID: "u2", ChannelID: "c1", Timestamps: []time.Time{d2}, Count: 1},
	}, collected)

	require.Len(t, rows, 3)
	require.Equal(t, "u1", rows[0].UserID)
	require.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), rows[0].Day)
	require.Equal(t, 2, rows[0].Messages)
	require.Equal(t, 1, rows[1].Messages)
	require.Equal(t, "u2", rows[2].UserID)

	sum := 0
	for _, r := range rows {
		sum += r.Messages
	}
	require.Equal(t, 4, sum)
}
