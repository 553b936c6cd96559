package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestDisabledIsNoop(t *testing.T) {
	r := New(false)
	r.JobStarted()
	r.WatchRunning(func() int { return 1 })
	require.Nil(t, Gatherer(r))
}

func TestPromCounters(t *testing.T) {
	m := NewProm()

	m.JobStarted()
	m.JobFinished("completed", 3*time.Second)
	m.JobFinished("failed", 0)
	m.ChannelDone(OutcomeScanned)
	m.ChannelDone(OutcomeScanned)
	m.ChannelDone(OutcomeForbidden)
	m.AddMessages(41)
	m.AddMessages(-1)
	m.ObserveCheckpoint(time.Millisecond, errors.New("boom"))
	m.ObserveRequest("/api/v1/collect/jobs", "POST", 202, time.Millisecond)
	m.CacheHit()
	m.CacheMiss()

	require.Equal(t, 1.0, testutil.ToFloat64(m.jobsStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(m.jobsFinished.WithLabelValues("completed")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.channels.WithLabelValues(OutcomeScanned)))
	require.Equal(t, 41.0, testutil.ToFloat64(m.messages))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/v1/collect/jobs", "POST", "2xx")))
	require.Equal(t, 1, testutil.CollectAndCount(m.checkpoint))
}

func TestWatchRunningGauge(t *testing.T) {
	m := NewProm()
	n := 3
	m.WatchRunning(func() int { return n })
	m.WatchRunning(func() int { return 99 })

	mfs, err := m.Registry().Gather()
	require.NoError(t, err)
	var got float64
	for _, mf := range mfs {
		if mf.GetName() == "msgstats_jobs_running" {
			got = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	require.Equal(t, 3.0, got)
}

func TestStatusBucket(t *testing.T) {
	require.Equal(t, "5xx", statusBucket(503))
	require.Equal(t, "1xx", statusBucket(101))
	require.Equal(t, "42", statusBucket(42))
}
