// Package metrics exposes prometheus collectors for the collector pipeline and the http api
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Channel outcomes reported by ChannelDone
const (
	OutcomeScanned   = "scanned"
	OutcomeForbidden = "forbidden"
	OutcomeFailed    = "failed"
)

// Recorder is what services and middleware report into
type Recorder interface {
	ObserveRequest(route, method string, status int, d time.Duration)
	JobStarted()
	JobFinished(status string, d time.Duration)
	ChannelDone(outcome string)
	AddMessages(n int)
	ObserveCheckpoint(d time.Duration, err error)
	CacheHit()
	CacheMiss()
	WatchRunning(fn func() int)
}

// Prom records into its own registry
type Prom struct {
	reg *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	jobsStarted     prometheus.Counter
	jobsFinished    *prometheus.CounterVec
	jobDuration     prometheus.Histogram
	channels        *prometheus.CounterVec
	messages        prometheus.Counter
	checkpoint      *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// New returns a Prom recorder when enabled and a no op otherwise
func New(enabled bool) Recorder {
	if !enabled {
		return noop{}
	}
	return NewProm()
}

// NewProm builds the collectors on a fresh registry with go and process collectors attached
func NewProm() *Prom {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Prom{
		reg: reg,
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "msgstats_http_requests_total",
			Help: "HTTP requests by route, method and status class",
		}, []string{"route", "method", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "msgstats_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		jobsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "msgstats_jobs_started_total",
			Help: "Collection jobs that began running",
		}),
		jobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "msgstats_jobs_finished_total",
			Help: "Collection jobs that reached a terminal status",
		}, []string{"status"}),
		jobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "msgstats_job_duration_seconds",
			Help:    "Wall time from running to terminal",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		channels: f.NewCounterVec(prometheus.CounterOpts{
			Name: "msgstats_channels_total",
			Help: "Channels processed by outcome",
		}, []string{"outcome"}),
		messages: f.NewCounter(prometheus.CounterOpts{
			Name: "msgstats_messages_counted_total",
			Help: "Messages that passed the filters and were tallied",
		}),
		checkpoint: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "msgstats_checkpoint_duration_seconds",
			Help:    "Per channel persistence duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "msgstats_cache_hits_total",
			Help: "Stats read cache hits",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "msgstats_cache_misses_total",
			Help: "Stats read cache misses",
		}),
	}
}

// Registry is the gatherer to expose over http
func (m *Prom) Registry() *prometheus.Registry { return m.reg }

func (m *Prom) ObserveRequest(route, method string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(route, method, statusBucket(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Prom) JobStarted() { m.jobsStarted.Inc() }

func (m *Prom) JobFinished(status string, d time.Duration) {
	m.jobsFinished.WithLabelValues(status).Inc()
	if d > 0 {
		m.jobDuration.Observe(d.Seconds())
	}
}

func (m *Prom) ChannelDone(outcome string) { m.channels.WithLabelValues(outcome).Inc() }

func (m *Prom) AddMessages(n int) {
	if n > 0 {
		m.messages.Add(float64(n))
	}
}

func (m *Prom) ObserveCheckpoint(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.checkpoint.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Prom) CacheHit()  { m.cacheHits.Inc() }
func (m *Prom) CacheMiss() { m.cacheMisses.Inc() }

// WatchRunning registers a gauge sampled from fn at scrape time; later calls are ignored
func (m *Prom) WatchRunning(fn func() int) {
	_ = m.reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "msgstats_jobs_running",
		Help: "Jobs currently pending or running",
	}, func() float64 { return float64(fn()) }))
}

// Gatherer returns the registry behind r, nil for the no op recorder
func Gatherer(r Recorder) prometheus.Gatherer {
	if p, ok := r.(*Prom); ok {
		return p.reg
	}
	return nil
}

func statusBucket(code int) string {
	if code < 100 || code > 599 {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code/100) + "xx"
}

type noop struct{}

func (noop) ObserveRequest(string, string, int, time.Duration) {}
func (noop) JobStarted()                                       {}
func (noop) JobFinished(string, time.Duration)                 {}
func (noop) ChannelDone(string)                                {}
func (noop) AddMessages(int)                                   {}
func (noop) ObserveCheckpoint(time.Duration, error)            {}
func (noop) CacheHit()                                         {}
func (noop) CacheMiss()                                        {}
func (noop) WatchRunning(func() int)                           {}
