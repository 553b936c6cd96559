package http

import (
	stdhttp "net/http"

	mw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MountProfiler mounts pprof under prefix, e.g. "/debug"
func MountProfiler(r Router, prefix string, enabled bool) {
	if !enabled {
		return
	}
	h := stdhttp.StripPrefix(prefix, mw.Profiler())
	r.Handle(prefix, h)
	r.Handle(prefix+"/*", h)
}

// MountMetrics exposes g in the prometheus text format at path
func MountMetrics(r Router, path string, g prometheus.Gatherer, enabled bool) {
	if !enabled || g == nil {
		return
	}
	r.Handle(path, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
