// Package api provides the HTTP API for the application
package api

import (
	"time"

	"msgstats/internal/platform/cache"
	"msgstats/internal/platform/config"
	"msgstats/internal/platform/logger"
	"msgstats/internal/platform/metrics"
	phttp "msgstats/internal/platform/net/http"
	"msgstats/internal/platform/store"

	"msgstats/internal/modkit"
	"msgstats/internal/modkit/httpkit"
	"msgstats/internal/modkit/module"
	"msgstats/internal/modkit/swaggerkit"

	collectmod "msgstats/internal/services/api/collect/module"
	metamod "msgstats/internal/services/api/meta/module"
	statsmod "msgstats/internal/services/api/stats/module"
	collectormod "msgstats/internal/services/collector/module"
)

// Options are the API options
type Options struct {
	Config  config.Conf
	Store   *store.Store
	Logger  *logger.Logger
	Metrics metrics.Recorder
	Cache   cache.Cache

	// Collector is mounted under /collect when set
	Collector *collectormod.Module

	CORSOrigins    []string
	Timeout        time.Duration
	SlowRequest    time.Duration
	EnableSwagger  bool
	EnableProfiler bool
	EnableMetrics  bool
}

// FromConfig fills the http toggles from CORE_API_ keys
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_API_")
	return Options{
		Config:         cfg,
		CORSOrigins:    c.MayCSV("CORS_ORIGINS", nil),
		Timeout:        c.MayDuration("TIMEOUT", 30*time.Second),
		SlowRequest:    c.MayDuration("SLOW_REQUEST", time.Second),
		EnableSwagger:  c.MayBool("SWAGGER", false),
		EnableProfiler: c.MayBool("PROFILER", false),
		EnableMetrics:  c.MayBool("METRICS", true),
	}
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	deps := modkit.Deps{
		Cfg:     opt.Config,
		PG:      opt.Store.PG,
		CH:      opt.Store.CH,
		Metrics: opt.Metrics,
		Cache:   opt.Cache,
	}.WithDefaults()

	mods := []module.Module{
		metamod.New(deps),
		statsmod.New(deps),
	}
	if opt.Collector != nil {
		ports := module.MustPortsOf[collectormod.Ports](opt.Collector)
		mods = append(mods,
			opt.Collector, // registers the collector ports for cross-module lookups
			collectmod.New(deps, modkit.WithPorts(collectmod.Ports{
				Collector: ports.Collector,
				Jobs:      ports.Jobs,
			})),
		)
	}

	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	phttp.MountMetrics(r, "/metrics", metrics.Gatherer(deps.Metrics), opt.EnableMetrics)

	stack := httpkit.CommonStack(httpkit.StackOptions{
		CORSOrigins: opt.CORSOrigins,
		Timeout:     opt.Timeout,
		SlowRequest: opt.SlowRequest,
		Metrics:     deps.Metrics,
	})
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		for _, m := range mods {
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})
}
