// Package modkit provides module wiring and core deps
package modkit

import (
	"msgstats/internal/modkit/repokit"
	"msgstats/internal/platform/cache"
	"msgstats/internal/platform/config"
	"msgstats/internal/platform/logger"
	"msgstats/internal/platform/metrics"
	"msgstats/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// PG and CH are nil when the backend is disabled
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	PG      repokit.TxRunner
	CH      store.Clickhouse
	Metrics metrics.Recorder
	Cache   cache.Cache
}

// WithDefaults fills optional seams with no op implementations
func (d Deps) WithDefaults() Deps {
	if d.Metrics == nil {
		d.Metrics = metrics.New(false)
	}
	if d.Cache == nil {
		d.Cache = cache.New(cache.Config{})
	}
	return d
}
