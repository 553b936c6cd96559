// Package module mounts the collector's http surface under /collect
package module

import (
	"time"

	modkit "msgstats/internal/modkit"
	"msgstats/internal/modkit/httpkit"
	str "msgstats/internal/platform/strings"
	collecthttp "msgstats/internal/services/api/collect/http"
	"msgstats/internal/services/collector/domain"
)

// Ports are the collector ports this module needs, injected with modkit.WithPorts
type Ports struct {
	Collector domain.CollectorPort
	Jobs      collecthttp.Jobs
}

// Module implements the collect api module
type Module struct {
	b        modkit.Built
	ports    Ports
	interval time.Duration
}

// New constructs the collect module; it panics without injected Ports
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("collect"), modkit.WithPrefix("/collect")}, opts...)...)
	p, ok := b.Ports.(Ports)
	if !ok || p.Collector == nil || p.Jobs == nil {
		panic("collect module requires Ports with a Collector and Jobs")
	}
	return &Module{
		b:        b,
		ports:    p,
		interval: deps.Cfg.Prefix("CORE_API_").MayDuration("WATCH_INTERVAL", time.Second),
	}
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) {
		collecthttp.Register(rr, collecthttp.Deps{
			Collector: m.ports.Collector,
			Jobs:      m.ports.Jobs,
			Interval:  m.interval,
		})
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.b.Name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.b.Prefix) }

// Ports returns the injected collector ports
func (m *Module) Ports() any { return m.ports }
