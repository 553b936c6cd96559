// Package module wires stats into the API using modkit
package module

import (
	modkit "msgstats/internal/modkit"
	"msgstats/internal/modkit/httpkit"
	str "msgstats/internal/platform/strings"
	statshttp "msgstats/internal/services/api/stats/http"
	statsrepo "msgstats/internal/services/api/stats/repo"
	statssvc "msgstats/internal/services/api/stats/service"
)

// Module implements the stats module
type Module struct {
	b     modkit.Built
	svc   *statssvc.Svc
	ports any
}

// New constructs the stats module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	deps = deps.WithDefaults()
	b := modkit.Build(append([]modkit.Option{modkit.WithName("stats"), modkit.WithPrefix("/stats")}, opts...)...)

	svc := statssvc.New(deps.PG, statsrepo.NewPG()).
		WithCache(deps.Cache).
		WithMetrics(deps.Metrics)

	m := &Module{b: b, svc: svc}
	m.ports = Ports{Stats: svc}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { statshttp.Register(rr, m.svc) })
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.b.Name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.b.Prefix) }
