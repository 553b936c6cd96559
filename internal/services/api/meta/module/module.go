// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"time"

	"msgstats/internal/core/version"
	modkit "msgstats/internal/modkit"
	"msgstats/internal/modkit/httpkit"
	"msgstats/internal/modkit/module"
	str "msgstats/internal/platform/strings"
	collectormod "msgstats/internal/services/collector/module"

	metahttp "msgstats/internal/services/api/meta/http"
)

// Module implements the modkit.Module interface
type Module struct {
	deps      modkit.Deps
	b         modkit.Built
	startedAt time.Time
}

// New constructs a meta module with the provided dependencies and options
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)
	return &Module{deps: deps, b: b, startedAt: time.Now()}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	d := metahttp.Deps{
		ServiceName: version.Service,
		StartedAt:   m.startedAt,
		Running:     running,
	}
	// keep typed nils out of the interface checks
	if m.deps.PG != nil {
		d.PG = m.deps.PG
	}
	if m.deps.CH != nil {
		d.CH = m.deps.CH
	}
	m.b.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, d) })
}

// running looks the collector up in the port registry at request time
func running() (int, bool) {
	p, ok := module.PortsAs[collectormod.Ports]("collector")
	if !ok || p.Jobs == nil {
		return 0, false
	}
	return p.Jobs.Running(), true
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return str.MustString(m.b.Name, "meta") }

// Prefix implements the modkit.Module interface
func (m *Module) Prefix() string { return str.MustPrefix(m.b.Prefix) }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
