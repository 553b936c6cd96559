package modkit

import (
	"net/http"

	phttp "msgstats/internal/platform/net/http"
)

// Built is the resolved option set a module keeps
type Built struct {
	Name      string
	Prefix    string
	Mw        []func(http.Handler) http.Handler
	Ports     any
	SwaggerOn bool
	Register  func(phttp.Router)
}

// Build applies opts over defaults
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	if c.register == nil {
		c.register = func(phttp.Router) {}
	}
	return Built{
		Name:      c.name,
		Prefix:    c.prefix,
		Mw:        append([]func(http.Handler) http.Handler(nil), c.mw...),
		Ports:     c.ports,
		SwaggerOn: c.swaggerOn,
		Register:  c.register,
	}
}

// Mount routes b under its prefix with its middlewares, then runs the module's own mount
func (b Built) Mount(r phttp.Router, mount func(phttp.Router)) {
	r.Route(b.Prefix, func(sr phttp.Router) {
		if len(b.Mw) > 0 {
			sr.Use(b.Mw...)
		}
		mount(sr)
		b.Register(sr)
	})
}
