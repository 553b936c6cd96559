package module

import "msgstats/internal/services/api/stats/domain"

// Ports are what the stats module offers other modules
type Ports struct {
	Stats domain.ServicePort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
