// Package module defines the minimal contract for a modkit module
package module

import (
	phttp "msgstats/internal/platform/net/http"
)

// Module is what main mounts; it lives apart from modkit so port types can import it without cycles
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
