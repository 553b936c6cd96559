package modkit

import "msgstats/internal/modkit/module"

// Module is the surface api modules expose to main
type Module = module.Module
