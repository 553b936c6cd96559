// Package version reports build information stamped with -ldflags
package version

// Service is the name reported by the api and in client info
const Service = "msgstats-api"

// BuildInfo holds version information about the service build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information
// go build -ldflags "-X 'msgstats/internal/core/version.version=v0.1.0' -X 'msgstats/internal/core/version.commit=abcd'"
func Info() BuildInfo {
	return BuildInfo{Service: Service, Version: version, Commit: commit, Date: date}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
