package store

import (
	"time"

	"msgstats/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity for the daily rollup sink
type CHConfig struct {
	Enabled    bool
	URL        string
	LogSQL     bool
	ClientName string // role reported in system.query_log, e.g. "api"
	ClientTag  string
}

// FromConfig reads SERVICE_PGSQL_ and SERVICE_CLICKHOUSE_ keys; postgres is required,
// clickhouse only when SERVICE_CLICKHOUSE_ENABLED is set
func FromConfig(root config.Conf, tag string) Config {
	pg := root.Prefix("SERVICE_PGSQL_")
	ch := root.Prefix("SERVICE_CLICKHOUSE_")
	cfg := Config{
		AppName: "msgstats",
		PG: PGConfig{
			Enabled:     true,
			URL:         pg.MustString("DBURL"),
			MaxConns:    int32(pg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pg.MayInt("SLOW_MS", 500),
			LogSQL:      pg.MayBool("LOG_SQL", false),
		},
	}
	if ch.MayBool("ENABLED", false) {
		cfg.CH = CHConfig{
			Enabled:    true,
			URL:        ch.MustString("DBURL"),
			LogSQL:     ch.MayBool("LOG_SQL", false),
			ClientName: "msgstats",
			ClientTag:  tag,
		}
	}
	return cfg
}
