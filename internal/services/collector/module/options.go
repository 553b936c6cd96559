package module

import (
	"time"

	"msgstats/internal/platform/config"
)

// Options holds configuration options for the collector
type Options struct {
	MaxRetries        int
	RetryBase         time.Duration
	FetchTimeout      time.Duration
	CheckpointTimeout time.Duration
	MaxDuration       time.Duration
	MaxChannels       int
	Retention         time.Duration
	ProgressEvery     int
	DailyRollups      bool
	AutoMigrate       bool
}

// DiscordOptions holds the platform adapter settings
type DiscordOptions struct {
	Token          string
	PageSize       int
	Timeout        time.Duration
	MaxRestRetries int
}

// FromConfig reads the collector options from config with CORE_COLLECTOR_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_COLLECTOR_")
	return Options{
		MaxRetries:        c.MayInt("MAX_RETRIES", 3),
		RetryBase:         c.MayDuration("RETRY_BASE", 500*time.Millisecond),
		FetchTimeout:      c.MayDuration("FETCH_TIMEOUT", 0),
		CheckpointTimeout: c.MayDuration("CHECKPOINT_TIMEOUT", 30*time.Second),
		MaxDuration:       c.MayDuration("MAX_DURATION", 0),
		MaxChannels:       c.MayInt("MAX_CHANNELS", 0),
		Retention:         c.MayDuration("RETENTION", 24*time.Hour),
		ProgressEvery:     c.MayInt("PROGRESS_EVERY", 1),
		DailyRollups:      c.MayBool("DAILY_ROLLUPS", true),
		AutoMigrate:       c.MayBool("AUTO_MIGRATE", true),
	}
}

// DiscordFromConfig reads the platform settings with SERVICE_DISCORD_ prefix; the token is required
func DiscordFromConfig(cfg config.Conf) DiscordOptions {
	d := cfg.Prefix("SERVICE_DISCORD_")
	return DiscordOptions{
		Token:          d.MustString("TOKEN"),
		PageSize:       d.MayInt("PAGE_SIZE", 100),
		Timeout:        d.MayDuration("TIMEOUT", 20*time.Second),
		MaxRestRetries: d.MayInt("REST_RETRIES", 3),
	}
}
