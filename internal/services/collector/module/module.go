// Package module wires the collector: platform adapter, storage binders, registry and service
package module

import (
	"context"
	"errors"

	"msgstats/internal/adapters/discord"
	"msgstats/internal/modkit"
	"msgstats/internal/modkit/repokit"
	phttp "msgstats/internal/platform/net/http"
	"msgstats/internal/services/collector/domain"
	"msgstats/internal/services/collector/registry"
	"msgstats/internal/services/collector/repo"
	"msgstats/internal/services/collector/service"
)

// Ports defines the collector module ports
type Ports struct {
	Collector domain.CollectorPort
	Jobs      *registry.Registry
}

// Module implements the collector module
type Module struct {
	deps  modkit.Deps
	opts  Options
	svc   *service.Service
	ports Ports
}

// Option customizes module construction
type Option func(*build)

type build struct {
	platform domain.Platform
}

// WithPlatform injects a platform instead of building the discord client from config
func WithPlatform(p domain.Platform) Option { return func(b *build) { b.platform = p } }

// New constructs the collector module. It does not mount any routes
func New(deps modkit.Deps, options ...Option) (*Module, error) {
	deps = deps.WithDefaults()
	if deps.PG == nil {
		return nil, errors.New("collector: postgres is required")
	}
	opts := FromConfig(deps.Cfg)

	var b build
	for _, o := range options {
		o(&b)
	}
	if b.platform == nil {
		d := DiscordFromConfig(deps.Cfg)
		c, err := discord.NewClient(discord.Options{
			Token:          d.Token,
			PageSize:       d.PageSize,
			Timeout:        d.Timeout,
			MaxRestRetries: d.MaxRestRetries,
		})
		if err != nil {
			return nil, err
		}
		b.platform = c
	}

	// checkpoint transactions carry a server side statement budget
	db := repokit.WithBeginHooks(deps.PG, repokit.StatementTimeout(opts.CheckpointTimeout))

	jobs := registry.New(opts.Retention)
	svc := service.New(db, repo.NewPG(), b.platform, jobs, service.Config{
		MaxRetries:        opts.MaxRetries,
		RetryBase:         opts.RetryBase,
		FetchTimeout:      opts.FetchTimeout,
		CheckpointTimeout: opts.CheckpointTimeout,
		MaxDuration:       opts.MaxDuration,
		MaxChannels:       opts.MaxChannels,
		ProgressEvery:     opts.ProgressEvery,
	}).WithMetrics(deps.Metrics)
	if opts.DailyRollups {
		svc.WithDailySink(repo.NewCHDaily(deps.CH))
	}

	m := &Module{deps: deps, opts: opts, svc: svc}
	m.ports = Ports{Collector: svc, Jobs: jobs}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "collector" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op; the api collect module exposes the collector over http
func (m *Module) MountRoutes(phttp.Router) {}

// Service returns the running collector
func (m *Module) Service() *service.Service { return m.svc }

// Migrate applies the embedded schema when auto migration is enabled
func (m *Module) Migrate(ctx context.Context) error {
	if !m.opts.AutoMigrate {
		return nil
	}
	if err := repo.MigratePG(ctx, m.deps.PG); err != nil {
		return err
	}
	if m.deps.CH != nil && m.opts.DailyRollups {
		return repo.MigrateCH(ctx, m.deps.CH)
	}
	return nil
}

// Shutdown cancels running jobs and waits for them to record their final state
func (m *Module) Shutdown(ctx context.Context) error { return m.svc.Shutdown(ctx) }
