// @title         msgstats API
// @version       0.1.0
// @description   Collection jobs and message statistics

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"msgstats/internal/modkit"
	"msgstats/internal/modkit/repokit"
	"msgstats/internal/platform/cache"
	"msgstats/internal/platform/config"
	"msgstats/internal/platform/logger"
	"msgstats/internal/platform/metrics"
	phttp "msgstats/internal/platform/net/http"
	"msgstats/internal/platform/store"

	"msgstats/internal/services/api"
	collectormod "msgstats/internal/services/collector/module"

	"golang.org/x/sync/errgroup"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.FromConfig(root, "api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, st)

	opts := api.FromConfig(root)
	opts.Store = st
	opts.Logger = l
	opts.Metrics = metrics.New(opts.EnableMetrics)
	opts.Cache = cache.New(cache.Config{
		SizeMB:     apiCfg.MayInt("CACHE_MB", 32),
		TTLSeconds: apiCfg.MayInt("CACHE_TTL", 30),
	})

	collector, err := collectormod.New(modkit.Deps{
		Cfg:     root,
		PG:      st.PG,
		CH:      st.CH,
		Metrics: opts.Metrics,
	})
	if err != nil {
		l.Panic().Err(err).Msg("collector setup failed")
	}
	if err := collector.Migrate(ctx); err != nil {
		l.Panic().Err(err).Msg("schema migration failed")
	}
	opts.Collector = collector

	srv := phttp.NewServer(apiCfg)
	api.Mount(srv.Router(), opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		l.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			l.Warn().Err(err).Msg("http shutdown")
		}
		return collector.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("api stopped with error")
		os.Exit(1)
	}
}
