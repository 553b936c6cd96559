// Package service contains stats workflows
package service

import (
	"context"
	"fmt"
	"strings"

	"msgstats/internal/modkit/repokit"
	"msgstats/internal/platform/cache"
	perr "msgstats/internal/platform/errors"
	"msgstats/internal/platform/metrics"
	"msgstats/internal/services/api/stats/domain"
	"msgstats/internal/services/api/stats/repo"
)

const (
	defaultLimit = 50
	jobsLimit    = 20
)

// Service defines the stats service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the stats service
type Svc struct {
	Repo    repo.Repo
	binder  repokit.Binder[repo.Repo]
	db      repokit.TxRunner
	cache   cache.Cache
	metrics metrics.Recorder
}

// New constructs a stats service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("stats.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("stats.Service requires a non nil Repo binder")
	}
	return &Svc{
		Repo:    binder.Bind(db),
		binder:  binder,
		db:      db,
		cache:   cache.New(cache.Config{}),
		metrics: metrics.New(false),
	}
}

// WithCache caches read results; nil keeps the current cache
func (s *Svc) WithCache(c cache.Cache) *Svc {
	if c != nil {
		s.cache = c
	}
	return s
}

// WithMetrics records cache hits and misses; nil keeps the current recorder
func (s *Svc) WithMetrics(m metrics.Recorder) *Svc {
	if m != nil {
		s.metrics = m
	}
	return s
}

// cached serves key from the cache or fills it with load
func cached[T any](s *Svc, key string, load func() (T, error)) (T, error) {
	if v, ok := cache.GetJSON[T](s.cache, key); ok {
		s.metrics.CacheHit()
		return v, nil
	}
	s.metrics.CacheMiss()
	v, err := load()
	if err != nil {
		return v, err
	}
	cache.SetJSON(s.cache, key, v)
	return v, nil
}

// Guilds lists guilds that have statistics
func (s *Svc) Guilds(ctx context.Context) ([]domain.GuildSummary, error) {
	return cached(s, "guilds", func() ([]domain.GuildSummary, error) {
		return s.Repo.Guilds(ctx)
	})
}

// Guild ranks users and channels of one guild within a window
func (s *Svc) Guild(ctx context.Context, in domain.GuildQuery) (domain.GuildReport, error) {
	in.GuildID = strings.TrimSpace(in.GuildID)
	if in.GuildID == "" {
		return domain.GuildReport{}, perr.WithField(perr.InvalidArgf("guild_id is required"), "guild_id")
	}
	if in.Window == "" {
		in.Window = domain.WindowAll
	}
	if _, err := repo.Column(in.Window); err != nil {
		return domain.GuildReport{}, err
	}
	if in.Limit <= 0 {
		in.Limit = defaultLimit
	}
	f := repo.Filter{GuildID: in.GuildID, UserID: in.UserID, ChannelID: in.ChannelID, Limit: in.Limit}
	key := fmt.Sprintf("guild:%s:%s:%s:%s:%d", f.GuildID, in.Window, f.UserID, f.ChannelID, f.Limit)

	return cached(s, key, func() (domain.GuildReport, error) {
		out := domain.GuildReport{GuildID: in.GuildID, Window: in.Window}
		var err error
		if out.Totals, err = s.Repo.Totals(ctx, in.Window, f); err != nil {
			return out, err
		}
		if out.Users, err = s.Repo.TopUsers(ctx, in.Window, f); err != nil {
			return out, err
		}
		if out.Channels, err = s.Repo.TopChannels(ctx, in.Window, f); err != nil {
			return out, err
		}
		return out, nil
	})
}

// User returns every statistic a user has in a guild
func (s *Svc) User(ctx context.Context, guildID, userID string) (domain.UserDetail, error) {
	if guildID == "" || userID == "" {
		return domain.UserDetail{}, perr.InvalidArgf("guild and user are required")
	}
	return cached(s, "user:"+guildID+":"+userID, func() (domain.UserDetail, error) {
		d, err := s.Repo.UserChannels(ctx, guildID, userID)
		if err != nil {
			return d, err
		}
		if len(d.Channels) == 0 {
			return d, perr.NotFoundf("no statistics for user %s in guild %s", userID, guildID)
		}
		d.Totals = domain.Totals{Users: 1, Channels: int64(len(d.Channels))}
		for _, c := range d.Channels {
			d.Totals.Messages += c.Total
		}
		return d, nil
	})
}

// Jobs lists recent recorded jobs of a guild; never cached so running jobs stay current
func (s *Svc) Jobs(ctx context.Context, guildID string, limit int) ([]domain.JobSummary, error) {
	if guildID == "" {
		return nil, perr.InvalidArgf("guild is required")
	}
	if limit <= 0 || limit > 200 {
		limit = jobsLimit
	}
	return s.Repo.Jobs(ctx, guildID, limit)
}
