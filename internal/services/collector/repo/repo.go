// Package repo persists collection checkpoints and job rows
package repo

import (
	"context"

	"msgstats/internal/modkit/repokit"
	perr "msgstats/internal/platform/errors"
	"msgstats/internal/platform/store"
	pstrings "msgstats/internal/platform/strings"
	"msgstats/internal/services/collector/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

// UpsertGuild creates the guild row or refreshes its name on drift
func (r *queries) UpsertGuild(ctx context.Context, g domain.GuildInfo) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO guilds (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, updated_at = now()
		WHERE guilds.name IS DISTINCT FROM excluded.name
	`, g.ID, g.Name)
	return perr.FromPostgresf(err, "upsert guild %s", g.ID)
}

// UpsertChannel creates the channel row or refreshes name and type on drift
func (r *queries) UpsertChannel(ctx context.Context, guildID string, c domain.Channel) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO channels (id, guild_id, name, type) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, type = excluded.type, guild_id = excluded.guild_id, updated_at = now()
		WHERE channels.name IS DISTINCT FROM excluded.name
		   OR channels.type IS DISTINCT FROM excluded.type
		   OR channels.guild_id IS DISTINCT FROM excluded.guild_id
	`, c.ID, guildID, c.Name, c.Type)
	return perr.FromPostgresf(err, "upsert channel %s", c.ID)
}

// UpsertUser creates the user row; empty profile fields never overwrite known ones
func (r *queries) UpsertUser(ctx context.Context, userID string, p domain.Profile) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (id, username, display_name, avatar_url) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET username     = COALESCE(NULLIF(excluded.username, ''), users.username),
		    display_name = COALESCE(NULLIF(excluded.display_name, ''), users.display_name),
		    avatar_url   = COALESCE(NULLIF(excluded.avatar_url, ''), users.avatar_url),
		    updated_at   = now()
		WHERE (excluded.username <> '' AND users.username IS DISTINCT FROM excluded.username)
		   OR (excluded.display_name <> '' AND users.display_name IS DISTINCT FROM excluded.display_name)
		   OR (excluded.avatar_url <> '' AND users.avatar_url IS DISTINCT FROM excluded.avatar_url)
	`, userID, p.Username, p.DisplayName, p.AvatarURL)
	return perr.FromPostgresf(err, "upsert user %s", userID)
}

// UpsertStatistic replaces the counters of one (user, channel) row
func (r *queries) UpsertStatistic(ctx context.Context, s domain.Statistic) error {
	method := s.Method
	if method == "" {
		method = domain.MethodFullScan
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO message_statistics (
			user_id, channel_id, guild_id,
			total_messages, messages_last_7d, messages_last_30d, messages_last_90d,
			first_message_at, last_message_at, collection_method, last_collected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, channel_id) DO UPDATE SET
			guild_id          = excluded.guild_id,
			total_messages    = excluded.total_messages,
			messages_last_7d  = excluded.messages_last_7d,
			messages_last_30d = excluded.messages_last_30d,
			messages_last_90d = excluded.messages_last_90d,
			first_message_at  = excluded.first_message_at,
			last_message_at   = excluded.last_message_at,
			collection_method = excluded.collection_method,
			last_collected_at = excluded.last_collected_at
	`,
		s.UserID, s.ChannelID, s.GuildID,
		s.Counts.Total, s.Counts.Last7d, s.Counts.Last30d, s.Counts.Last90d,
		s.Counts.FirstSeen.UTC(), s.Counts.LastSeen.UTC(), string(method), s.CollectedAt.UTC(),
	)
	return perr.FromPostgresf(err, "upsert statistic %s/%s", s.UserID, s.ChannelID)
}

// InsertJob records a freshly created job (idempotent)
func (r *queries) InsertJob(ctx context.Context, j domain.JobRow) error {
	channels := j.Channels
	if channels == nil {
		channels = []string{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO collection_jobs (id, guild_id, target_user_id, channels, days_back, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, j.ID, j.GuildID, pstrings.SQLNull(pstrings.Deref(j.TargetUserID)), channels, j.DaysBack, string(j.Status), j.CreatedAt.UTC())
	return perr.FromPostgresf(err, "insert job %s", j.ID)
}

// StartJob marks the job running with its channel total
func (r *queries) StartJob(ctx context.Context, j domain.JobRow) error {
	err := store.ExecOne(ctx, r.q, `
		UPDATE collection_jobs
		SET status = $2, channels_total = $3, started_at = $4
		WHERE id = $1
	`, j.ID, string(j.Status), j.ChannelsTotal, j.StartedAt)
	return jobUpdateErr(err, "start", j.ID)
}

// CheckpointJob stores progress counters
func (r *queries) CheckpointJob(ctx context.Context, j domain.JobRow) error {
	err := store.ExecOne(ctx, r.q, `
		UPDATE collection_jobs
		SET channels_done = $2, channels_skipped = $3, messages_processed = $4, users_updated = $5
		WHERE id = $1
	`, j.ID, j.ChannelsDone, j.ChannelsSkipped, j.MessagesProcessed, j.UsersUpdated)
	return jobUpdateErr(err, "checkpoint", j.ID)
}

// FinishJob stores the terminal state and summary
func (r *queries) FinishJob(ctx context.Context, j domain.JobRow) error {
	err := store.ExecOne(ctx, r.q, `
		UPDATE collection_jobs SET
			status = $2,
			channels_total = $3,
			channels_done = $4,
			channels_skipped = $5,
			messages_processed = $6,
			users_updated = $7,
			error = NULLIF($8, ''),
			started_at = COALESCE(started_at, $9),
			completed_at = $10
		WHERE id = $1
	`,
		j.ID, string(j.Status), j.ChannelsTotal, j.ChannelsDone, j.ChannelsSkipped,
		j.MessagesProcessed, j.UsersUpdated, j.Error, j.StartedAt, j.CompletedAt,
	)
	return jobUpdateErr(err, "finish", j.ID)
}

// jobUpdateErr keeps a missing job row distinguishable from a database failure
func jobUpdateErr(err error, op, id string) error {
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return perr.NotFoundf("%s job %s: no collection_jobs row", op, id)
	}
	return perr.FromPostgresf(err, "%s job %s", op, id)
}
