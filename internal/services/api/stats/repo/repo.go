// Package repo provides postgres access for stats
package repo

import (
	"context"
	"fmt"

	"msgstats/internal/modkit/repokit"
	perr "msgstats/internal/platform/errors"
	"msgstats/internal/platform/store"
	"msgstats/internal/services/api/stats/domain"
)

// Filter narrows a guild ranking
type Filter struct {
	GuildID   string
	UserID    string
	ChannelID string
	Limit     int
}

// Repo is the read surface over the statistics tables
type Repo interface {
	Guilds(ctx context.Context) ([]domain.GuildSummary, error)
	Totals(ctx context.Context, w domain.Window, f Filter) (domain.Totals, error)
	TopUsers(ctx context.Context, w domain.Window, f Filter) ([]domain.UserRow, error)
	TopChannels(ctx context.Context, w domain.Window, f Filter) ([]domain.ChannelRow, error)
	UserChannels(ctx context.Context, guildID, userID string) (domain.UserDetail, error)
	Jobs(ctx context.Context, guildID string, limit int) ([]domain.JobSummary, error)
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// Column maps a window to its message_statistics column
func Column(w domain.Window) (string, error) {
	switch w {
	case domain.WindowAll, "":
		return "total_messages", nil
	case domain.Window7d:
		return "messages_last_7d", nil
	case domain.Window30d:
		return "messages_last_30d", nil
	case domain.Window90d:
		return "messages_last_90d", nil
	}
	return "", perr.WithField(perr.InvalidArgf("unknown window %q", w), "window")
}

func (r *queries) Guilds(ctx context.Context) ([]domain.GuildSummary, error) {
	const sql = `
select g.id, g.name,
	count(distinct s.user_id), count(distinct s.channel_id),
	coalesce(sum(s.total_messages), 0)::bigint, max(s.last_collected_at)
from guilds g
join message_statistics s on s.guild_id = g.id
group by g.id, g.name
order by 5 desc, g.id asc
`
	out, err := store.Many(ctx, r.q, scanGuild, sql)
	return out, perr.FromPostgres(err, "list guilds")
}

func scanGuild(row repokit.Row) (domain.GuildSummary, error) {
	var g domain.GuildSummary
	err := row.Scan(&g.GuildID, &g.Name, &g.Users, &g.Channels, &g.Messages, &g.LastCollected)
	return g, err
}

func (r *queries) Totals(ctx context.Context, w domain.Window, f Filter) (domain.Totals, error) {
	col, err := Column(w)
	if err != nil {
		return domain.Totals{}, err
	}
	sql := fmt.Sprintf(`
select coalesce(sum(%[1]s), 0)::bigint,
	count(distinct user_id) filter (where %[1]s > 0),
	count(distinct channel_id) filter (where %[1]s > 0)
from message_statistics
where guild_id = $1
and ($2 = '' or user_id = $2)
and ($3 = '' or channel_id = $3)
`, col)
	var t domain.Totals
	err = r.q.QueryRow(ctx, sql, f.GuildID, f.UserID, f.ChannelID).Scan(&t.Messages, &t.Users, &t.Channels)
	return t, perr.FromPostgresf(err, "totals for guild %s", f.GuildID)
}

func (r *queries) TopUsers(ctx context.Context, w domain.Window, f Filter) ([]domain.UserRow, error) {
	col, err := Column(w)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(`
select s.user_id, coalesce(u.username, ''), coalesce(u.display_name, ''), coalesce(u.avatar_url, ''),
	sum(s.%[1]s)::bigint as n
from message_statistics s
left join users u on u.id = s.user_id
where s.guild_id = $1
and ($2 = '' or s.user_id = $2)
and ($3 = '' or s.channel_id = $3)
group by s.user_id, u.username, u.display_name, u.avatar_url
having sum(s.%[1]s) > 0
order by n desc, s.user_id asc
limit $4
`, col)
	out, err := store.Many(ctx, r.q, scanUserRow, sql, f.GuildID, f.UserID, f.ChannelID, f.Limit)
	return out, perr.FromPostgresf(err, "top users for guild %s", f.GuildID)
}

func scanUserRow(row repokit.Row) (domain.UserRow, error) {
	var u domain.UserRow
	err := row.Scan(&u.UserID, &u.Username, &u.DisplayName, &u.AvatarURL, &u.Messages)
	return u, err
}

func (r *queries) TopChannels(ctx context.Context, w domain.Window, f Filter) ([]domain.ChannelRow, error) {
	col, err := Column(w)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(`
select s.channel_id, coalesce(c.name, ''), sum(s.%[1]s)::bigint as n
from message_statistics s
left join channels c on c.id = s.channel_id
where s.guild_id = $1
and ($2 = '' or s.user_id = $2)
and ($3 = '' or s.channel_id = $3)
group by s.channel_id, c.name
having sum(s.%[1]s) > 0
order by n desc, s.channel_id asc
limit $4
`, col)
	out, err := store.Many(ctx, r.q, scanChannelRow, sql, f.GuildID, f.UserID, f.ChannelID, f.Limit)
	return out, perr.FromPostgresf(err, "top channels for guild %s", f.GuildID)
}

func scanChannelRow(row repokit.Row) (domain.ChannelRow, error) {
	var c domain.ChannelRow
	err := row.Scan(&c.ChannelID, &c.Name, &c.Messages)
	return c, err
}

// UserChannels returns the user's statistics; an unknown user yields no channels
func (r *queries) UserChannels(ctx context.Context, guildID, userID string) (domain.UserDetail, error) {
	const sql = `
select s.channel_id, coalesce(c.name, ''),
	s.total_messages, s.messages_last_7d, s.messages_last_30d, s.messages_last_90d,
	s.first_message_at, s.last_message_at, s.last_collected_at,
	coalesce(u.username, ''), coalesce(u.display_name, ''), coalesce(u.avatar_url, '')
from message_statistics s
left join channels c on c.id = s.channel_id
left join users u on u.id = s.user_id
where s.guild_id = $1 and s.user_id = $2
order by s.total_messages desc, s.channel_id asc
`
	d := domain.UserDetail{GuildID: guildID, UserID: userID, Channels: []domain.UserChannel{}}
	rows, err := r.q.Query(ctx, sql, guildID, userID)
	if err != nil {
		return d, perr.FromPostgresf(err, "user %s in guild %s", userID, guildID)
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.UserChannel
		if err := rows.Scan(&c.ChannelID, &c.Name,
			&c.Total, &c.Last7d, &c.Last30d, &c.Last90d,
			&c.FirstSeen, &c.LastSeen, &c.CollectedAt,
			&d.Username, &d.DisplayName, &d.AvatarURL); err != nil {
			return d, perr.FromPostgres(err, "scan user channel")
		}
		d.Channels = append(d.Channels, c)
	}
	return d, perr.FromPostgresf(rows.Err(), "user %s in guild %s", userID, guildID)
}

func (r *queries) Jobs(ctx context.Context, guildID string, limit int) ([]domain.JobSummary, error) {
	const sql = `
select id::text, guild_id, coalesce(target_user_id, ''), status,
	channels_total, channels_done, channels_skipped, messages_processed, users_updated,
	coalesce(error, ''), created_at, started_at, completed_at
from collection_jobs
where guild_id = $1
order by created_at desc
limit $2
`
	out, err := store.Many(ctx, r.q, scanJob, sql, guildID, limit)
	return out, perr.FromPostgresf(err, "jobs for guild %s", guildID)
}

func scanJob(row repokit.Row) (domain.JobSummary, error) {
	var j domain.JobSummary
	err := row.Scan(&j.ID, &j.GuildID, &j.TargetUserID, &j.Status,
		&j.ChannelsTotal, &j.ChannelsDone, &j.ChannelsSkipped, &j.MessagesProcessed, &j.UsersUpdated,
		&j.Error, &j.CreatedAt, &j.StartedAt, &j.CompletedAt)
	return j, err
}
