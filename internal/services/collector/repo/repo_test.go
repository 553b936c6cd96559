package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"msgstats/internal/core/windows"
	"msgstats/internal/modkit/repokit"
	perr "msgstats/internal/platform/errors"
	"msgstats/internal/services/collector/domain"
)

type call struct {
	sql  string
	args []any
}

type recQ struct {
	calls []call
	err   error
	// missing reports zero affected rows
	missing bool
}

type tag int64

func (tag) String() string        { return "UPDATE" }
func (t tag) RowsAffected() int64 { return int64(t) }

func (r *recQ) Exec(_ context.Context, sql string, args ...any) (repokit.CommandTag, error) {
	r.calls = append(r.calls, call{sql: sql, args: args})
	if r.missing {
		return tag(0), r.err
	}
	return tag(1), r.err
}

func (r *recQ) Query(context.Context, string, ...any) (repokit.Rows, error) {
	return nil, errors.New("not used")
}

func (r *recQ) QueryRow(context.Context, string, ...any) repokit.Row { return nil }

func TestUpsertStatistic_ReplacesCounters(t *testing.T) {
	t.Parallel()
	q := &recQ{}
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	err := NewPG().Bind(q).UpsertStatistic(context.Background(), domain.Statistic{
		UserID: "u1", ChannelID: "c1", GuildID: "g1",
		Counts:      windows.Counts{Last7d: 1, Last30d: 2, Last90d: 3, Total: 4, FirstSeen: now, LastSeen: now},
		CollectedAt: now,
	})
	require.NoError(t, err)
	require.Len(t, q.calls, 1)

	c := q.calls[0]
	require.Contains(t, c.sql, "ON CONFLICT (user_id, channel_id) DO UPDATE")
	require.Contains(t, c.sql, "total_messages    = excluded.total_messages")
	require.NotContains(t, c.sql, "message_statistics.total_messages +")
	require.Equal(t, []any{"u1", "c1", "g1", 4, 1, 2, 3, now, now, "full_scan", now}, c.args)
}

func TestUpsertGuild_RefreshesOnDrift(t *testing.T) {
	t.Parallel()
	q := &recQ{}
	require.NoError(t, NewPG().Bind(q).UpsertGuild(context.Background(), domain.GuildInfo{ID: "g1", Name: "Guild"}))
	require.Contains(t, q.calls[0].sql, "IS DISTINCT FROM excluded.name")
}

func TestInsertJob_NullsAndDefaults(t *testing.T) {
	t.Parallel()
	q := &recQ{}
	now := time.Now().UTC()
	err := NewPG().Bind(q).InsertJob(context.Background(), domain.JobRow{
		ID: "00000000-0000-4000-8000-000000000001", GuildID: "g1", Status: domain.StatusPending, CreatedAt: now,
	})
	require.NoError(t, err)
	args := q.calls[0].args
	require.Nil(t, args[2], "no target user binds NULL")
	require.Equal(t, []string{}, args[3])
}

func TestErrorsAreMapped(t *testing.T) {
	t.Parallel()
	q := &recQ{err: &pgconn.PgError{Code: "23514", Message: "check violation"}}
	err := NewPG().Bind(q).UpsertStatistic(context.Background(), domain.Statistic{UserID: "u", ChannelID: "c"})
	require.Error(t, err)
	require.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
}

type fakeCH struct {
	table string
	rows  [][]any
	err   error
	execs []string
}

func (f *fakeCH) Insert(_ context.Context, table string, data any) error {
	f.table = table
	f.rows, _ = data.([][]any)
	return f.err
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return f.err
}

func (f *fakeCH) Query(context.Context, string, ...any) (repokit.Rows, error) { return nil, nil }
func (f *fakeCH) Close() error                                                { return nil }

func TestCHDaily_Write(t *testing.T) {
	t.Parallel()
	require.Nil(t, NewCHDaily(nil))

	ch := &fakeCH{}
	sink := NewCHDaily(ch)
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sink.WriteDaily(context.Background(), nil))
	require.Empty(t, ch.table)

	err := sink.WriteDaily(context.Background(), []domain.DailyRow{
		{GuildID: "g", ChannelID: "c", UserID: "u", Day: day, Messages: 5, CollectedAt: day},
	})
	require.NoError(t, err)
	require.Equal(t, DailyTable, ch.table)
	require.Equal(t, []any{"g", "c", "u", day, uint32(5), day}, ch.rows[0])

	ch.err = errors.New("boom")
	err = sink.WriteDaily(context.Background(), []domain.DailyRow{{Day: day}})
	require.True(t, perr.IsCode(err, perr.ErrorCodeDB))
}

func TestSchemaStatements(t *testing.T) {
	t.Parallel()
	pg, err := statements("pg.sql")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(pg), 5)
	for _, s := range pg {
		require.False(t, strings.HasSuffix(s, ";"))
	}

	ch := &fakeCH{}
	require.NoError(t, MigrateCH(context.Background(), ch))
	require.Len(t, ch.execs, 1)
	require.Contains(t, ch.execs[0], "ReplacingMergeTree(collected_at)")
}

func TestJobUpdates_MissingRowIsNotFound(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	row := domain.JobRow{ID: "00000000-0000-4000-8000-000000000002", GuildID: "g1", Status: domain.StatusRunning, StartedAt: &now}

	r := NewPG().Bind(&recQ{missing: true})
	require.True(t, perr.IsCode(r.StartJob(context.Background(), row), perr.ErrorCodeNotFound))
	require.True(t, perr.IsCode(r.CheckpointJob(context.Background(), row), perr.ErrorCodeNotFound))
	require.True(t, perr.IsCode(r.FinishJob(context.Background(), row), perr.ErrorCodeNotFound))

	require.NoError(t, NewPG().Bind(&recQ{}).FinishJob(context.Background(), row))
}
