package repo

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"msgstats/internal/modkit/repokit"
	perr "msgstats/internal/platform/errors"
	"msgstats/internal/services/api/stats/domain"

	"github.com/stretchr/testify/require"
)

type recQ struct {
	sql  []string
	args [][]any
	rows repokit.Rows
}

// fakeRows assigns each row's values to the scan targets in order
type fakeRows struct {
	data [][]any
	i    int
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.data[r.i-1][i]))
	}
	return nil
}

func (r *fakeRows) Err() error        { return nil }
func (r *fakeRows) Close()            {}
func (r *fakeRows) Columns() []string { return nil }

func (q *recQ) Exec(context.Context, string, ...any) (repokit.CommandTag, error) { return nil, nil }

func (q *recQ) Query(_ context.Context, sql string, args ...any) (repokit.Rows, error) {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	if q.rows != nil {
		return q.rows, nil
	}
	return nil, errors.New("boom")
}

func (q *recQ) QueryRow(context.Context, string, ...any) repokit.Row { return nil }

func TestColumn(t *testing.T) {
	cases := map[domain.Window]string{
		"":               "total_messages",
		domain.WindowAll: "total_messages",
		domain.Window7d:  "messages_last_7d",
		domain.Window30d: "messages_last_30d",
		domain.Window90d: "messages_last_90d",
	}
	for w, want := range cases {
		got, err := Column(w)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := Column("1y; drop table users")
	require.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))
}

func TestTopUsersReadsWindowColumn(t *testing.T) {
	q := &recQ{}
	r := NewPG().Bind(q)

	_, err := r.TopUsers(context.Background(), domain.Window30d, Filter{GuildID: "1", ChannelID: "100", Limit: 10})
	require.Error(t, err)
	require.True(t, perr.IsCode(err, perr.ErrorCodeDB))
	require.Len(t, q.sql, 1)
	require.True(t, strings.Contains(q.sql[0], "sum(s.messages_last_30d)"))
	require.Equal(t, []any{"1", "", "100", 10}, q.args[0])
}

func TestTopChannelsRejectsUnknownWindow(t *testing.T) {
	q := &recQ{}
	_, err := NewPG().Bind(q).TopChannels(context.Background(), "1y", Filter{GuildID: "1"})
	require.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))
	require.Empty(t, q.sql)
}

func TestGuildsScansRows(t *testing.T) {
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	q := &recQ{rows: &fakeRows{data: [][]any{
		{"1", "Alpha", int64(3), int64(2), int64(40), &at},
		{"2", "Beta", int64(1), int64(1), int64(5), (*time.Time)(nil)},
	}}}

	got, err := NewPG().Bind(q).Guilds(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Alpha", got[0].Name)
	require.EqualValues(t, 40, got[0].Messages)
	require.NotNil(t, got[0].LastCollected)
	require.Nil(t, got[1].LastCollected)
}

func TestJobsEmptyIsNotNil(t *testing.T) {
	q := &recQ{rows: &fakeRows{}}
	got, err := NewPG().Bind(q).Jobs(context.Background(), "1", 20)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
	require.Equal(t, []any{"1", 20}, q.args[0])
}
