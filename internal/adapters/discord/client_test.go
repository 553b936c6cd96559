package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	perr "msgstats/internal/platform/errors"
)

type fakeAPI struct {
	channels []*discordgo.Channel
	perms    map[string]int64
	permErr  map[string]error
	history  []*discordgo.Message // newest first
	histErr  error
	befores  []string
	userErr  error

	// userFails fails that many User calls with userErr before succeeding; 0 fails them all
	userFails int
	userCalls int
}

func (f *fakeAPI) User(string, ...discordgo.RequestOption) (*discordgo.User, error) {
	f.userCalls++
	if f.userErr != nil && (f.userFails == 0 || f.userCalls <= f.userFails) {
		return nil, f.userErr
	}
	return &discordgo.User{ID: "bot"}, nil
}

func (f *fakeAPI) Guild(id string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	return &discordgo.Guild{ID: id, Name: "Guild " + id}, nil
}

func (f *fakeAPI) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return f.channels, nil
}

func (f *fakeAPI) UserChannelPermissions(_, channelID string, _ ...discordgo.RequestOption) (int64, error) {
	if err := f.permErr[channelID]; err != nil {
		return 0, err
	}
	return f.perms[channelID], nil
}

func (f *fakeAPI) ChannelMessages(
	_ string, limit int, beforeID, _, _ string, _ ...discordgo.RequestOption,
) ([]*discordgo.Message, error) {
	f.befores = append(f.befores, beforeID)
	if f.histErr != nil {
		return nil, f.histErr
	}
	start := 0
	if beforeID != "" {
		for i, m := range f.history {
			if m.ID == beforeID {
				start = i + 1
			}
		}
	}
	end := min(start+limit, len(f.history))
	return f.history[start:end], nil
}

func restErr(status, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "nope"},
	}
}

func history(n int, newest time.Time) []*discordgo.Message {
	out := make([]*discordgo.Message, 0, n)
	for i := range n {
		out = append(out, &discordgo.Message{
			ID:        fmt.Sprintf("m%03d", n-i),
			ChannelID: "c1",
			Timestamp: newest.Add(-time.Duration(i) * 24 * time.Hour),
			Author:    &discordgo.User{ID: fmt.Sprintf("u%d", i%2), Username: "user"},
		})
	}
	return out
}

func TestListChannels(t *testing.T) {
	t.Parallel()
	read := int64(discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory)
	api := &fakeAPI{
		channels: []*discordgo.Channel{
			{ID: "3", Name: "later", Type: discordgo.ChannelTypeGuildText, Position: 2},
			{ID: "1", Name: "general", Type: discordgo.ChannelTypeGuildText, Position: 0},
			{ID: "9", Name: "Category", Type: discordgo.ChannelTypeGuildCategory, Position: 0},
			{ID: "2", Name: "news", Type: discordgo.ChannelTypeGuildNews, Position: 1},
			{ID: "4", Name: "locked", Type: discordgo.ChannelTypeGuildText, Position: 3},
		},
		perms: map[string]int64{
			"1": read,
			"2": discordgo.PermissionAdministrator,
			"3": int64(discordgo.PermissionViewChannel),
		},
		permErr: map[string]error{"4": restErr(403, discordgo.ErrCodeMissingAccess)},
	}
	c := newWithAPI(api, 0)

	got, err := c.ListChannels(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, []string{"1", "2", "3", "4"}, []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID})
	require.True(t, got[0].Readable)
	require.Equal(t, "text", got[0].Type)
	require.True(t, got[1].Readable, "administrator reads everything")
	require.Equal(t, "news", got[1].Type)
	require.False(t, got[2].Readable, "view without history is not enough")
	require.False(t, got[3].Readable)
}

func TestListChannels_SelfLookupFails(t *testing.T) {
	t.Parallel()
	c := newWithAPI(&fakeAPI{userErr: restErr(401, 0)}, 0)
	_, err := c.ListChannels(context.Background(), "g1")
	require.True(t, perr.IsCode(err, perr.ErrorCodeUnauthorized))
}

func TestListChannels_SelfLookupRecovers(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{
		channels:  []*discordgo.Channel{{ID: "1", Name: "general", Type: discordgo.ChannelTypeGuildText}},
		perms:     map[string]int64{"1": discordgo.PermissionAdministrator},
		userErr:   restErr(502, 0),
		userFails: 1,
	}
	c := newWithAPI(api, 0)

	_, err := c.ListChannels(context.Background(), "g1")
	require.True(t, perr.IsCode(err, perr.ErrorCodeUnavailable))

	got, err := c.ListChannels(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Readable)

	_, err = c.ListChannels(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, 2, api.userCalls, "the bot id is kept once looked up")
}

func TestHistory_PagesNewestFirst(t *testing.T) {
	t.Parallel()
	newest := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{history: history(5, newest)}
	c := newWithAPI(api, 2)

	r, err := c.FetchHistory(context.Background(), "c1", nil)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var ids []string
	for {
		ev, err := r.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		ids = append(ids, ev.ID)
	}
	require.Equal(t, []string{"m005", "m004", "m003", "m002", "m001"}, ids)
	require.Equal(t, []string{"", "m004", "m002"}, api.befores)
}

func TestHistory_StopsAtCutoff(t *testing.T) {
	t.Parallel()
	newest := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{history: history(50, newest)}
	c := newWithAPI(api, 10)

	after := newest.Add(-72 * time.Hour)
	r, err := c.FetchHistory(context.Background(), "c1", &after)
	require.NoError(t, err)

	n := 0
	for {
		ev, err := r.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		require.False(t, ev.Timestamp.Before(after))
		n++
	}
	require.Equal(t, 4, n)
	require.Len(t, api.befores, 1, "no page is fetched past the cutoff")
}

func TestHistory_ErrorMapping(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		code perr.ErrorCode
	}{
		{"missing access", restErr(403, discordgo.ErrCodeMissingAccess), perr.ErrorCodeForbidden},
		{"missing permissions code only", restErr(400, discordgo.ErrCodeMissingPermissions), perr.ErrorCodeForbidden},
		{"rate limited", restErr(429, 0), perr.ErrorCodeTooManyRequests},
		{"bad gateway", restErr(502, 0), perr.ErrorCodeUnavailable},
		{"not found", restErr(404, 10003), perr.ErrorCodeNotFound},
		{"other", errors.New("weird"), perr.ErrorCodeUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newWithAPI(&fakeAPI{histErr: tc.err}, 0)
			r, err := c.FetchHistory(context.Background(), "c1", nil)
			require.NoError(t, err)
			_, err = r.Next(context.Background())
			require.Equal(t, tc.code, perr.CodeOf(err))
		})
	}
}

func TestToEvent(t *testing.T) {
	t.Parallel()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := toEvent(&discordgo.Message{
		ID: "m", ChannelID: "c", Timestamp: ts,
		Author: &discordgo.User{ID: "u", Username: "alice", GlobalName: "Alice"},
		Member: &discordgo.Member{Nick: "Al"},
	})
	require.Equal(t, "u", ev.AuthorID)
	require.Equal(t, "Al", ev.Author.DisplayName)
	require.False(t, ev.System)

	join := toEvent(&discordgo.Message{Type: discordgo.MessageTypeGuildMemberJoin, Author: &discordgo.User{ID: "u"}})
	require.False(t, join.System, "member join by a person still counts")
	require.False(t, join.Bot)

	pin := toEvent(&discordgo.Message{Type: discordgo.MessageTypeChannelPinnedMessage, Author: &discordgo.User{ID: "u"}})
	require.False(t, pin.System)

	sys := toEvent(&discordgo.Message{Author: &discordgo.User{ID: "s", System: true}})
	require.True(t, sys.System)

	bot := toEvent(&discordgo.Message{Author: &discordgo.User{ID: "b", Bot: true}})
	require.True(t, bot.Bot)
}

func TestNewClient_RequiresToken(t *testing.T) {
	t.Parallel()
	_, err := NewClient(Options{Token: "  "})
	require.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))

	c, err := NewClient(Options{Token: "Bot abc", PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 100, c.pageSize)
}
