package discord

import (
	"context"
	"io"
	"time"

	"github.com/bwmarrin/discordgo"

	"msgstats/internal/services/collector/domain"
)

// historyReader pages ChannelMessages backwards from the newest message
type historyReader struct {
	api       restAPI
	channelID string
	after     *time.Time
	pageSize  int

	buf    []*discordgo.Message
	before string
	done   bool
}

// Next returns the next older message or io.EOF
func (r *historyReader) Next(ctx context.Context) (domain.Event, error) {
	for len(r.buf) == 0 {
		if r.done {
			return domain.Event{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return domain.Event{}, err
		}
		if err := r.fill(ctx); err != nil {
			return domain.Event{}, err
		}
	}

	m := r.buf[0]
	r.buf = r.buf[1:]
	if r.after != nil && m.Timestamp.Before(*r.after) {
		// newest first: everything further back is older still
		r.buf, r.done = nil, true
		return domain.Event{}, io.EOF
	}
	return toEvent(m), nil
}

func (r *historyReader) fill(ctx context.Context) error {
	msgs, err := r.api.ChannelMessages(r.channelID, r.pageSize, r.before, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return mapErr(err, "fetch history of "+r.channelID)
	}
	if len(msgs) < r.pageSize {
		r.done = true
	}
	if len(msgs) > 0 {
		r.before = msgs[len(msgs)-1].ID
	}
	r.buf = msgs
	return nil
}

// Close releases nothing; the reader holds no connection
func (r *historyReader) Close() error {
	r.buf, r.done = nil, true
	return nil
}

func toEvent(m *discordgo.Message) domain.Event {
	ev := domain.Event{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Timestamp: m.Timestamp.UTC(),
	}
	if u := m.Author; u != nil {
		ev.AuthorID = u.ID
		ev.Bot = u.Bot
		ev.System = u.System
		ev.Author = domain.Profile{
			Username:    u.Username,
			DisplayName: u.GlobalName,
			AvatarURL:   u.AvatarURL(""),
		}
		if m.Member != nil && m.Member.Nick != "" {
			ev.Author.DisplayName = m.Member.Nick
		}
	}
	return ev
}
