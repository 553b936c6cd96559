// Package discord reads guild channels and message history over the Discord REST api
package discord

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	perr "msgstats/internal/platform/errors"
	"msgstats/internal/platform/logger"
	"msgstats/internal/services/collector/domain"
)

const (
	defaultPageSize = 100
	defaultTimeout  = 20 * time.Second
	defaultRetries  = 3
)

// Options configures the Client
type Options struct {
	// Token is the bot token without the "Bot " prefix
	Token string

	// PageSize is messages per history request, 1..100
	PageSize int

	// Timeout bounds a single REST call
	Timeout time.Duration

	// MaxRestRetries is how often discordgo retries a failed or rate limited call
	MaxRestRetries int
}

// restAPI is the subset of *discordgo.Session the adapter calls
type restAPI interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	ChannelMessages(
		channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption,
	) ([]*discordgo.Message, error)
}

// Client implements domain.Platform
type Client struct {
	api      restAPI
	pageSize int
	log      logger.Logger

	selfMu sync.Mutex
	selfID string
}

var _ domain.Platform = (*Client)(nil)

// NewClient creates a REST only session; no gateway connection is opened
func NewClient(o Options) (*Client, error) {
	tok := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(o.Token), "Bot "))
	if tok == "" {
		return nil, perr.WithField(perr.InvalidArgf("discord token is required"), "token")
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRestRetries <= 0 {
		o.MaxRestRetries = defaultRetries
	}

	s, err := discordgo.New("Bot " + tok)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "discord session")
	}
	s.Client = &http.Client{Timeout: o.Timeout}
	s.MaxRestRetries = o.MaxRestRetries
	s.ShouldRetryOnRateLimit = true
	s.StateEnabled = false

	return newWithAPI(s, o.PageSize), nil
}

func newWithAPI(api restAPI, pageSize int) *Client {
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}
	return &Client{api: api, pageSize: pageSize, log: *logger.Named("discord")}
}

// self returns the bot's own user id; only a successful lookup is kept
func (c *Client) self(ctx context.Context) (string, error) {
	c.selfMu.Lock()
	defer c.selfMu.Unlock()
	if c.selfID != "" {
		return c.selfID, nil
	}
	u, err := c.api.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", mapErr(err, "fetch bot user")
	}
	c.selfID = u.ID
	return c.selfID, nil
}

// Guild returns the guild id and name
func (c *Client) Guild(ctx context.Context, guildID string) (domain.GuildInfo, error) {
	g, err := c.api.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return domain.GuildInfo{}, mapErr(err, "fetch guild "+guildID)
	}
	return domain.GuildInfo{ID: g.ID, Name: g.Name}, nil
}

// ListChannels returns the guild's message channels in display order with read access resolved
func (c *Client) ListChannels(ctx context.Context, guildID string) ([]domain.Channel, error) {
	chs, err := c.api.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapErr(err, "list channels of "+guildID)
	}
	me, err := c.self(ctx)
	if err != nil {
		return nil, err
	}

	msgChans := make([]*discordgo.Channel, 0, len(chs))
	for _, ch := range chs {
		if _, ok := channelTypes[ch.Type]; ok {
			msgChans = append(msgChans, ch)
		}
	}
	sort.SliceStable(msgChans, func(i, j int) bool {
		if msgChans[i].Position != msgChans[j].Position {
			return msgChans[i].Position < msgChans[j].Position
		}
		return msgChans[i].ID < msgChans[j].ID
	})

	out := make([]domain.Channel, 0, len(msgChans))
	for _, ch := range msgChans {
		perms, err := c.api.UserChannelPermissions(me, ch.ID, discordgo.WithContext(ctx))
		readable := err == nil && canReadHistory(perms)
		if err != nil {
			c.log.Debug().Err(err).Str("channel_id", ch.ID).Msg("discord permission lookup failed; treating channel as unreadable")
		}
		out = append(out, domain.Channel{
			ID:       ch.ID,
			Name:     ch.Name,
			Type:     channelTypes[ch.Type],
			Readable: readable,
		})
	}
	return out, nil
}

// FetchHistory opens a newest first reader; after bounds it below when set
func (c *Client) FetchHistory(_ context.Context, channelID string, after *time.Time) (domain.HistoryReader, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, perr.InvalidArgf("channel id is required")
	}
	return &historyReader{api: c.api, channelID: channelID, after: after, pageSize: c.pageSize}, nil
}

var channelTypes = map[discordgo.ChannelType]string{
	discordgo.ChannelTypeGuildText:         "text",
	discordgo.ChannelTypeGuildNews:         "news",
	discordgo.ChannelTypeGuildVoice:        "voice",
	discordgo.ChannelTypeGuildPublicThread: "thread",
}

func canReadHistory(perms int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	need := int64(discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory)
	return perms&need == need
}
