// Package domain holds DTOs for stats http and service contracts
package domain

import "time"

// Window names the rolling count a ranking reads
type Window string

// Windows accepted by the guild query
const (
	WindowAll Window = "all"
	Window7d  Window = "7d"
	Window30d Window = "30d"
	Window90d Window = "90d"
)

// GuildSummary is one guild that has collected statistics
type GuildSummary struct {
	GuildID       string     `json:"guild_id" example:"111111111111111111"`
	Name          string     `json:"name" example:"gophers"`
	Users         int64      `json:"users" example:"120"`
	Channels      int64      `json:"channels" example:"14"`
	Messages      int64      `json:"messages" example:"48211"`
	LastCollected *time.Time `json:"last_collected,omitempty"`
}

// GuildQuery ranks users and channels of one guild by a window
type GuildQuery struct {
	GuildID   string `json:"guild_id" validate:"required,snowflake" example:"111111111111111111"`
	Window    Window `json:"window,omitempty" validate:"omitempty,oneof=all 7d 30d 90d" example:"30d"`
	UserID    string `json:"user_id,omitempty" validate:"omitempty,snowflake"`
	ChannelID string `json:"channel_id,omitempty" validate:"omitempty,snowflake"`
	Limit     int    `json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"50"`
}

// Totals sums a guild report
type Totals struct {
	Messages int64 `json:"messages"`
	Users    int64 `json:"users"`
	Channels int64 `json:"channels"`
}

// UserRow is a user ranked by message count
type UserRow struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Messages    int64  `json:"messages"`
}

// ChannelRow is a channel ranked by message count
type ChannelRow struct {
	ChannelID string `json:"channel_id"`
	Name      string `json:"name"`
	Messages  int64  `json:"messages"`
}

// GuildReport answers a GuildQuery
type GuildReport struct {
	GuildID  string       `json:"guild_id"`
	Window   Window       `json:"window"`
	Totals   Totals       `json:"totals"`
	Users    []UserRow    `json:"users"`
	Channels []ChannelRow `json:"channels"`
}

// UserChannel is one persisted statistic of a user
type UserChannel struct {
	ChannelID   string    `json:"channel_id"`
	Name        string    `json:"name"`
	Total       int64     `json:"total"`
	Last7d      int64     `json:"last_7d"`
	Last30d     int64     `json:"last_30d"`
	Last90d     int64     `json:"last_90d"`
	FirstSeen   time.Time `json:"first_message_at"`
	LastSeen    time.Time `json:"last_message_at"`
	CollectedAt time.Time `json:"last_collected_at"`
}

// UserDetail is every statistic a user has in one guild
type UserDetail struct {
	GuildID     string        `json:"guild_id"`
	UserID      string        `json:"user_id"`
	Username    string        `json:"username"`
	DisplayName string        `json:"display_name,omitempty"`
	AvatarURL   string        `json:"avatar_url,omitempty"`
	Totals      Totals        `json:"totals"`
	Channels    []UserChannel `json:"channels"`
}

// JobSummary is a recorded collection job
type JobSummary struct {
	ID                string     `json:"job_id"`
	GuildID           string     `json:"guild_id"`
	TargetUserID      string     `json:"target_user_id,omitempty"`
	Status            string     `json:"status"`
	ChannelsTotal     int        `json:"channels_total"`
	ChannelsDone      int        `json:"channels_done"`
	ChannelsSkipped   int        `json:"channels_skipped"`
	MessagesProcessed int        `json:"messages_processed"`
	UsersUpdated      int        `json:"users_updated"`
	Error             string     `json:"error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}
