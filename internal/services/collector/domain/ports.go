package domain

import (
	"context"
	"time"
)

// CollectorPort is what the api and cli layers call
type CollectorPort interface {
	StartCollection(ctx context.Context, req StartRequest) (Job, error)
	GetStatus(ctx context.Context, jobID string) (JobStatus, error)
	CancelJob(ctx context.Context, jobID string) bool
}

// Platform is the chat platform the collector reads from
type Platform interface {
	Guild(ctx context.Context, guildID string) (GuildInfo, error)

	// ListChannels returns every message channel of the guild in display order;
	// Readable is false when history cannot be read
	ListChannels(ctx context.Context, guildID string) ([]Channel, error)

	// FetchHistory opens a newest first reader bounded below by after when set
	FetchHistory(ctx context.Context, channelID string, after *time.Time) (HistoryReader, error)
}

// HistoryReader is a lazy, finite, non restartable message sequence
type HistoryReader interface {
	// Next returns io.EOF once the history is exhausted
	Next(ctx context.Context) (Event, error)
	Close() error
}

// StorageRepo is the transactional write surface of a checkpoint
type StorageRepo interface {
	UpsertGuild(ctx context.Context, g GuildInfo) error
	UpsertChannel(ctx context.Context, guildID string, c Channel) error
	UpsertUser(ctx context.Context, userID string, p Profile) error

	// UpsertStatistic replaces every counter of the (user, channel) row
	UpsertStatistic(ctx context.Context, s Statistic) error

	InsertJob(ctx context.Context, j JobRow) error
	StartJob(ctx context.Context, j JobRow) error
	CheckpointJob(ctx context.Context, j JobRow) error
	FinishJob(ctx context.Context, j JobRow) error
}

// DailySink receives per day rollups after a checkpoint commits
type DailySink interface {
	WriteDaily(ctx context.Context, rows []DailyRow) error
}
