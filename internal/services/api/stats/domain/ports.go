package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Guilds(ctx context.Context) ([]GuildSummary, error)
	Guild(ctx context.Context, in GuildQuery) (GuildReport, error)
	User(ctx context.Context, guildID, userID string) (UserDetail, error)
	Jobs(ctx context.Context, guildID string, limit int) ([]JobSummary, error)
}
