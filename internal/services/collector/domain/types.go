// Package domain holds the collection job model and the ports the collector talks through
package domain

import (
	"time"

	"msgstats/internal/core/windows"
)

// Status is the lifecycle state of a collection job
type Status string

// Job statuses
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed out of s
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanMoveTo reports whether the forward only lifecycle allows s -> next.
// Staying in the same non terminal state is allowed so progress updates pass
func (s Status) CanMoveTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusPending || next == StatusRunning || next == StatusFailed || next == StatusCancelled
	case StatusRunning:
		return next == StatusRunning || next.Terminal()
	default:
		return false
	}
}

// Method is how a persisted statistic was produced
type Method string

// Collection methods; only full scans are produced, the others are reserved
const (
	MethodFullScan    Method = "full_scan"
	MethodIncremental Method = "incremental"
	MethodManual      Method = "manual"
)

// StartRequest are the parameters of a collection job
type StartRequest struct {
	GuildID      string   `json:"guild_id" validate:"required,snowflake"`
	TargetUserID *string  `json:"target_user_id,omitempty" validate:"omitempty,snowflake"`
	Channels     []string `json:"channels,omitempty" validate:"omitempty,max=500,dive,required,max=100"`
	DaysBack     *int     `json:"days_back,omitempty" validate:"omitempty,min=1,max=36500"`
}

// Job is one bounded scan of a guild
type Job struct {
	ID           string
	GuildID      string
	TargetUserID *string
	Channels     []string
	DaysBack     *int

	Status            Status
	ChannelsTotal     int
	ChannelsDone      int
	ChannelsSkipped   int
	MessagesProcessed int
	DistinctUsers     map[string]struct{}

	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	Error           string
	CancelRequested bool
}

// Clone returns a deep copy so readers never share maps or slices with the owner
func (j Job) Clone() Job {
	out := j
	if j.TargetUserID != nil {
		v := *j.TargetUserID
		out.TargetUserID = &v
	}
	if j.DaysBack != nil {
		v := *j.DaysBack
		out.DaysBack = &v
	}
	if j.StartedAt != nil {
		v := *j.StartedAt
		out.StartedAt = &v
	}
	if j.CompletedAt != nil {
		v := *j.CompletedAt
		out.CompletedAt = &v
	}
	out.Channels = append([]string(nil), j.Channels...)
	out.DistinctUsers = make(map[string]struct{}, len(j.DistinctUsers))
	for k := range j.DistinctUsers {
		out.DistinctUsers[k] = struct{}{}
	}
	return out
}

// JobStatus is the caller facing view of a job
type JobStatus struct {
	JobID             string         `json:"job_id"`
	GuildID           string         `json:"guild_id"`
	Status            Status         `json:"status"`
	Percent           float64        `json:"percent"`
	ETA               *time.Duration `json:"-"`
	ETASeconds        *float64       `json:"eta_seconds"`
	ChannelsDone      int            `json:"channels_done"`
	ChannelsTotal     int            `json:"channels_total"`
	ChannelsSkipped   int            `json:"channels_skipped"`
	MessagesProcessed int            `json:"messages_processed"`
	DistinctUsers     int            `json:"distinct_users"`
	CreatedAt         time.Time      `json:"created_at"`
	StartedAt         *time.Time     `json:"started_at,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	Error             string         `json:"error,omitempty"`
}

// GuildInfo is the guild as reported by the platform
type GuildInfo struct {
	ID   string
	Name string
}

// Channel is one message stream of a guild
type Channel struct {
	ID       string
	Name     string
	Type     string
	Readable bool
}

// Profile is the latest author identity seen in a scan
type Profile struct {
	Username    string
	DisplayName string
	AvatarURL   string
}

// Event is one message from a channel history
type Event struct {
	ID        string
	ChannelID string
	AuthorID  string
	Bot       bool
	System    bool
	Author    Profile
	Timestamp time.Time
}

// Tally is the running count of one user in one channel
type Tally struct {
	UserID     string
	ChannelID  string
	Count      int
	Timestamps []time.Time
	Profile    Profile
}

// Statistic is the persisted windowed row for one (user, channel)
type Statistic struct {
	UserID      string
	ChannelID   string
	GuildID     string
	Counts      windows.Counts
	Method      Method
	CollectedAt time.Time
}

// JobRow is the durable record of a job
type JobRow struct {
	ID                string
	GuildID           string
	TargetUserID      *string
	Channels          []string
	DaysBack          *int
	Status            Status
	ChannelsTotal     int
	ChannelsDone      int
	ChannelsSkipped   int
	MessagesProcessed int
	UsersUpdated      int
	Error             string
	CreatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
}

// RowOf projects a live job onto its durable record
func RowOf(j Job) JobRow {
	return JobRow{
		ID:                j.ID,
		GuildID:           j.GuildID,
		TargetUserID:      j.TargetUserID,
		Channels:          j.Channels,
		DaysBack:          j.DaysBack,
		Status:            j.Status,
		ChannelsTotal:     j.ChannelsTotal,
		ChannelsDone:      j.ChannelsDone,
		ChannelsSkipped:   j.ChannelsSkipped,
		MessagesProcessed: j.MessagesProcessed,
		UsersUpdated:      len(j.DistinctUsers),
		Error:             j.Error,
		CreatedAt:         j.CreatedAt,
		StartedAt:         j.StartedAt,
		CompletedAt:       j.CompletedAt,
	}
}

// DailyRow is one per day message count written to the rollup sink
type DailyRow struct {
	GuildID     string
	ChannelID   string
	UserID      string
	Day         time.Time
	Messages    int
	CollectedAt time.Time
}
