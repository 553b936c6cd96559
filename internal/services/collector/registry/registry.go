// Package registry tracks the live state of every collection job in this process
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	perr "msgstats/internal/platform/errors"
	"msgstats/internal/services/collector/domain"
)

// Registry is the mutex guarded job table.
// Readers always receive copies; only the owning collector calls Update
type Registry struct {
	mu        sync.RWMutex
	jobs      map[string]*domain.Job
	retention time.Duration

	now   func() time.Time
	newID func() string
}

// Option customizes a Registry
type Option func(*Registry)

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option { return func(r *Registry) { r.now = now } }

// WithIDs overrides job id generation
func WithIDs(fn func() string) Option { return func(r *Registry) { r.newID = fn } }

// New returns an empty registry; terminal jobs older than retention are pruned on Create.
// retention <= 0 keeps terminal jobs forever
func New(retention time.Duration, opts ...Option) *Registry {
	r := &Registry{
		jobs:      make(map[string]*domain.Job),
		retention: retention,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Create allocates a pending job
func (r *Registry) Create(req domain.StartRequest) domain.Job {
	now := r.now().UTC()
	r.Prune(now)

	j := domain.Job{
		ID:            r.newID(),
		GuildID:       req.GuildID,
		TargetUserID:  req.TargetUserID,
		Channels:      req.Channels,
		DaysBack:      req.DaysBack,
		Status:        domain.StatusPending,
		DistinctUsers: map[string]struct{}{},
		CreatedAt:     now,
	}
	j = j.Clone()

	r.mu.Lock()
	r.jobs[j.ID] = &j
	r.mu.Unlock()
	return j.Clone()
}

// Get returns a copy of the job or a not found error
func (r *Registry) Get(id string) (domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, perr.NotFoundf("job %q not found", id)
	}
	return j.Clone(), nil
}

// List returns copies of the jobs for guildID, or every job when guildID is empty, newest first
func (r *Registry) List(guildID string) []domain.Job {
	r.mu.RLock()
	out := make([]domain.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if guildID == "" || j.GuildID == guildID {
			out = append(out, j.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out
}

// Cancel sets the cooperative flag on a pending or running job.
// It returns false for unknown or terminal jobs
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok || j.Status.Terminal() {
		return false
	}
	j.CancelRequested = true
	return true
}

// CancelRequested reports whether Cancel was called for id
func (r *Registry) CancelRequested(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	return ok && j.CancelRequested
}

// Update applies fn to a copy of the job and commits it only if the lifecycle allows it.
// Terminal jobs, backwards transitions and a shrinking ChannelsDone are rejected
func (r *Registry) Update(id string, fn func(*domain.Job)) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, perr.NotFoundf("job %q not found", id)
	}
	if cur.Status.Terminal() {
		return cur.Clone(), perr.Conflictf("job %q is already %s", id, cur.Status)
	}

	next := cur.Clone()
	fn(&next)

	if !cur.Status.CanMoveTo(next.Status) {
		return cur.Clone(), perr.Conflictf("job %q cannot move from %s to %s", id, cur.Status, next.Status)
	}
	if next.ChannelsDone < cur.ChannelsDone {
		return cur.Clone(), perr.Conflictf("job %q channels_done cannot decrease", id)
	}
	// the cancel flag is owned by Cancel
	next.CancelRequested = next.CancelRequested || cur.CancelRequested

	now := r.now().UTC()
	if next.Status == domain.StatusRunning && next.StartedAt == nil {
		next.StartedAt = &now
	}
	if next.Status.Terminal() && next.CompletedAt == nil {
		next.CompletedAt = &now
	}

	*cur = next
	return cur.Clone(), nil
}

// Prune evicts terminal jobs that completed more than the retention ago
func (r *Registry) Prune(now time.Time) int {
	if r.retention <= 0 {
		return 0
	}
	cutoff := now.Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, j := range r.jobs {
		if j.Status.Terminal() && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			n++
		}
	}
	return n
}

// Running counts jobs that are pending or running
func (r *Registry) Running() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, j := range r.jobs {
		if !j.Status.Terminal() {
			n++
		}
	}
	return n
}
