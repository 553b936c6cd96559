package service

import (
	"context"
	"errors"
	"io"
	"maps"
	"sync"
	"time"

	"msgstats/internal/modkit/repokit"
	"msgstats/internal/services/collector/domain"
)

// memStore is an in memory StorageRepo with transactional snapshots
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	guilds   map[string]string
	channels map[string]domain.Channel
	users    map[string]domain.Profile
	stats    map[[2]string]domain.Statistic
	jobs     map[string]domain.JobRow

	failStatFor string // channel id whose statistic upsert fails
}

func newMemStore() *memStore {
	return &memStore{
		guilds:   map[string]string{},
		channels: map[string]domain.Channel{},
		users:    map[string]domain.Profile{},
		stats:    map[[2]string]domain.Statistic{},
		jobs:     map[string]domain.JobRow{},
	}
}

func (m *memStore) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	return nil, errors.New("memStore: raw sql not supported")
}

func (m *memStore) Query(context.Context, string, ...any) (repokit.Rows, error) {
	return nil, errors.New("memStore: raw sql not supported")
}

func (m *memStore) QueryRow(context.Context, string, ...any) repokit.Row { return nil }

func (m *memStore) Tx(_ context.Context, fn func(q repokit.Queryer) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	g, c, u, s := maps.Clone(m.guilds), maps.Clone(m.channels), maps.Clone(m.users), maps.Clone(m.stats)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.guilds, m.channels, m.users, m.stats = g, c, u, s
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) binder() repokit.Binder[domain.StorageRepo] {
	return repokit.BindFunc[domain.StorageRepo](func(repokit.Queryer) domain.StorageRepo { return memRepo{m} })
}

func (m *memStore) stat(user, channel string) (domain.Statistic, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[[2]string{user, channel}]
	return s, ok
}

func (m *memStore) statCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stats)
}

func (m *memStore) job(id string) domain.JobRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

type memRepo struct{ m *memStore }

func (r memRepo) UpsertGuild(_ context.Context, g domain.GuildInfo) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.guilds[g.ID] = g.Name
	return nil
}

func (r memRepo) UpsertChannel(_ context.Context, _ string, c domain.Channel) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.channels[c.ID] = c
	return nil
}

func (r memRepo) UpsertUser(_ context.Context, id string, p domain.Profile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.users[id] = p
	return nil
}

func (r memRepo) UpsertStatistic(_ context.Context, s domain.Statistic) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.stats[[2]string{s.UserID, s.ChannelID}] = s
	if s.ChannelID == r.m.failStatFor {
		return errors.New("disk full")
	}
	return nil
}

func (r memRepo) putJob(j domain.JobRow) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.jobs[j.ID] = j
	return nil
}

func (r memRepo) InsertJob(_ context.Context, j domain.JobRow) error     { return r.putJob(j) }
func (r memRepo) StartJob(_ context.Context, j domain.JobRow) error      { return r.putJob(j) }
func (r memRepo) CheckpointJob(_ context.Context, j domain.JobRow) error { return r.putJob(j) }
func (r memRepo) FinishJob(_ context.Context, j domain.JobRow) error     { return r.putJob(j) }

// fakePlatform serves canned histories
type fakePlatform struct {
	mu sync.Mutex

	guild    domain.GuildInfo
	channels []domain.Channel
	history  map[string][]domain.Event

	// fetchErrs are returned by successive FetchHistory calls of a channel
	fetchErrs map[string][]error
	// midErr is returned by Next after the first event of a channel
	midErr map[string]error
	// stallAt makes Next block until its context ends once that many events were read
	stallAt map[string]int

	guildGate chan struct{}
	fetchGate chan struct{}
	panicOn   string

	calls  map[string]int
	cutoff map[string]*time.Time
}

func newPlatform(channels ...domain.Channel) *fakePlatform {
	return &fakePlatform{
		guild:     domain.GuildInfo{ID: "g1", Name: "Guild"},
		channels:  channels,
		history:   map[string][]domain.Event{},
		fetchErrs: map[string][]error{},
		midErr:    map[string]error{},
		stallAt:   map[string]int{},
		calls:     map[string]int{},
		cutoff:    map[string]*time.Time{},
	}
}

func (p *fakePlatform) Guild(ctx context.Context, _ string) (domain.GuildInfo, error) {
	if p.guildGate != nil {
		select {
		case <-p.guildGate:
		case <-ctx.Done():
			return domain.GuildInfo{}, ctx.Err()
		}
	}
	return p.guild, nil
}

func (p *fakePlatform) ListChannels(context.Context, string) ([]domain.Channel, error) {
	return p.channels, nil
}

func (p *fakePlatform) FetchHistory(ctx context.Context, channelID string, after *time.Time) (domain.HistoryReader, error) {
	if channelID == p.panicOn {
		panic("platform exploded")
	}
	if p.fetchGate != nil {
		select {
		case <-p.fetchGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	n := p.calls[channelID]
	p.calls[channelID] = n + 1
	p.cutoff[channelID] = after
	var err error
	if errs := p.fetchErrs[channelID]; n < len(errs) {
		err = errs[n]
	}
	evs := p.history[channelID]
	mid := p.midErr[channelID]
	stall, stalls := p.stallAt[channelID]
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	r := &sliceReader{events: evs, mid: mid, stallAt: -1}
	if stalls {
		r.stallAt = stall
	}
	return r, nil
}

func (p *fakePlatform) callCount(channelID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[channelID]
}

type sliceReader struct {
	events  []domain.Event
	i       int
	mid     error
	stallAt int
}

func (r *sliceReader) Next(ctx context.Context) (domain.Event, error) {
	if r.i == r.stallAt {
		<-ctx.Done()
		return domain.Event{}, ctx.Err()
	}
	if r.mid != nil && r.i == 1 {
		return domain.Event{}, r.mid
	}
	if r.i >= len(r.events) {
		return domain.Event{}, io.EOF
	}
	ev := r.events[r.i]
	r.i++
	return ev, nil
}

func (r *sliceReader) Close() error { return nil }

type fakeSink struct {
	mu   sync.Mutex
	rows []domain.DailyRow
}

func (f *fakeSink) WriteDaily(_ context.Context, rows []domain.DailyRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, rows...)
	return nil
}
