// Package service runs collection jobs: one goroutine per job scanning channels in order
// and checkpointing each channel before moving on
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"msgstats/internal/core/progress"
	"msgstats/internal/core/windows"
	"msgstats/internal/modkit/repokit"
	perr "msgstats/internal/platform/errors"
	"msgstats/internal/platform/logger"
	"msgstats/internal/platform/metrics"
	pstrings "msgstats/internal/platform/strings"
	ptime "msgstats/internal/platform/time"
	"msgstats/internal/services/collector/aggregate"
	"msgstats/internal/services/collector/domain"
	"msgstats/internal/services/collector/guardrails"
	"msgstats/internal/services/collector/registry"
)

// Config holds the knobs of the collector
type Config struct {
	// Channel level retry on transient transport errors
	MaxRetries int           // attempts per channel; <=0 -> 1
	RetryBase  time.Duration // base backoff; <=0 -> 500ms

	// Budgets applied via guardrails; zero means unlimited
	FetchTimeout      time.Duration
	CheckpointTimeout time.Duration
	MaxDuration       time.Duration

	// MaxChannels fails a job that resolves to more channels; 0 = unlimited
	MaxChannels int

	// ProgressEvery is how many channels pass between collection_jobs progress writes; <=0 -> 1
	ProgressEvery int
}

// jobRowTimeout bounds best effort writes of the durable job row
const jobRowTimeout = 5 * time.Second

var (
	errCancelled   = errors.New("collection cancelled")
	errFetchBudget = errors.New("channel exceeded fetch timeout")
)

// Service implements domain.CollectorPort
type Service struct {
	DB       repokit.TxRunner
	Binder   repokit.Binder[domain.StorageRepo]
	Platform domain.Platform
	Jobs     *registry.Registry
	Cfg      Config

	// Optional daily rollup sink, nil when ClickHouse is disabled
	Daily   domain.DailySink
	Metrics metrics.Recorder

	now func() time.Time

	root context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ domain.CollectorPort = (*Service)(nil)

// New constructs the collector service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	platform domain.Platform,
	jobs *registry.Registry,
	cfg Config,
) *Service {
	if db == nil {
		panic("collector.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("collector.Service requires a non nil Repo binder")
	}
	if platform == nil {
		panic("collector.Service requires a non nil Platform")
	}
	if jobs == nil {
		panic("collector.Service requires a non nil Registry")
	}
	root, stop := context.WithCancel(context.Background())
	return &Service{
		DB: db, Binder: binder, Platform: platform, Jobs: jobs, Cfg: cfg,
		Metrics: metrics.New(false),
		now:     time.Now,
		root:    root,
		stop:    stop,
	}
}

// WithDailySink wires the rollup sink
func (s *Service) WithDailySink(d domain.DailySink) *Service {
	s.Daily = d
	return s
}

// WithMetrics wires a recorder and exposes the live job count through it
func (s *Service) WithMetrics(m metrics.Recorder) *Service {
	if m == nil {
		return s
	}
	s.Metrics = m
	m.WatchRunning(s.Jobs.Running)
	return s
}

// WithClock overrides the clock used for cutoffs and window references
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) timeouts() guardrails.Timeouts {
	return guardrails.Timeouts{
		Job:        s.Cfg.MaxDuration,
		Fetch:      s.Cfg.FetchTimeout,
		Checkpoint: s.Cfg.CheckpointTimeout,
	}
}

// StartCollection registers a pending job and starts it in the background.
// The job outlives ctx; it only stops on cancel, completion or Shutdown
func (s *Service) StartCollection(ctx context.Context, req domain.StartRequest) (domain.Job, error) {
	req.GuildID = strings.TrimSpace(req.GuildID)
	if req.GuildID == "" {
		return domain.Job{}, perr.WithField(perr.InvalidArgf("guild_id is required"), "guild_id")
	}
	if req.DaysBack != nil && *req.DaysBack < 1 {
		return domain.Job{}, perr.WithField(perr.InvalidArgf("days_back must be positive"), "days_back")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Job{}, perr.Unavailablef("collector is shutting down")
	}
	job := s.Jobs.Create(req)
	s.wg.Add(1)
	s.mu.Unlock()

	s.Metrics.JobStarted()
	logger.C(ctx).Info().Str("job_id", job.ID).Str("guild_id", job.GuildID).Msg("collector: job queued")

	go s.run(job)
	return job, nil
}

// GetStatus returns the progress view of a job
func (s *Service) GetStatus(_ context.Context, jobID string) (domain.JobStatus, error) {
	j, err := s.Jobs.Get(jobID)
	if err != nil {
		return domain.JobStatus{}, err
	}
	return StatusOf(j, s.now()), nil
}

// CancelJob requests cooperative cancellation; false for unknown or finished jobs
func (s *Service) CancelJob(ctx context.Context, jobID string) bool {
	ok := s.Jobs.Cancel(jobID)
	logger.C(ctx).Info().Str("job_id", jobID).Bool("accepted", ok).Msg("collector: cancel requested")
	return ok
}

// Wait blocks until every started job has finished
func (s *Service) Wait() { s.wg.Wait() }

// Shutdown stops accepting jobs, cancels the running ones and waits for them
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StatusOf projects a job onto its caller facing status at now
func StatusOf(j domain.Job, now time.Time) domain.JobStatus {
	st := domain.JobStatus{
		JobID:             j.ID,
		GuildID:           j.GuildID,
		Status:            j.Status,
		ChannelsDone:      j.ChannelsDone,
		ChannelsTotal:     j.ChannelsTotal,
		ChannelsSkipped:   j.ChannelsSkipped,
		MessagesProcessed: j.MessagesProcessed,
		DistinctUsers:     len(j.DistinctUsers),
		CreatedAt:         j.CreatedAt,
		StartedAt:         j.StartedAt,
		CompletedAt:       j.CompletedAt,
		Error:             j.Error,
	}
	var started time.Time
	if j.StartedAt != nil {
		started = *j.StartedAt
	}
	est := progress.Of(j.ChannelsDone, j.ChannelsTotal, started, now)
	st.Percent = est.Percent
	if j.Status == domain.StatusRunning && est.ETA != nil {
		st.ETA = est.ETA
		secs := est.ETA.Seconds()
		st.ETASeconds = &secs
	}
	return st
}

func (s *Service) run(job domain.Job) {
	defer s.wg.Done()

	ctx := logger.WithJob(s.root, job.ID, job.GuildID)
	log := logger.C(ctx)
	started := time.Now()

	s.writeJob(ctx, job, "insert", domain.StorageRepo.InsertJob)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("collector: job panicked")
				err = perr.PanicErrf("collector panic: %v", r)
			}
		}()
		err = s.collect(ctx, job)
	}()

	final := s.finish(ctx, job.ID, err)
	s.Metrics.JobFinished(string(final.Status), time.Since(started))
}

func (s *Service) collect(ctx context.Context, job domain.Job) error {
	jctx, cancel := guardrails.ForJob(ctx, s.timeouts())
	defer cancel()

	if s.cancelled(job.ID) {
		return errCancelled
	}

	guild, err := s.Platform.Guild(jctx, job.GuildID)
	if err != nil {
		return s.jobErr(jctx, fmt.Errorf("load guild %s: %w", job.GuildID, err))
	}
	channels, err := s.resolveChannels(jctx, job)
	if err != nil {
		return s.jobErr(jctx, err)
	}
	if s.Cfg.MaxChannels > 0 && len(channels) > s.Cfg.MaxChannels {
		return perr.WithField(
			perr.InvalidArgf("%d channels exceed the limit of %d", len(channels), s.Cfg.MaxChannels), "channels")
	}

	var cutoff *time.Time
	if job.DaysBack != nil {
		c := ptime.DaysAgo(s.now().UTC(), *job.DaysBack)
		cutoff = &c
	}

	if err := s.tx(jctx, func(c context.Context, r domain.StorageRepo) error {
		return r.UpsertGuild(c, guild)
	}); err != nil {
		return s.jobErr(jctx, err)
	}

	if s.cancelled(job.ID) {
		return errCancelled
	}
	running, err := s.Jobs.Update(job.ID, func(j *domain.Job) {
		j.Status = domain.StatusRunning
		j.ChannelsTotal = len(channels)
	})
	if err != nil {
		return err
	}
	s.writeJob(ctx, running, "start", domain.StorageRepo.StartJob)
	logger.C(ctx).Info().Int("channels", len(channels)).Msg("collector: job running")

	every := max(s.Cfg.ProgressEvery, 1)
	agg := aggregate.New()
	for i, ch := range channels {
		if s.cancelled(job.ID) {
			return errCancelled
		}
		if err := jctx.Err(); err != nil {
			return s.jobErr(jctx, err)
		}

		res, err := s.scanWithRetry(jctx, job, ch, cutoff, agg)
		if err != nil {
			return err
		}
		if !res.skipped {
			if err := s.checkpoint(jctx, job.GuildID, ch, agg); err != nil {
				return s.jobErr(jctx, err)
			}
		}

		cur, err := s.Jobs.Update(job.ID, func(j *domain.Job) {
			j.ChannelsDone++
			if res.skipped {
				j.ChannelsSkipped++
				return
			}
			j.MessagesProcessed += res.messages
			for u := range res.users {
				j.DistinctUsers[u] = struct{}{}
			}
		})
		if err != nil {
			return err
		}
		s.Metrics.ChannelDone(res.outcome)
		s.Metrics.AddMessages(res.messages)
		if (i+1)%every == 0 {
			s.writeJob(ctx, cur, "checkpoint", domain.StorageRepo.CheckpointJob)
		}
	}
	return nil
}

// resolveChannels returns every readable channel, or the explicit scope matched by folded name
func (s *Service) resolveChannels(ctx context.Context, job domain.Job) ([]domain.Channel, error) {
	all, err := s.Platform.ListChannels(ctx, job.GuildID)
	if err != nil {
		return nil, fmt.Errorf("list channels of %s: %w", job.GuildID, err)
	}

	if len(job.Channels) == 0 {
		out := make([]domain.Channel, 0, len(all))
		for _, c := range all {
			if c.Readable {
				out = append(out, c)
			}
		}
		return out, nil
	}

	byName := make(map[string]domain.Channel, len(all))
	for _, c := range all {
		k := pstrings.FoldName(c.Name)
		if _, dup := byName[k]; !dup {
			byName[k] = c
		}
	}

	var (
		out     []domain.Channel
		missing []string
		seen    = map[string]bool{}
	)
	for _, name := range job.Channels {
		c, ok := byName[pstrings.FoldName(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if !seen[c.ID] {
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	if len(missing) > 0 {
		return nil, perr.WithField(
			perr.InvalidArgf("unknown channels: %s", strings.Join(missing, ", ")), "channels")
	}
	return out, nil
}

type scanResult struct {
	messages int
	users    map[string]struct{}
	skipped  bool
	outcome  string
}

func skipped(outcome string) scanResult { return scanResult{skipped: true, outcome: outcome} }

// scanWithRetry scans one channel. Only job level failures come back as errors;
// channel failures are logged and reported as skipped
func (s *Service) scanWithRetry(
	ctx context.Context,
	job domain.Job,
	ch domain.Channel,
	cutoff *time.Time,
	agg *aggregate.Aggregator,
) (scanResult, error) {
	attempts := max(s.Cfg.MaxRetries, 1)
	log := logger.C(ctx).With().Str("channel_id", ch.ID).Str("channel", ch.Name).Logger()

	for i := range attempts {
		res, err := s.scanChannel(ctx, job, ch, cutoff, agg)
		if err == nil {
			return res, nil
		}
		dropped := agg.DiscardChannel(ch.ID)
		if ctx.Err() != nil {
			return scanResult{}, s.jobErr(ctx, ctx.Err())
		}
		if errors.Is(err, errFetchBudget) {
			log.Error().Err(err).Int("dropped", dropped).Msg("collector: fetch timeout reached, failing job")
			return scanResult{}, fmt.Errorf("scan channel %s: %w", ch.ID, err)
		}

		switch {
		case perr.IsCode(err, perr.ErrorCodeForbidden):
			log.Warn().Err(err).Int("dropped", dropped).Msg("collector: channel access denied, skipping")
			return skipped(metrics.OutcomeForbidden), nil

		case perr.Transient(err) && i < attempts-1:
			d := guardrails.Backoff(s.Cfg.RetryBase, i)
			log.Warn().Err(err).Int("attempt", i+1).Dur("backoff", d).Msg("collector: transient fetch error, retrying channel")
			if se := guardrails.Sleep(ctx, d); se != nil {
				return scanResult{}, s.jobErr(ctx, se)
			}

		default:
			log.Error().Err(err).Int("attempt", i+1).Int("dropped", dropped).Msg("collector: channel scan failed, skipping")
			return skipped(metrics.OutcomeFailed), nil
		}
	}
	return skipped(metrics.OutcomeFailed), nil
}

func (s *Service) scanChannel(
	ctx context.Context,
	job domain.Job,
	ch domain.Channel,
	cutoff *time.Time,
	agg *aggregate.Aggregator,
) (scanResult, error) {
	fctx, cancel := guardrails.ForFetch(ctx, s.timeouts())
	defer cancel()

	budget := func(err error) error {
		if ctx.Err() == nil && errors.Is(fctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w %s: %w", errFetchBudget, s.Cfg.FetchTimeout, err)
		}
		return err
	}

	r, err := s.Platform.FetchHistory(fctx, ch.ID, cutoff)
	if err != nil {
		return scanResult{}, budget(err)
	}
	defer func() { _ = r.Close() }()

	res := scanResult{users: map[string]struct{}{}, outcome: metrics.OutcomeScanned}
	for {
		ev, err := r.Next(fctx)
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, budget(err)
		}
		if ev.Bot || ev.System || ev.AuthorID == "" {
			continue
		}
		if job.TargetUserID != nil && ev.AuthorID != *job.TargetUserID {
			continue
		}
		if cutoff != nil && ev.Timestamp.Before(*cutoff) {
			continue
		}
		agg.Record(ev.AuthorID, ch.ID, ev.Timestamp, ev.Author)
		res.messages++
		res.users[ev.AuthorID] = struct{}{}
	}
}

// checkpoint writes the channel's tallies in one transaction, then the daily rollups.
// Windows are computed against the instant of this checkpoint
func (s *Service) checkpoint(ctx context.Context, guildID string, ch domain.Channel, agg *aggregate.Aggregator) error {
	tallies := agg.DrainChannel(ch.ID)
	now := s.now().UTC()
	start := time.Now()

	cctx, cancel := guardrails.ForCheckpoint(ctx, s.timeouts())
	defer cancel()

	err := s.tx(cctx, func(c context.Context, r domain.StorageRepo) error {
		if err := r.UpsertChannel(c, guildID, ch); err != nil {
			return err
		}
		for _, t := range tallies {
			if err := r.UpsertUser(c, t.UserID, t.Profile); err != nil {
				return err
			}
			if err := r.UpsertStatistic(c, domain.Statistic{
				UserID:      t.UserID,
				ChannelID:   ch.ID,
				GuildID:     guildID,
				Counts:      windows.Compute(t.Timestamps, now),
				Method:      domain.MethodFullScan,
				CollectedAt: now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil && s.Daily != nil && len(tallies) > 0 {
		err = s.Daily.WriteDaily(cctx, aggregate.Daily(guildID, tallies, now))
	}
	s.Metrics.ObserveCheckpoint(time.Since(start), err)
	if err != nil {
		return fmt.Errorf("checkpoint channel %s: %w", ch.ID, err)
	}
	logger.C(ctx).Debug().Str("channel_id", ch.ID).Int("users", len(tallies)).Msg("collector: checkpoint committed")
	return nil
}

func (s *Service) tx(ctx context.Context, fn func(context.Context, domain.StorageRepo) error) error {
	return s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return fn(ctx, s.Binder.Bind(q))
	})
}

func (s *Service) cancelled(jobID string) bool {
	return s.Jobs.CancelRequested(jobID) || s.root.Err() != nil
}

// jobErr maps context failures of the job context onto job outcomes
func (s *Service) jobErr(jctx context.Context, err error) error {
	switch {
	case s.root.Err() != nil && errors.Is(err, context.Canceled):
		return errCancelled
	case errors.Is(jctx.Err(), context.DeadlineExceeded) && s.Cfg.MaxDuration > 0:
		return fmt.Errorf("job exceeded max duration %s: %w", s.Cfg.MaxDuration, err)
	}
	return err
}

func (s *Service) finish(ctx context.Context, jobID string, err error) domain.Job {
	log := logger.C(ctx)

	status, msg := domain.StatusCompleted, ""
	switch {
	case err == nil:
	case errors.Is(err, errCancelled):
		status = domain.StatusCancelled
	default:
		status, msg = domain.StatusFailed, err.Error()
	}

	final, uerr := s.Jobs.Update(jobID, func(j *domain.Job) {
		j.Status = status
		j.Error = msg
	})
	if uerr != nil {
		log.Error().Err(uerr).Msg("collector: could not record terminal state")
		return final
	}

	ev := log.Info()
	if status == domain.StatusFailed {
		ev = log.Error().Err(err)
	}
	ev.Str("status", string(status)).
		Int("channels_done", final.ChannelsDone).
		Int("channels_skipped", final.ChannelsSkipped).
		Int("messages", final.MessagesProcessed).
		Int("users", len(final.DistinctUsers)).
		Msg("collector: job finished")

	s.writeJob(ctx, final, "finish", domain.StorageRepo.FinishJob)
	return final
}

// writeJob persists the durable job row; failures are logged, the registry stays the authority
func (s *Service) writeJob(
	ctx context.Context,
	j domain.Job,
	op string,
	fn func(domain.StorageRepo, context.Context, domain.JobRow) error,
) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), jobRowTimeout)
	defer cancel()
	if err := fn(s.Binder.Bind(s.DB), wctx, domain.RowOf(j)); err != nil {
		logger.C(ctx).Warn().Err(err).Str("op", op).Msg("collector: job row write failed")
	}
}
