package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"msgstats/internal/modkit"
	"msgstats/internal/platform/config"
	"msgstats/internal/platform/logger"
	"msgstats/internal/platform/store"
	"msgstats/internal/services/collector/domain"
	collectormod "msgstats/internal/services/collector/module"

	"github.com/goccy/go-json"
)

func main() {
	os.Exit(run())
}

// run executes one collection and returns the process exit code
func run() int {
	var (
		fGuild    = flag.String("guild", "", "guild id to collect (required)")
		fUser     = flag.String("user", "", "only count messages from this user id")
		fChannels = flag.String("channels", "", "comma separated channel names; empty scans every readable channel")
		fDays     = flag.Int("days", 0, "only count messages newer than this many days; 0 reads full history")
		fPoll     = flag.Duration("poll", 2*time.Second, "progress report interval")
	)
	flag.Parse()

	l := logger.Get()
	if strings.TrimSpace(*fGuild) == "" {
		l.Error().Msg("-guild is required")
		return 2
	}

	req := domain.StartRequest{GuildID: strings.TrimSpace(*fGuild)}
	if *fUser != "" {
		req.TargetUserID = fUser
	}
	for _, c := range strings.Split(*fChannels, ",") {
		if c = strings.TrimSpace(c); c != "" {
			req.Channels = append(req.Channels, c)
		}
	}
	if *fDays > 0 {
		req.DaysBack = fDays
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()
	st, err := store.Open(ctx, store.FromConfig(root, "collect"), store.WithLogger(*l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return 1
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	mod, err := collectormod.New(modkit.Deps{Cfg: root, PG: st.PG, CH: st.CH})
	if err != nil {
		l.Error().Err(err).Msg("collector setup failed")
		return 1
	}
	if err := mod.Migrate(ctx); err != nil {
		l.Error().Err(err).Msg("schema migration failed")
		return 1
	}
	svc := mod.Service()

	job, err := svc.StartCollection(ctx, req)
	if err != nil {
		l.Error().Err(err).Msg("start collection")
		return 1
	}
	jctx := logger.WithJob(ctx, job.ID, job.GuildID)
	logger.C(jctx).Info().Strs("channels", req.Channels).Msg("collection started")

	final := watch(jctx, svc, job.ID, *fPoll)
	svc.Wait()

	code, err := report(os.Stdout, final)
	if err != nil {
		l.Error().Err(err).Msg("write final status")
	}
	return code
}

// report prints the final status as indented JSON; only a completed job exits 0
func report(w io.Writer, final domain.JobStatus) (int, error) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(final); err != nil {
		return 1, err
	}
	if final.Status != domain.StatusCompleted {
		return 1, nil
	}
	return 0, nil
}

// watch reports progress until the job is terminal; an interrupt requests cancellation once
func watch(ctx context.Context, svc domain.CollectorPort, jobID string, every time.Duration) domain.JobStatus {
	log := logger.C(ctx)
	t := time.NewTicker(every)
	defer t.Stop()
	done := ctx.Done()
	for {
		select {
		case <-done:
			log.Warn().Msg("interrupt, cancelling job")
			svc.CancelJob(context.Background(), jobID)
			done = nil
		case <-t.C:
		}
		st, err := svc.GetStatus(context.Background(), jobID)
		if err != nil {
			log.Error().Err(err).Msg("status lookup failed")
			return domain.JobStatus{JobID: jobID, Status: domain.StatusFailed, Error: err.Error()}
		}
		ev := log.Info().
			Str("status", string(st.Status)).
			Float64("percent", st.Percent).
			Int("channels_done", st.ChannelsDone).
			Int("channels_total", st.ChannelsTotal).
			Int("messages", st.MessagesProcessed)
		if st.ETA != nil {
			ev = ev.Dur("eta", *st.ETA)
		}
		ev.Msg("progress")
		if st.Status.Terminal() {
			return st
		}
	}
}
