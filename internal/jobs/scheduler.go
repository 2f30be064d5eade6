package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron"
	"golang.org/x/sync/errgroup"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/logger"
)

// DefaultSchedule fires just after midnight.
const DefaultSchedule = "5 0 * * *"

// Scheduler runs a SnapshotJob on a cron schedule.
type Scheduler struct {
	job        *SnapshotJob
	spec       string
	runOnStart bool
	log        *logger.Logger
}

// NewScheduler validates spec, a five-field crontab line or a descriptor
// such as "@daily".
func NewScheduler(job *SnapshotJob, spec string, runOnStart bool, log *logger.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid snapshot schedule %q: %w", spec, err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{job: job, spec: spec, runOnStart: runOnStart, log: log.With("component", "scheduler")}, nil
}

// Run blocks until ctx is done. With runOnStart, today's snapshot runs
// immediately so a daemon started after midnight catches up.
func (s *Scheduler) Run(ctx context.Context) error {
	sched, err := cron.ParseStandard(s.spec)
	if err != nil {
		return err
	}
	c := cron.NewWithLocation(s.job.loc)
	c.Schedule(sched, cron.FuncJob(func() {
		if _, err := s.job.RunToday(ctx); err != nil {
			s.log.Error("scheduled snapshot failed", "error", err)
		}
	}))

	g, gctx := errgroup.WithContext(ctx)
	if s.runOnStart {
		g.Go(func() error {
			if _, err := s.job.RunToday(gctx); err != nil {
				// The next scheduled run retries.
				s.log.Warn("catch-up snapshot failed", "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		c.Start()
		s.log.Info("snapshot scheduler started", "schedule", s.spec)
		<-gctx.Done()
		c.Stop()
		s.log.Info("snapshot scheduler stopped")
		return nil
	})
	return g.Wait()
}
