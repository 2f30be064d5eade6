package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/config"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/grading"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/jobs"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/llm"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/logger"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/observability"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/scheduling"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/store"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/store/pgstore"
)

// flagKeys binds persistent flags to config keys.
var flagKeys = map[string]string{
	"db":       "database.dsn",
	"driver":   "database.driver",
	"timezone": "timezone",
	"log-mode": "log.mode",
	"tracing":  "tracing.enabled",
}

// env is everything a command needs, built from the merged config.
type env struct {
	cfg      *config.Config
	log      *logger.Logger
	loc      *time.Location
	repo     store.Repository
	grader   *grading.Grader
	svc      *scheduling.Service
	shutdown func(context.Context) error
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New()
	flags := cmd.Root().PersistentFlags()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	file, _ := flags.GetString("config")
	return config.Load(v, file)
}

// openRepo opens the configured backend. An empty sqlite DSN resolves
// to the default data path.
func openRepo(cfg *config.Config, log *logger.Logger) (store.Repository, error) {
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := pgstore.Open(cfg.Database.DSN, log)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		path := cfg.Database.DSN
		var err error
		if path == "" {
			path, err = store.DefaultDBPath()
		} else if path != ":memory:" {
			err = store.EnsureDir(path)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// openEnv loads config and wires store, model provider, grader and
// scheduling service. Callers must Close it.
func openEnv(cmd *cobra.Command) (*env, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	shutdown, err := observability.Init(ctx, observability.Config{
		Enabled: cfg.Tracing,
		Version: version,
		Writer:  cmd.ErrOrStderr(),
	}, log)
	if err != nil {
		return nil, err
	}

	repo, err := openRepo(cfg, log)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open store: %w", err)
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM, repo, log)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "LLM provider not configured:", err)
		fmt.Fprintln(cmd.ErrOrStderr(), "Free-text answers will be saved without AI feedback.")
		provider = nil
	}
	grader := grading.New(cfg.Grading, provider, log)

	eligible, err := scheduling.EligibilityByName(cfg.Eligibility)
	if err != nil {
		_ = repo.Close()
		_ = shutdown(ctx)
		return nil, err
	}
	svc := scheduling.New(repo, grader,
		scheduling.WithLocation(loc),
		scheduling.WithLogger(log),
		scheduling.WithEligibility(eligible),
	)
	return &env{
		cfg:      cfg,
		log:      log,
		loc:      loc,
		repo:     repo,
		grader:   grader,
		svc:      svc,
		shutdown: shutdown,
	}, nil
}

func (e *env) Close() {
	if err := e.repo.Close(); err != nil {
		e.log.Warn("close store", "error", err)
	}
	if err := e.shutdown(context.Background()); err != nil {
		e.log.Warn("flush traces", "error", err)
	}
	e.log.Sync()
}

// snapshotJob builds the daily job. A configured Redis address makes
// the lock shared across processes; the returned close releases it.
func (e *env) snapshotJob(ctx context.Context) (*jobs.SnapshotJob, func(), error) {
	var (
		locker jobs.Locker = jobs.NewLocalLocker()
		closer             = func() {}
	)
	if e.cfg.Redis.Addr != "" {
		rl, err := jobs.NewRedisLocker(ctx, jobs.RedisConfig{
			Addr:     e.cfg.Redis.Addr,
			Password: e.cfg.Redis.Password,
			DB:       e.cfg.Redis.DB,
		}, e.log)
		if err != nil {
			return nil, nil, err
		}
		locker = rl
		closer = func() { _ = rl.Close() }
	}
	job := jobs.NewSnapshotJob(e.repo,
		jobs.WithLocker(locker, e.cfg.Redis.LockTTL),
		jobs.WithSnapshotClock(time.Now, e.loc),
		jobs.WithSnapshotLogger(e.log),
	)
	return job, closer, nil
}

// catchUp runs today's snapshot when snapshot.run_on_start is set, so
// the list is populated even if the daemon is not running. Re-running
// keeps gates captured earlier in the day.
func (e *env) catchUp(ctx context.Context) error {
	if !e.cfg.Snapshot.RunOnStart {
		return nil
	}
	job, closeJob, err := e.snapshotJob(ctx)
	if err != nil {
		return err
	}
	defer closeJob()
	_, err = job.RunToday(ctx)
	return err
}

// resolveLearner accepts a numeric ID or a learner name.
func (e *env) resolveLearner(ctx context.Context, ref string) (store.Learner, error) {
	if ref == "" {
		return store.Learner{}, fmt.Errorf("%w: --learner is required", review.ErrInvalidInput)
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return e.repo.GetLearner(ctx, id)
	}
	return e.repo.FindLearner(ctx, ref)
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", review.ErrInvalidInput, what, s)
	}
	return id, nil
}
