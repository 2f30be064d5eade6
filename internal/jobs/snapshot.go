// Package jobs runs the daily review snapshot, once per day across
// replicas.
package jobs

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/logger"
)

const tracerName = "github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/jobs"

// DefaultLockTTL bounds how long a crashed runner blocks the others.
const DefaultLockTTL = 10 * time.Minute

// Snapshotter is the store side of the snapshot.
type Snapshotter interface {
	RunSnapshot(ctx context.Context, day civil.Date, at time.Time) (int64, error)
}

// SnapshotResult describes one invocation.
type SnapshotResult struct {
	Date        civil.Date
	RowsUpdated int64
	// Skipped is set when another runner held the lock.
	Skipped bool
}

// SnapshotJob captures each learner's due states into the day's set.
type SnapshotJob struct {
	store   Snapshotter
	locker  Locker
	lockTTL time.Duration
	loc     *time.Location
	now     func() time.Time
	log     *logger.Logger
	tracer  trace.Tracer
}

type SnapshotOption func(*SnapshotJob)

func WithLocker(l Locker, ttl time.Duration) SnapshotOption {
	return func(j *SnapshotJob) {
		j.locker = l
		if ttl > 0 {
			j.lockTTL = ttl
		}
	}
}

func WithSnapshotClock(now func() time.Time, loc *time.Location) SnapshotOption {
	return func(j *SnapshotJob) {
		if now != nil {
			j.now = now
		}
		if loc != nil {
			j.loc = loc
		}
	}
}

func WithSnapshotLogger(log *logger.Logger) SnapshotOption {
	return func(j *SnapshotJob) { j.log = log }
}

func NewSnapshotJob(s Snapshotter, opts ...SnapshotOption) *SnapshotJob {
	j := &SnapshotJob{
		store:   s,
		locker:  NewLocalLocker(),
		lockTTL: DefaultLockTTL,
		loc:     time.Local,
		now:     time.Now,
		log:     logger.NewNop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(j)
	}
	j.log = j.log.With("component", "snapshot-job")
	return j
}

// Today is the current date in the job's zone.
func (j *SnapshotJob) Today() civil.Date {
	return civil.DateOf(j.now().In(j.loc))
}

// Run snapshots day. It is safe to run repeatedly for the same day.
func (j *SnapshotJob) Run(ctx context.Context, day civil.Date) (res SnapshotResult, err error) {
	ctx, span := j.tracer.Start(ctx, "jobs.RunDailySnapshot", trace.WithAttributes(
		attribute.String("snapshot.date", day.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	res.Date = day
	key := "ebbinghaus:snapshot:" + day.String()
	release, ok, err := j.locker.TryLock(ctx, key, j.lockTTL)
	if err != nil {
		return res, err
	}
	if !ok {
		j.log.Info("snapshot already running elsewhere", "date", day.String())
		res.Skipped = true
		span.SetAttributes(attribute.Bool("snapshot.skipped", true))
		return res, nil
	}
	defer release()

	start := j.now()
	n, err := j.store.RunSnapshot(ctx, day, start)
	if err != nil {
		j.log.Error("snapshot failed", "date", day.String(), "error", err)
		return res, fmt.Errorf("snapshot %s: %w", day, err)
	}
	res.RowsUpdated = n
	span.SetAttributes(attribute.Int64("snapshot.rows", n))
	j.log.Info("snapshot complete", "date", day.String(), "rows", n, "took", time.Since(start).String())
	return res, nil
}

// RunToday snapshots the current day.
func (j *SnapshotJob) RunToday(ctx context.Context) (SnapshotResult, error) {
	return j.Run(ctx, j.Today())
}
