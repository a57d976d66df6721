// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultJobTimeout bounds a single job run unless the caller overrides it.
const DefaultJobTimeout = 10 * time.Minute

// Job is a unit of scheduled work. The context carries the job timeout.
type Job func(ctx context.Context) error

// Scheduler wraps a cron engine with logging, panic recovery and
// overlap protection for registered jobs.
type Scheduler struct {
	engine *cron.Cron
	logger *slog.Logger
}

// New creates a scheduler running in the given IANA timezone.
func New(timezone string, logger *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}

	cronLogger := &slogCronLogger{logger: logger}
	engine := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		),
	)

	return &Scheduler{
		engine: engine,
		logger: logger,
	}, nil
}

// Add registers a job under the given cron spec. A non-positive timeout
// falls back to DefaultJobTimeout.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, job Job) error {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}

	_, err := s.engine.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		s.logger.InfoContext(ctx, "scheduled job starting", slog.String("job", name))

		if err := job(ctx); err != nil {
			s.logger.ErrorContext(ctx, "scheduled job failed",
				slog.String("job", name),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("error", err.Error()),
			)
			return
		}

		s.logger.InfoContext(ctx, "scheduled job finished",
			slog.String("job", name),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
	if err != nil {
		return fmt.Errorf("adding job %q with spec %q: %w", name, spec, err)
	}

	return nil
}

// Start launches the cron engine in its own goroutine.
func (s *Scheduler) Start() {
	s.engine.Start()
	s.logger.Info("scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish, bounded by
// the context deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("scheduler stopping")

	stopCtx := s.engine.Stop()

	select {
	case <-stopCtx.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// slogCronLogger adapts slog to the cron.Logger interface.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l *slogCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{slog.String("error", err.Error())}, keysAndValues...)
	l.logger.Error(msg, args...)
}
