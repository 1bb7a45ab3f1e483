// Package jobs runs periodic background work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jeremytraini/auscal/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	JobKindHolidayPrefetch = "holiday_prefetch"
	JobKindCacheSweep      = "cache_sweep"

	// DefaultJobTimeout bounds a single run.
	DefaultJobTimeout = 2 * time.Minute
)

// Worker is one kind of periodic job.
type Worker interface {
	Kind() string
	Work(ctx context.Context) error
}

// Scheduler runs workers on cron specs. Runs of the same worker never
// overlap; a run still in progress when the next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  zerolog.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "jobs").Logger()
	cronLogger := cronLogAdapter{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger:  logger,
		timeout: DefaultJobTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register schedules w with a standard five-field cron spec.
func (s *Scheduler) Register(spec string, w Worker) error {
	if _, err := s.cron.AddFunc(spec, func() { _ = s.run(w) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", w.Kind(), spec, err)
	}
	s.logger.Info().Str("job", w.Kind()).Str("schedule", spec).Msg("job scheduled")
	return nil
}

// RunNow executes w once on the calling goroutine with the same
// instrumentation as a scheduled run.
func (s *Scheduler) RunNow(w Worker) error {
	return s.run(w)
}

func (s *Scheduler) run(w Worker) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	done := metrics.TrackJob(w.Kind())
	start := time.Now()
	err := w.Work(ctx)
	done(err)

	event := s.logger.Info()
	if err != nil {
		event = s.logger.Error().Err(err)
	}
	event.Str("job", w.Kind()).Dur("duration", time.Since(start)).Msg("job finished")
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling, cancels running jobs and waits for them to return
// or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	s.cancel()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogAdapter struct {
	logger zerolog.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
