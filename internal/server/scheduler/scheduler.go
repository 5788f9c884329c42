// Package scheduler runs the daily result ingestion on a cron spec in the league timezone.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSpec runs after the previous day's last game has settled
const DefaultSpec = "0 6 * * *"

const defaultRunTimeout = 30 * time.Minute

// Job is one scheduled run
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner holding a single job
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	job     Job
	timeout time.Duration
	log     *zap.Logger
}

// New registers job on spec, evaluated in loc. Overlapping runs are skipped.
func New(spec string, loc *time.Location, job Job, logger *zap.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler requires a job")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		job:     job,
		timeout: defaultRunTimeout,
		log:     logger.Named("scheduler"),
	}

	cl := cronLogger{s.log.Sugar()}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	s.entry = id

	return s, nil
}

// Start begins scheduling in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Time("next_run", s.Next()))
}

// Next returns the next activation time, zero before Start
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Stop halts scheduling and waits for a running job until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.log.Error("scheduled ingestion failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return
	}
	s.log.Info("scheduled ingestion finished", zap.Duration("elapsed", time.Since(start)))
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
