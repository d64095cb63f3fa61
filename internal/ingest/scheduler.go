package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tickerql/tickerql/internal/observability"
)

// Scheduler runs a job on a cron expression. A tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(expr string, timeout time.Duration, job func(context.Context) error, logger *slog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduled job is required")
	}
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:    ctx,
		cancel: cancel,
	}
	_, err := s.cron.AddFunc(expr, func() {
		runCtx := s.ctx
		if timeout > 0 {
			var cancelRun context.CancelFunc
			runCtx, cancelRun = context.WithTimeout(runCtx, timeout)
			defer cancelRun()
		}
		logger.InfoContext(runCtx, "scheduled ingest starting", slog.String("schedule", expr))
		if err := job(runCtx); err != nil {
			logger.ErrorContext(runCtx, "scheduled ingest failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("parse ingest schedule %q: %w", expr, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Next reports when the job fires next. It is zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop cancels a run in progress and waits for it to return or for ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
