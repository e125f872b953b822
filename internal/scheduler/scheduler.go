// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"socialapi/internal/middleware"

	"github.com/robfig/cron/v3"
)

// NotificationPruner deletes read notifications older than a cutoff.
type NotificationPruner interface {
	PruneRead(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Scheduler wraps a cron runner. Jobs never overlap with themselves and a
// panicking job is recovered.
type Scheduler struct {
	cron *cron.Cron
}

// New creates an idle scheduler.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
	}
}

// AddNotificationSweep schedules deletion of read notifications older than
// retentionDays. A non-positive retention disables the job.
func (s *Scheduler) AddNotificationSweep(spec string, retentionDays int, pruner NotificationPruner) error {
	if retentionDays <= 0 {
		middleware.Logger.Info("notification sweep disabled")
		return nil
	}
	olderThan := time.Duration(retentionDays) * 24 * time.Hour
	_, err := s.cron.AddFunc(spec, func() {
		sweepNotifications(context.Background(), pruner, olderThan)
	})
	if err != nil {
		return fmt.Errorf("schedule notification sweep %q: %w", spec, err)
	}
	return nil
}

func sweepNotifications(ctx context.Context, pruner NotificationPruner, olderThan time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	start := time.Now()
	removed, err := pruner.PruneRead(ctx, olderThan)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "notification sweep failed", slog.String("error", err.Error()))
		return
	}
	middleware.Logger.InfoContext(ctx, "notification sweep finished",
		slog.Int64("removed", removed), slog.Duration("took", time.Since(start)))
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}
