package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler runs the sweep on a fixed interval so duration-zero rows do not
// depend on an operator remembering the manual trigger.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler starts a background sweep every interval. The caller owns
// shutdown via Stop.
func NewScheduler(sweeper *Sweeper, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid reconcile interval %s", interval)
	}
	if logger == nil {
		logger = slog.Default()
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			summary, err := sweeper.Sweep(ctx)
			if err != nil {
				logger.Error("scheduled reconciliation failed", "error", err)
				return
			}
			if summary.Total > 0 {
				logger.Info("scheduled reconciliation completed",
					"total", summary.Total,
					"updated", summary.Updated,
					"stillProcessing", summary.StillProcessing,
					"failed", summary.Failed,
				)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule reconciliation job: %w", err)
	}

	sched.Start()
	return &Scheduler{scheduler: sched}, nil
}

// Stop halts the background sweeps, waiting for an in-flight run to finish.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
