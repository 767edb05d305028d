package checker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"precipwatch/internal/config"
	"precipwatch/internal/types"
)

// cronLogger adapts types.Logger to the cron.Logger interface.
type cronLogger struct {
	logger types.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.logger.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}

// Scheduler drives the check cycle and retention job on fixed cadences. A
// cycle that overruns its interval is skipped rather than stacked.
type Scheduler struct {
	cron   *cron.Cron
	cycle  *Cycle
	logger types.Logger
}

// NewScheduler creates a Scheduler with the cycle on the configured interval
// and the retention job daily. The jobs run against context.Background: a
// scheduled run in flight finishes even during shutdown drain.
func NewScheduler(cfg config.CheckerConfig, cycle *Cycle, retention *Retention, logger types.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cl),
		cron.Recover(cl),
	))

	cycleSpec := fmt.Sprintf("@every %dh", cfg.IntervalHours)
	if _, err := c.AddFunc(cycleSpec, func() {
		cycle.Run(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule check cycle: %w", err)
	}

	if retention != nil {
		if _, err := c.AddFunc("@daily", func() {
			retention.Run(context.Background())
		}); err != nil {
			return nil, fmt.Errorf("failed to schedule retention job: %w", err)
		}
	}

	logger.Info("scheduler configured",
		"cycle_interval", cycleSpec,
		"retention", retention != nil,
	)

	return &Scheduler{
		cron:   c,
		cycle:  cycle,
		logger: logger,
	}, nil
}

// Start begins the scheduled jobs in their own goroutines.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
