// Package retention prunes terminal execution records on a cron
// cadence. Audit regulations usually bound how long raw review content
// may be held; the sweeper deletes succeeded, failed, and timed-out
// executions whose stop time is older than the configured age.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/awsdataarchitect/ai-compliance-auditor/execution"
)

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// terminal statuses subject to pruning.
var terminalStatuses = []execution.Status{
	execution.StatusSucceeded,
	execution.StatusFailed,
	execution.StatusTimedOut,
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = l }
}

// WithBatchSize caps how many records one sweep pass deletes per
// status. Zero means unbounded.
func WithBatchSize(n int) Option {
	return func(s *Sweeper) { s.batchSize = n }
}

// Sweeper deletes old terminal executions on a cron schedule.
type Sweeper struct {
	store    execution.Store
	schedule cronlib.Schedule
	maxAge   time.Duration
	logger   *slog.Logger

	batchSize int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Sweeper. scheduleExpr is a cron expression or
// descriptor ("0 3 * * *", "@every 1h"); maxAge is how long terminal
// executions are kept after they stop.
func New(store execution.Store, scheduleExpr string, maxAge time.Duration, opts ...Option) (*Sweeper, error) {
	sched, err := ParseSchedule(scheduleExpr)
	if err != nil {
		return nil, fmt.Errorf("auditor/retention: invalid schedule %q: %w", scheduleExpr, err)
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("auditor/retention: max age must be positive, got %s", maxAge)
	}

	s := &Sweeper{
		store:    store,
		schedule: sched,
		maxAge:   maxAge,
		logger:   slog.Default(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the sweep loop.
func (s *Sweeper) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.loop()
	s.logger.Info("retention sweeper started",
		slog.Duration("max_age", s.maxAge),
	)
	return nil
}

// Stop signals the sweeper to stop and waits for the loop to finish.
func (s *Sweeper) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("retention sweeper stopped")
	return nil
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		deleted, err := s.Sweep(context.Background())
		if err != nil {
			s.logger.Error("retention sweep failed", slog.String("error", err.Error()))
			continue
		}
		if deleted > 0 {
			s.logger.Info("retention sweep completed", slog.Int("deleted", deleted))
		}
	}
}

// Sweep runs one pruning pass immediately and reports how many
// executions were deleted. Exposed for direct invocation and admin
// tooling; the sweep loop calls it on schedule.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.maxAge)

	var deleted int
	for _, status := range terminalStatuses {
		execs, err := s.store.ListExecutions(ctx, execution.ListOpts{
			Status:        status,
			StoppedBefore: cutoff,
			Limit:         s.batchSize,
		})
		if err != nil {
			return deleted, fmt.Errorf("auditor/retention: list %s executions: %w", status, err)
		}

		for _, e := range execs {
			if err := s.store.DeleteExecution(ctx, e.ID); err != nil {
				return deleted, fmt.Errorf("auditor/retention: delete execution %s: %w", e.ID, err)
			}
			deleted++
		}
	}
	return deleted, nil
}
