package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs a pass every six hours.
const DefaultSchedule = "0 */6 * * *"

// Runner performs one retry pass. *Coordinator implements it.
type Runner interface {
	Run(ctx context.Context) (*Summary, error)
}

// Scheduler runs retry passes on a cron schedule. A pass that is still
// running when the next one is due causes that tick to be skipped.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	schedule string
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	last *Summary
}

// NewScheduler creates a Scheduler for the given cron spec. An empty spec
// uses DefaultSchedule.
func NewScheduler(schedule string, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("runner cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}

	logger = logger.With("component", "retry_scheduler")
	cronLog := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		runner:   runner,
		schedule: schedule,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid retry schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running passes in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("retry scheduler started", "schedule", s.schedule)
}

// Stop stops scheduling new passes and cancels scheduling inside a running
// pass. The returned context is done once the running pass has returned.
func (s *Scheduler) Stop() context.Context {
	s.cancel()
	done := s.cron.Stop()
	s.logger.Info("retry scheduler stopped")
	return done
}

// LastSummary returns the summary of the most recent successful pass, or
// nil if none has completed.
func (s *Scheduler) LastSummary() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) runOnce() {
	summary, err := s.runner.Run(s.ctx)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Info("retry pass skipped, another pass is running")
			return
		}
		s.logger.Error("retry pass failed", "error", err)
		return
	}

	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
