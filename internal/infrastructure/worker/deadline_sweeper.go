package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSweepSchedule runs the sweep every 30 seconds
const DefaultSweepSchedule = "@every 30s"

// Sweeper is the part of the workflow engine the sweeper drives
type Sweeper interface {
	RunDeadlineSweep(ctx context.Context) error
}

// SweeperStats is a snapshot of the sweeper's counters
type SweeperStats struct {
	IsRunning bool
	Runs      int
	Failures  int
	LastRun   time.Time
	LastError error
}

// DeadlineSweeper runs the engine's deadline sweep on a cron schedule.
// A tick that is still running delays the next one; a panicking tick is recovered.
type DeadlineSweeper struct {
	engine      Sweeper
	schedule    string
	stopTimeout time.Duration
	logger      *zap.Logger

	mu        sync.RWMutex
	scheduler *cron.Cron
	cancel    context.CancelFunc
	isRunning bool
	runs      int
	failures  int
	lastRun   time.Time
	lastError error
}

// NewDeadlineSweeper creates a sweeper. An empty schedule uses DefaultSweepSchedule.
func NewDeadlineSweeper(engine Sweeper, schedule string, logger *zap.Logger) *DeadlineSweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &DeadlineSweeper{
		engine:      engine,
		schedule:    schedule,
		stopTimeout: 30 * time.Second,
		logger:      logger,
	}
}

// Name returns the worker name
func (w *DeadlineSweeper) Name() string {
	return "deadline-sweeper"
}

// Start schedules the sweep
func (w *DeadlineSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("sweeper already running")
	}

	cronLogger := zapCronLogger{w.logger.Sugar()}
	scheduler := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.DelayIfStillRunning(cronLogger)),
	)

	runCtx, cancel := context.WithCancel(ctx)
	if _, err := scheduler.AddFunc(w.schedule, func() { _ = w.RunOnce(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid sweep schedule %q: %w", w.schedule, err)
	}

	scheduler.Start()
	w.scheduler = scheduler
	w.cancel = cancel
	w.isRunning = true

	w.logger.Info("Deadline sweeper started", zap.String("schedule", w.schedule))
	return nil
}

// Stop cancels in-flight sweeps and waits for the running tick to finish
func (w *DeadlineSweeper) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.cancel()
	stopped := w.scheduler.Stop()
	w.mu.Unlock()

	select {
	case <-stopped.Done():
		w.logger.Info("Deadline sweeper stopped")
		return nil
	case <-time.After(w.stopTimeout):
		return fmt.Errorf("sweeper did not stop within %s", w.stopTimeout)
	}
}

// RunOnce performs one sweep and records the outcome
func (w *DeadlineSweeper) RunOnce(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	start := time.Now()
	err := w.engine.RunDeadlineSweep(ctx)

	w.mu.Lock()
	w.runs++
	w.lastRun = start
	w.lastError = err
	if err != nil {
		w.failures++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Deadline sweep finished with errors",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return err
	}
	w.logger.Debug("Deadline sweep finished", zap.Duration("duration", time.Since(start)))
	return nil
}

// Stats returns the sweeper's counters
func (w *DeadlineSweeper) Stats() SweeperStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return SweeperStats{
		IsRunning: w.isRunning,
		Runs:      w.runs,
		Failures:  w.failures,
		LastRun:   w.lastRun,
		LastError: w.lastError,
	}
}

// zapCronLogger adapts zap to cron.Logger
type zapCronLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw("cron: "+msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

var _ Worker = (*DeadlineSweeper)(nil)
