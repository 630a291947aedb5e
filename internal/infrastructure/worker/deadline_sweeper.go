package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/service"
	"go.uber.org/zap"
)

// SweepRunner runs one deadline sweep pass
type SweepRunner interface {
	Sweep(ctx context.Context) service.SweepResult
}

// DeadlineSweeperConfig holds configuration for the deadline sweeper
type DeadlineSweeperConfig struct {
	Interval   time.Duration
	RunOnStart bool
}

// DefaultDeadlineSweeperConfig returns default configuration
func DefaultDeadlineSweeperConfig() DeadlineSweeperConfig {
	return DeadlineSweeperConfig{
		Interval:   time.Minute,
		RunOnStart: true,
	}
}

// SweeperStatus is a snapshot of the sweeper's runtime counters
type SweeperStatus struct {
	Running      bool                `json:"running"`
	Runs         int                 `json:"runs"`
	LastRunAt    time.Time           `json:"last_run_at"`
	LastResult   service.SweepResult `json:"last_result"`
	Transitioned int                 `json:"transitioned"`
	Failed       int                 `json:"failed"`
}

// DeadlineSweeper applies the deadline rule to overdue tasks on a fixed interval
type DeadlineSweeper struct {
	config DeadlineSweeperConfig
	runner SweepRunner
	logger *zap.Logger

	mu     sync.RWMutex
	cancel context.CancelFunc
	done   chan struct{}
	status SweeperStatus

	// Serializes ticker runs with on-demand runs
	runMu sync.Mutex
}

// NewDeadlineSweeper creates a new deadline sweeper
func NewDeadlineSweeper(config DeadlineSweeperConfig, runner SweepRunner, logger *zap.Logger) *DeadlineSweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultDeadlineSweeperConfig().Interval
	}
	return &DeadlineSweeper{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Start begins the sweep loop
func (w *DeadlineSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.status.Running {
		w.mu.Unlock()
		return fmt.Errorf("deadline sweeper already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.status.Running = true
	w.mu.Unlock()

	w.logger.Info("DeadlineSweeper started",
		zap.Duration("interval", w.config.Interval),
		zap.Bool("run_on_start", w.config.RunOnStart))

	go w.loop(loopCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (w *DeadlineSweeper) Stop() error {
	w.mu.Lock()
	if !w.status.Running {
		w.mu.Unlock()
		return nil
	}
	w.status.Running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	status := w.Status()
	w.logger.Info("DeadlineSweeper stopped",
		zap.Int("runs", status.Runs),
		zap.Int("transitioned", status.Transitioned),
		zap.Int("failed", status.Failed))
	return nil
}

// Name returns the worker name for identification
func (w *DeadlineSweeper) Name() string {
	return "DeadlineSweeper"
}

// RunOnce performs one sweep now, waiting for any running sweep first
func (w *DeadlineSweeper) RunOnce(ctx context.Context) service.SweepResult {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	result := w.runner.Sweep(ctx)

	w.mu.Lock()
	w.status.Runs++
	w.status.LastRunAt = time.Now()
	w.status.LastResult = result
	w.status.Transitioned += result.Transitioned
	w.status.Failed += result.Failed
	w.mu.Unlock()

	if result.Failed > 0 {
		w.logger.Warn("Deadline sweep finished with failures",
			zap.Int("failed", result.Failed),
			zap.Int("transitioned", result.Transitioned))
	}
	return result
}

// Status returns a snapshot of the runtime counters
func (w *DeadlineSweeper) Status() SweeperStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func (w *DeadlineSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if w.config.RunOnStart {
		w.RunOnce(ctx)
	}

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Sweep loop context cancelled")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}
