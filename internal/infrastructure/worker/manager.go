package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker is a background loop owned by the container, such as the deadline
// sweeper
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// WorkerManager runs the registered workers as one unit. Start is all or
// nothing: if one worker fails, the ones already started are stopped again.
// Workers stop in reverse start order.
type WorkerManager struct {
	logger *zap.Logger

	mu         sync.RWMutex
	registered []Worker
	started    []Worker
	cancel     context.CancelFunc
}

// NewWorkerManager creates an empty manager
func NewWorkerManager(logger *zap.Logger) *WorkerManager {
	return &WorkerManager{logger: logger}
}

// Register adds a worker. Workers registered after StartAll are picked up by
// the next StartAll.
func (m *WorkerManager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.registered = append(m.registered, w)
	m.logger.Debug("Worker registered", zap.String("worker_name", w.Name()))
}

// StartAll starts every registered worker under a context derived from ctx
func (m *WorkerManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return fmt.Errorf("workers already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	for _, w := range m.registered {
		if err := w.Start(runCtx); err != nil {
			m.logger.Error("Worker failed to start, rolling back",
				zap.String("worker_name", w.Name()),
				zap.Int("already_started", len(m.started)),
				zap.Error(err))
			cancel()
			if stopErr := m.stopStarted(); stopErr != nil {
				err = errors.Join(err, stopErr)
			}
			return fmt.Errorf("start worker %s: %w", w.Name(), err)
		}
		m.started = append(m.started, w)
	}

	m.cancel = cancel
	m.logger.Info("Background workers running", zap.Int("count", len(m.started)))
	return nil
}

// StopAll cancels the run context and stops the started workers
func (m *WorkerManager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel == nil {
		return nil
	}
	m.cancel()
	m.cancel = nil

	if err := m.stopStarted(); err != nil {
		return err
	}
	m.logger.Info("Background workers stopped")
	return nil
}

// stopStarted stops started workers newest first. Callers hold mu.
func (m *WorkerManager) stopStarted() error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		w := m.started[i]
		if err := w.Stop(); err != nil {
			m.logger.Error("Worker failed to stop",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("stop worker %s: %w", w.Name(), err))
		}
	}
	m.started = nil
	return errors.Join(errs...)
}

// Count returns the number of registered workers
func (m *WorkerManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.registered)
}

// IsRunning reports whether StartAll succeeded and StopAll has not run since
func (m *WorkerManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cancel != nil
}
