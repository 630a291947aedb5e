package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingRunner struct {
	mu     sync.Mutex
	calls  int
	result service.SweepResult
	ran    chan struct{}
}

func newCountingRunner(result service.SweepResult) *countingRunner {
	return &countingRunner{result: result, ran: make(chan struct{}, 16)}
}

func (r *countingRunner) Sweep(ctx context.Context) service.SweepResult {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	select {
	case r.ran <- struct{}{}:
	default:
	}
	return r.result
}

func (r *countingRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestDeadlineSweeper_RunsOnStart(t *testing.T) {
	runner := newCountingRunner(service.SweepResult{Scanned: 3, Transitioned: 2, Failed: 1})
	sweeper := NewDeadlineSweeper(DeadlineSweeperConfig{Interval: time.Hour, RunOnStart: true}, runner, zap.NewNop())

	require.NoError(t, sweeper.Start(context.Background()))

	select {
	case <-runner.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run on start")
	}

	require.NoError(t, sweeper.Stop())

	status := sweeper.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.Runs)
	assert.Equal(t, 2, status.Transitioned)
	assert.Equal(t, 1, status.Failed)
	assert.Equal(t, 3, status.LastResult.Scanned)
}

func TestDeadlineSweeper_TicksOnInterval(t *testing.T) {
	runner := newCountingRunner(service.SweepResult{})
	sweeper := NewDeadlineSweeper(DeadlineSweeperConfig{Interval: 10 * time.Millisecond}, runner, zap.NewNop())

	require.NoError(t, sweeper.Start(context.Background()))
	defer sweeper.Stop()

	assert.Eventually(t, func() bool { return runner.Calls() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestDeadlineSweeper_StartTwiceFails(t *testing.T) {
	sweeper := NewDeadlineSweeper(DeadlineSweeperConfig{Interval: time.Hour}, newCountingRunner(service.SweepResult{}), zap.NewNop())

	require.NoError(t, sweeper.Start(context.Background()))
	defer sweeper.Stop()

	assert.Error(t, sweeper.Start(context.Background()))
}

func TestDeadlineSweeper_StopWhenNotRunning(t *testing.T) {
	sweeper := NewDeadlineSweeper(DeadlineSweeperConfig{}, newCountingRunner(service.SweepResult{}), zap.NewNop())

	assert.NoError(t, sweeper.Stop())
	assert.Equal(t, "DeadlineSweeper", sweeper.Name())
}

func TestDeadlineSweeper_RunOnceWithoutLoop(t *testing.T) {
	runner := newCountingRunner(service.SweepResult{Transitioned: 4})
	sweeper := NewDeadlineSweeper(DefaultDeadlineSweeperConfig(), runner, zap.NewNop())

	result := sweeper.RunOnce(context.Background())

	assert.Equal(t, 4, result.Transitioned)
	assert.Equal(t, 1, runner.Calls())
	assert.Equal(t, 1, sweeper.Status().Runs)
}

func TestDeadlineSweeper_StopsWithParentContext(t *testing.T) {
	runner := newCountingRunner(service.SweepResult{})
	sweeper := NewDeadlineSweeper(DeadlineSweeperConfig{Interval: 5 * time.Millisecond}, runner, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sweeper.Start(ctx))
	cancel()

	// Stop still returns once the loop has exited on its own
	require.NoError(t, sweeper.Stop())
	calls := runner.Calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, runner.Calls())
}
