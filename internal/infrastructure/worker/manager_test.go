package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWorker struct {
	name     string
	startErr error
	log      *[]string
	mu       *sync.Mutex
}

func (w *recordingWorker) record(event string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	*w.log = append(*w.log, event+":"+w.name)
}

func (w *recordingWorker) Start(ctx context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}
	w.record("start")
	return nil
}

func (w *recordingWorker) Stop() error {
	w.record("stop")
	return nil
}

func (w *recordingWorker) Name() string { return w.name }

func TestWorkerManager_StartStopOrder(t *testing.T) {
	var log []string
	var mu sync.Mutex

	m := NewWorkerManager(zap.NewNop())
	m.Register(&recordingWorker{name: "a", log: &log, mu: &mu})
	m.Register(&recordingWorker{name: "b", log: &log, mu: &mu})

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())

	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, log)
}

func TestWorkerManager_StartFailureRollsBack(t *testing.T) {
	var log []string
	var mu sync.Mutex

	m := NewWorkerManager(zap.NewNop())
	m.Register(&recordingWorker{name: "sweeper", log: &log, mu: &mu})
	m.Register(&recordingWorker{name: "broken", startErr: errors.New("boom"), log: &log, mu: &mu})
	m.Register(&recordingWorker{name: "never", log: &log, mu: &mu})

	err := m.StartAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.False(t, m.IsRunning())
	assert.Equal(t, []string{"start:sweeper", "stop:sweeper"}, log)

	// Nothing is left running, so StopAll has no work
	require.NoError(t, m.StopAll())
	assert.Len(t, log, 2)
}

func TestWorkerManager_RejectsDoubleStart(t *testing.T) {
	var log []string
	var mu sync.Mutex

	m := NewWorkerManager(zap.NewNop())
	m.Register(&recordingWorker{name: "sweeper", log: &log, mu: &mu})

	require.NoError(t, m.StartAll(context.Background()))
	assert.Error(t, m.StartAll(context.Background()))
	require.NoError(t, m.StopAll())

	// A stopped manager can be started again
	require.NoError(t, m.StartAll(context.Background()))
	require.NoError(t, m.StopAll())
	assert.Equal(t, []string{"start:sweeper", "stop:sweeper", "start:sweeper", "stop:sweeper"}, log)
}

func TestWorkerManager_StopWhenIdle(t *testing.T) {
	m := NewWorkerManager(zap.NewNop())
	assert.NoError(t, m.StopAll())
}
