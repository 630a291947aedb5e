package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/dispatcher"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	"github.com/garyjia/staff-evaluation/internal/domain/event"
	"github.com/garyjia/staff-evaluation/internal/domain/scoring"
	domainwf "github.com/garyjia/staff-evaluation/internal/domain/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type escalationFixture struct {
	emitter   EscalationEmitter
	tasks     *fakeTaskRepo
	incidents *fakeIncidentRepo
	notifier  *fakeNotifier
	metrics   *fakeMetrics
	logger    *fakeLogger
}

func newEscalationFixture(tasks ...*entity.EvaluationTask) *escalationFixture {
	taskRepo := newFakeTaskRepo(tasks...)
	assignments := newFakeAssignmentRepo()
	assignments.byID[1] = &entity.Assignment{ID: 1, AreaID: 1, CreatedBy: "coordinator"}

	f := &escalationFixture{
		tasks:     taskRepo,
		incidents: &fakeIncidentRepo{},
		notifier:  &fakeNotifier{},
		metrics:   newFakeMetrics(),
		logger:    &fakeLogger{},
	}
	f.emitter = NewEscalationEmitter(taskRepo, assignments, f.incidents, newRosterWithArea(), f.notifier,
		&fakeTxManager{}, &fakeClock{now: testNow}, scoring.DefaultPolicy(), f.metrics, f.logger)
	return f
}

func terminalTask(status domainwf.State, score *float64) *entity.EvaluationTask {
	task := pendingPeerTask()
	task.Status = status
	task.Score = score
	return task
}

func scorePtr(v float64) *float64 { return &v }

func TestEscalation_OnTerminal(t *testing.T) {
	tests := []struct {
		name         string
		task         *entity.EvaluationTask
		wantCategory entity.IncidentCategory
	}{
		{"expired", terminalTask(domainwf.StateExpired, nil), entity.IncidentEvaluationExpired},
		{"completed below threshold", terminalTask(domainwf.StateCompleted, scorePtr(10.9)), entity.IncidentEvaluationBelowThreshold},
		{"completed at threshold", terminalTask(domainwf.StateCompleted, scorePtr(11.0)), ""},
		{"cancelled", terminalTask(domainwf.StateCancelled, nil), ""},
		{"still active", terminalTask(domainwf.StateActive, scorePtr(2)), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEscalationFixture(tt.task)

			incident, err := f.emitter.OnTerminal(context.Background(), tt.task)
			require.NoError(t, err)

			if tt.wantCategory == "" {
				assert.Nil(t, incident)
				assert.Empty(t, f.incidents.incidents)
				assert.Empty(t, f.notifier.sent)
				return
			}

			require.NotNil(t, incident)
			assert.Equal(t, tt.wantCategory, incident.Category)
			assert.Equal(t, "s1", incident.AffectedID)
			assert.Equal(t, "coordinator", incident.ReporterID)
			assert.True(t, incident.OccurredAt.Equal(testNow))
			assert.Equal(t, []string{"s1"}, f.notifier.sent)
			assert.Equal(t, 1, f.metrics.incidents[string(tt.wantCategory)])
		})
	}
}

func TestEscalation_OnTerminalIsIdempotent(t *testing.T) {
	task := terminalTask(domainwf.StateExpired, nil)
	f := newEscalationFixture(task)
	ctx := context.Background()

	first, err := f.emitter.OnTerminal(ctx, task)
	require.NoError(t, err)
	second, err := f.emitter.OnTerminal(ctx, task)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.incidents.incidents, 1)
	assert.Len(t, f.notifier.sent, 1, "notification goes out once")
}

func TestEscalation_NotifyFailureIsLogged(t *testing.T) {
	task := terminalTask(domainwf.StateExpired, nil)
	f := newEscalationFixture(task)
	f.notifier.err = errors.New("lark unavailable")

	incident, err := f.emitter.OnTerminal(context.Background(), task)
	require.NoError(t, err)
	require.NotNil(t, incident)

	assert.Len(t, f.incidents.incidents, 1)
	assert.Contains(t, f.logger.errors(), "Failed to notify affected person")
}

func TestEscalation_ReportLowScore(t *testing.T) {
	failing := terminalTask(domainwf.StateCompleted, scorePtr(8))
	f := newEscalationFixture(failing)

	incident, err := f.emitter.ReportLowScore(context.Background(), failing.ID, "sup1")
	require.NoError(t, err)
	assert.Equal(t, entity.IncidentEvaluationBelowThreshold, incident.Category)
	assert.Equal(t, "sup1", incident.ReporterID)

	// Automatic path afterwards finds the manual incident
	again, err := f.emitter.OnTerminal(context.Background(), failing)
	require.NoError(t, err)
	assert.Equal(t, incident.ID, again.ID)
	assert.Len(t, f.incidents.incidents, 1)
}

func TestEscalation_ReportLowScoreRejections(t *testing.T) {
	tests := []struct {
		name       string
		task       *entity.EvaluationTask
		supervisor string
		wantErr    error
	}{
		{"not a supervisor", terminalTask(domainwf.StateCompleted, scorePtr(8)), "p1", entity.ErrNotPermitted},
		{"passing score", terminalTask(domainwf.StateCompleted, scorePtr(15)), "sup1", entity.ErrIllegalTransition},
		{"not completed", terminalTask(domainwf.StateActive, scorePtr(8)), "sup1", entity.ErrIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEscalationFixture(tt.task)
			_, err := f.emitter.ReportLowScore(context.Background(), tt.task.ID, tt.supervisor)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.incidents.incidents)
		})
	}
}

func TestEscalation_RegisterHandlesTerminalEvents(t *testing.T) {
	task := terminalTask(domainwf.StateExpired, nil)
	f := newEscalationFixture(task)

	d := dispatcher.NewDispatcher()
	defer d.Close()
	f.emitter.Register(d)

	evt := event.NewEvent(event.TypeTaskTerminal, task.AssignmentID, task.ID, nil, testNow.Add(time.Minute))
	require.NoError(t, d.Dispatch(context.Background(), evt))

	require.Len(t, f.incidents.incidents, 1)
	assert.Equal(t, task.ID, f.incidents.incidents[0].TaskID)
}

func TestEscalation_ListIncidents(t *testing.T) {
	f := newEscalationFixture()
	ctx := context.Background()
	require.NoError(t, f.incidents.Create(ctx, &entity.Incident{TaskID: 1, AffectedID: "s1"}))
	require.NoError(t, f.incidents.Create(ctx, &entity.Incident{TaskID: 2, AffectedID: "s2"}))

	incidents, err := f.emitter.ListIncidents(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, int64(1), incidents[0].TaskID)
	assert.Equal(t, 50, f.incidents.lastLimit, "zero limit falls back to the default")

	_, err = f.emitter.ListIncidents(ctx, "s1", 1000)
	require.NoError(t, err)
	assert.Equal(t, 200, f.incidents.lastLimit)

	none, err := f.emitter.ListIncidents(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
