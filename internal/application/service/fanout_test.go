package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/dispatcher"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	"github.com/garyjia/staff-evaluation/internal/domain/event"
	domainwf "github.com/garyjia/staff-evaluation/internal/domain/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testAssignment() *entity.Assignment {
	return &entity.Assignment{
		AreaID:      1,
		PeriodLabel: "2026-1",
		StartAt:     testNow,
		EndAt:       testNow.Add(7 * 24 * time.Hour),
		CreatedBy:   "admin",
	}
}

func TestPlanTasks(t *testing.T) {
	a := testAssignment()
	a.ID = 5
	roster := &entity.Roster{
		Subjects:    people("s2", "s1"),
		Supervisors: people("sup1"),
		Peers:       people("p1", "p2"),
	}

	tasks := PlanTasks(a, roster, testNow)
	require.Len(t, tasks, 2+1*2+2*2)

	type key struct {
		taskType  entity.TaskType
		evaluator string
		subject   string
	}
	var got []key
	for _, task := range tasks {
		got = append(got, key{task.TaskType, task.EvaluatorID, task.SubjectID})
		assert.Equal(t, domainwf.StatePending, task.Status)
		assert.Equal(t, int64(5), task.AssignmentID)
		assert.True(t, task.ScheduledAt.Equal(a.StartAt))
		assert.True(t, task.Deadline.Equal(a.EndAt))
	}

	assert.Equal(t, []key{
		{entity.TaskTypeSelfEvaluation, "s1", "s1"},
		{entity.TaskTypeSelfEvaluation, "s2", "s2"},
		{entity.TaskTypeSupervisorToSubject, "sup1", "s1"},
		{entity.TaskTypeSupervisorToSubject, "sup1", "s2"},
		{entity.TaskTypePeerToSubject, "p1", "s1"},
		{entity.TaskTypePeerToSubject, "p2", "s1"},
		{entity.TaskTypePeerToSubject, "p1", "s2"},
		{entity.TaskTypePeerToSubject, "p2", "s2"},
	}, got)
}

func TestPlanTasks_PersonInSeveralRoles(t *testing.T) {
	roster := &entity.Roster{
		Subjects:    people("a"),
		Supervisors: people("a", "b"),
		Peers:       people("b", "c"),
	}

	tasks := PlanTasks(testAssignment(), roster, testNow)

	// a stays a subject only, b a supervisor only
	counts := countByType(tasks)
	assert.Equal(t, 1, counts[entity.TaskTypeSelfEvaluation])
	assert.Equal(t, 1, counts[entity.TaskTypeSupervisorToSubject])
	assert.Equal(t, 1, counts[entity.TaskTypePeerToSubject])
	for _, task := range tasks {
		if task.TaskType != entity.TaskTypeSelfEvaluation {
			assert.NotEqual(t, task.EvaluatorID, task.SubjectID)
		}
	}
}

func TestPlanTasks_SubjectsOnly(t *testing.T) {
	tasks := PlanTasks(testAssignment(), &entity.Roster{Subjects: people("s1", "s2", "s3")}, testNow)
	assert.Len(t, tasks, 3)
}

func newTestGenerator(assignments *fakeAssignmentRepo, tasks *fakeTaskRepo, d dispatcher.Dispatcher) (FanOutGenerator, *fakeMetrics) {
	metrics := newFakeMetrics()
	return NewFanOutGenerator(
		assignments,
		tasks,
		NewAssignmentValidator(newRosterWithArea()),
		&fakeTxManager{},
		&fakeClock{now: testNow},
		metrics,
		d,
		&fakeLogger{},
	), metrics
}

func TestFanOutGenerator_Generate(t *testing.T) {
	assignments := newFakeAssignmentRepo()
	tasks := newFakeTaskRepo()
	d := dispatcher.NewDispatcher()
	defer d.Close()

	created := make(chan *event.Event, 1)
	d.Subscribe(event.TypeAssignmentCreated, func(ctx context.Context, evt *event.Event) error {
		created <- evt
		return nil
	})

	gen, metrics := newTestGenerator(assignments, tasks, d)
	result, err := gen.Generate(context.Background(), testAssignment())
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.Assignment.ID)
	assert.Equal(t, entity.AssignmentStatusOpen, result.Assignment.Status)
	assert.Equal(t, 12, result.TasksCreated)
	require.Len(t, tasks.batches, 1)
	assert.Len(t, tasks.batches[0], 12)

	assert.Equal(t, 3, metrics.generated[string(entity.TaskTypeSelfEvaluation)])
	assert.Equal(t, 3, metrics.generated[string(entity.TaskTypeSupervisorToSubject)])
	assert.Equal(t, 6, metrics.generated[string(entity.TaskTypePeerToSubject)])

	select {
	case evt := <-created:
		assert.Equal(t, int64(1), evt.AssignmentID)
		assert.Equal(t, int64(12), evt.GetPayloadInt(event.KeyTasksCreated))
	case <-time.After(2 * time.Second):
		t.Fatal("assignment.created was not dispatched")
	}
}

func TestFanOutGenerator_Duplicate(t *testing.T) {
	assignments := newFakeAssignmentRepo()
	assignments.existing = &entity.Assignment{ID: 9}
	tasks := newFakeTaskRepo()

	gen, _ := newTestGenerator(assignments, tasks, nil)
	_, err := gen.Generate(context.Background(), testAssignment())

	assert.ErrorIs(t, err, entity.ErrDuplicateAssignment)
	assert.Empty(t, assignments.byID)
	assert.Empty(t, tasks.batches)
}

func TestFanOutGenerator_BatchFailure(t *testing.T) {
	assignments := newFakeAssignmentRepo()
	tasks := newFakeTaskRepo()
	tasks.batchErr = errors.New("disk full")

	gen, metrics := newTestGenerator(assignments, tasks, nil)
	a := testAssignment()
	_, err := gen.Generate(context.Background(), a)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Zero(t, a.ID, "caller must not see an id for a rolled back assignment")
	assert.Empty(t, metrics.generated)
}

func TestFanOutGenerator_EmptyRoster(t *testing.T) {
	assignments := newFakeAssignmentRepo()
	gen, _ := newTestGenerator(assignments, newFakeTaskRepo(), nil)

	a := testAssignment()
	a.AreaID = 3
	_, err := gen.Generate(context.Background(), a)

	assert.ErrorIs(t, err, entity.ErrEmptyRoster)
	assert.Empty(t, assignments.byID)
}
