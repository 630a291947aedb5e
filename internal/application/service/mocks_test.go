package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
)

// Mock implementations

type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type logEntry struct {
	level string
	msg   string
	kv    []interface{}
}

type fakeLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *fakeLogger) Info(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{"info", msg, keysAndValues})
}

func (l *fakeLogger) Error(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{"error", msg, keysAndValues})
}

func (l *fakeLogger) errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == "error" {
			out = append(out, e.msg)
		}
	}
	return out
}

type fakeRoster struct {
	areas   map[int64]*entity.Area
	rosters map[int64]*entity.Roster
	err     error
}

func (f *fakeRoster) GetArea(ctx context.Context, areaID int64) (*entity.Area, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.areas[areaID], nil
}

func (f *fakeRoster) GetActiveRoster(ctx context.Context, areaID int64) (*entity.Roster, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.rosters[areaID]; ok {
		return r, nil
	}
	return &entity.Roster{AreaID: areaID}, nil
}

type fakeAssignmentRepo struct {
	port.AssignmentRepository
	byID          map[int64]*entity.Assignment
	existing      *entity.Assignment
	createErr     error
	statusUpdates map[int64]string
	nextID        int64
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{
		byID:          make(map[int64]*entity.Assignment),
		statusUpdates: make(map[int64]string),
	}
}

func (m *fakeAssignmentRepo) Create(ctx context.Context, a *entity.Assignment) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	a.ID = m.nextID
	m.byID[a.ID] = a
	return nil
}

func (m *fakeAssignmentRepo) GetByID(ctx context.Context, id int64) (*entity.Assignment, error) {
	return m.byID[id], nil
}

func (m *fakeAssignmentRepo) FindActiveByWindow(ctx context.Context, areaID int64, periodLabel string, start, end time.Time) (*entity.Assignment, error) {
	return m.existing, nil
}

func (m *fakeAssignmentRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	m.statusUpdates[id] = status
	return nil
}

type fakeTaskRepo struct {
	port.EvaluationTaskRepository
	tasks    map[int64]*entity.EvaluationTask
	batches  [][]*entity.EvaluationTask
	batchErr error
	counts   []port.TaskCount
}

func newFakeTaskRepo(tasks ...*entity.EvaluationTask) *fakeTaskRepo {
	m := &fakeTaskRepo{tasks: make(map[int64]*entity.EvaluationTask)}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

func (m *fakeTaskRepo) CreateBatch(ctx context.Context, tasks []*entity.EvaluationTask) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.batches = append(m.batches, tasks)
	return nil
}

func (m *fakeTaskRepo) GetByID(ctx context.Context, id int64) (*entity.EvaluationTask, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	cp.Details = append([]entity.ScoreDetail(nil), t.Details...)
	return &cp, nil
}

func (m *fakeTaskRepo) Save(ctx context.Context, task *entity.EvaluationTask) error {
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *fakeTaskRepo) ReplaceDetails(ctx context.Context, taskID int64, details []entity.ScoreDetail) error {
	t, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %d missing", taskID)
	}
	t.Details = append([]entity.ScoreDetail(nil), details...)
	return nil
}

func (m *fakeTaskRepo) ListOverdue(ctx context.Context, now time.Time, after port.OverdueCursor, limit int) ([]*entity.EvaluationTask, error) {
	var out []*entity.EvaluationTask
	for _, t := range m.tasks {
		if t.Status.IsTerminal() || !t.Deadline.Before(now) {
			continue
		}
		if t.Deadline.Before(after.Deadline) || (t.Deadline.Equal(after.Deadline) && t.ID <= after.ID) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Deadline.Equal(out[j].Deadline) {
			return out[i].Deadline.Before(out[j].Deadline)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *fakeTaskRepo) CountByAssignment(ctx context.Context, assignmentID int64) ([]port.TaskCount, error) {
	return m.counts, nil
}

type fakeTransitionRepo struct {
	transitions []*entity.TaskTransition
}

func (m *fakeTransitionRepo) Create(ctx context.Context, t *entity.TaskTransition) error {
	m.transitions = append(m.transitions, t)
	return nil
}

func (m *fakeTransitionRepo) GetByTaskID(ctx context.Context, taskID int64) ([]*entity.TaskTransition, error) {
	var out []*entity.TaskTransition
	for _, t := range m.transitions {
		if t.TaskID == taskID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeIncidentRepo struct {
	mu        sync.Mutex
	incidents []*entity.Incident
	lastLimit int
}

func (m *fakeIncidentRepo) Create(ctx context.Context, incident *entity.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	incident.ID = int64(len(m.incidents) + 1)
	m.incidents = append(m.incidents, incident)
	return nil
}

func (m *fakeIncidentRepo) FindByTaskAndCategory(ctx context.Context, taskID int64, category entity.IncidentCategory) (*entity.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.incidents {
		if i.TaskID == taskID && i.Category == category {
			return i, nil
		}
	}
	return nil, nil
}

func (m *fakeIncidentRepo) ListByAffected(ctx context.Context, personID string, limit int) ([]*entity.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	var out []*entity.Incident
	for _, i := range m.incidents {
		if i.AffectedID == personID {
			out = append(out, i)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	criteria map[entity.TaskType][]entity.Criterion
	errs     map[entity.TaskType]error
}

func (c *fakeCatalog) GetCriteria(ctx context.Context, taskType entity.TaskType) ([]entity.Criterion, error) {
	if err := c.errs[taskType]; err != nil {
		return nil, err
	}
	return c.criteria[taskType], nil
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (n *fakeNotifier) Notify(ctx context.Context, personID string, message string) error {
	n.sent = append(n.sent, personID)
	return n.err
}

type fakeMetrics struct {
	port.NopMetrics
	mu        sync.Mutex
	generated map[string]int
	incidents map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{generated: make(map[string]int), incidents: make(map[string]int)}
}

func (m *fakeMetrics) TasksGenerated(taskType string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generated[taskType] += count
}

func (m *fakeMetrics) IncidentRaised(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incidents[category]++
}

func people(ids ...string) []entity.PersonRef {
	out := make([]entity.PersonRef, len(ids))
	for i, id := range ids {
		out[i] = entity.PersonRef{ID: id, Name: "Person " + id}
	}
	return out
}

// fourItemCatalog has two criteria with two sub-criteria each
func fourItemCatalog() []entity.Criterion {
	return []entity.Criterion{
		{ID: 1, Name: "Planning", Position: 0, SubCriteria: []entity.SubCriterion{
			{ID: 11, CriterionID: 1, Name: "Objectives", Position: 0},
			{ID: 12, CriterionID: 1, Name: "Materials", Position: 1},
		}},
		{ID: 2, Name: "Delivery", Position: 1, SubCriteria: []entity.SubCriterion{
			{ID: 21, CriterionID: 2, Name: "Clarity", Position: 0},
			{ID: 22, CriterionID: 2, Name: "Time use", Position: 1},
		}},
	}
}
