package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/dispatcher"
	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	"github.com/garyjia/staff-evaluation/internal/domain/event"
	domainwf "github.com/garyjia/staff-evaluation/internal/domain/workflow"
)

// GenerationResult is the outcome of one fan-out
type GenerationResult struct {
	Assignment   *entity.Assignment       `json:"assignment"`
	Tasks        []*entity.EvaluationTask `json:"-"`
	TasksCreated int                      `json:"tasks_created"`
}

// FanOutGenerator persists an assignment and its full task set atomically
type FanOutGenerator interface {
	Generate(ctx context.Context, assignment *entity.Assignment) (*GenerationResult, error)
}

type fanOutGeneratorImpl struct {
	assignmentRepo port.AssignmentRepository
	taskRepo       port.EvaluationTaskRepository
	validator      AssignmentValidator
	txManager      port.TransactionManager
	clock          port.Clock
	metrics        port.MetricsRecorder
	dispatcher     dispatcher.Dispatcher
	logger         Logger
}

// NewFanOutGenerator creates a new FanOutGenerator. d may be nil.
func NewFanOutGenerator(
	assignmentRepo port.AssignmentRepository,
	taskRepo port.EvaluationTaskRepository,
	validator AssignmentValidator,
	txManager port.TransactionManager,
	clock port.Clock,
	metrics port.MetricsRecorder,
	d dispatcher.Dispatcher,
	logger Logger,
) FanOutGenerator {
	return &fanOutGeneratorImpl{
		assignmentRepo: assignmentRepo,
		taskRepo:       taskRepo,
		validator:      validator,
		txManager:      txManager,
		clock:          clock,
		metrics:        metrics,
		dispatcher:     d,
		logger:         logger,
	}
}

// Generate validates, checks for a duplicate and inserts the assignment with
// S + P*S + T*S tasks in one transaction
func (g *fanOutGeneratorImpl) Generate(ctx context.Context, assignment *entity.Assignment) (*GenerationResult, error) {
	var tasks []*entity.EvaluationTask

	err := g.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// Roster may have changed since the caller's dry run
		validation, err := g.validator.Validate(txCtx, assignment.AreaID, assignment.StartAt, assignment.EndAt)
		if err != nil {
			return err
		}

		existing, err := g.assignmentRepo.FindActiveByWindow(txCtx,
			assignment.AreaID, assignment.PeriodLabel, assignment.StartAt, assignment.EndAt)
		if err != nil {
			return fmt.Errorf("check duplicate assignment: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: assignment %d", entity.ErrDuplicateAssignment, existing.ID)
		}

		now := g.clock.Now()
		assignment.Status = entity.AssignmentStatusOpen
		assignment.CreatedAt = now
		assignment.UpdatedAt = now
		if err := g.assignmentRepo.Create(txCtx, assignment); err != nil {
			return fmt.Errorf("create assignment: %w", err)
		}

		tasks = PlanTasks(assignment, validation.Roster, now)
		if err := g.taskRepo.CreateBatch(txCtx, tasks); err != nil {
			return fmt.Errorf("create tasks: %w", err)
		}

		return nil
	})
	if err != nil {
		g.logger.Error("Fan-out failed",
			"area_id", assignment.AreaID,
			"period_label", assignment.PeriodLabel,
			"error", err)
		assignment.ID = 0
		return nil, err
	}

	for taskType, n := range countByType(tasks) {
		g.metrics.TasksGenerated(string(taskType), n)
	}

	g.logger.Info("Assignment generated",
		"assignment_id", assignment.ID,
		"area_id", assignment.AreaID,
		"tasks_created", len(tasks))

	if g.dispatcher != nil {
		g.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeAssignmentCreated, assignment.ID, 0,
			map[string]interface{}{
				event.KeyTasksCreated: len(tasks),
				event.KeyActor:        assignment.CreatedBy,
			}, g.clock.Now()))
	}

	return &GenerationResult{
		Assignment:   assignment,
		Tasks:        tasks,
		TasksCreated: len(tasks),
	}, nil
}

// PlanTasks computes the task set for an assignment: one self evaluation per
// subject, then one task per (supervisor, subject) and per (peer, subject).
// Subjects and evaluators are visited in ID order so the set and its order are
// fixed for a given roster.
func PlanTasks(a *entity.Assignment, roster *entity.Roster, now time.Time) []*entity.EvaluationTask {
	roster = normalizeRoster(roster)
	subjects := roster.Subjects

	s, p, t := len(subjects), len(roster.Supervisors), len(roster.Peers)
	tasks := make([]*entity.EvaluationTask, 0, s+p*s+t*s)

	newTask := func(taskType entity.TaskType, evaluatorID, subjectID string) *entity.EvaluationTask {
		return &entity.EvaluationTask{
			AssignmentID: a.ID,
			TaskType:     taskType,
			EvaluatorID:  evaluatorID,
			SubjectID:    subjectID,
			ScheduledAt:  a.StartAt,
			Deadline:     a.Deadline(),
			Status:       domainwf.StatePending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	for _, subject := range subjects {
		tasks = append(tasks, newTask(entity.TaskTypeSelfEvaluation, subject.ID, subject.ID))
	}
	for _, subject := range subjects {
		for _, supervisor := range roster.Supervisors {
			tasks = append(tasks, newTask(entity.TaskTypeSupervisorToSubject, supervisor.ID, subject.ID))
		}
	}
	for _, subject := range subjects {
		for _, peer := range roster.Peers {
			tasks = append(tasks, newTask(entity.TaskTypePeerToSubject, peer.ID, subject.ID))
		}
	}

	return tasks
}

// normalizeRoster returns a sorted copy whose role sets are disjoint. A person
// found under several roles keeps the first of subject, supervisor, peer.
func normalizeRoster(r *entity.Roster) *entity.Roster {
	if r == nil {
		return &entity.Roster{}
	}

	seen := make(map[string]bool)
	pick := func(people []entity.PersonRef) []entity.PersonRef {
		sorted := append([]entity.PersonRef(nil), people...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

		out := make([]entity.PersonRef, 0, len(sorted))
		for _, p := range sorted {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, p)
		}
		return out
	}

	return &entity.Roster{
		AreaID:      r.AreaID,
		Subjects:    pick(r.Subjects),
		Supervisors: pick(r.Supervisors),
		Peers:       pick(r.Peers),
	}
}

func countByType(tasks []*entity.EvaluationTask) map[entity.TaskType]int {
	counts := make(map[entity.TaskType]int)
	for _, t := range tasks {
		counts[t.TaskType]++
	}
	return counts
}
