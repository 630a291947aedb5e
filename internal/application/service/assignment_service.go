package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/dispatcher"
	"github.com/garyjia/staff-evaluation/internal/application/port"
	appwf "github.com/garyjia/staff-evaluation/internal/application/workflow"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	"github.com/garyjia/staff-evaluation/internal/domain/event"
	domainwf "github.com/garyjia/staff-evaluation/internal/domain/workflow"
)

// CreateAssignmentRequest is the caller input for a new assignment
type CreateAssignmentRequest struct {
	AreaID      int64
	PeriodLabel string
	Start       time.Time
	End         time.Time
	Actor       string
}

// UpdateAssignmentRequest replaces the area and window of an assignment.
// An empty PeriodLabel keeps the current one.
type UpdateAssignmentRequest struct {
	ID          int64
	AreaID      int64
	PeriodLabel string
	Start       time.Time
	End         time.Time
	Actor       string
}

// AssignmentResult is returned by create and update
type AssignmentResult struct {
	Assignment   *entity.Assignment `json:"assignment"`
	TasksCreated int                `json:"tasks_created"`
}

// AssignmentService is the caller surface for assignments
type AssignmentService interface {
	Create(ctx context.Context, req CreateAssignmentRequest) (*AssignmentResult, error)
	Update(ctx context.Context, req UpdateAssignmentRequest) (*AssignmentResult, error)
	Delete(ctx context.Context, assignmentID int64, actor string) error
	Get(ctx context.Context, assignmentID int64) (*entity.Assignment, error)
}

type assignmentServiceImpl struct {
	assignmentRepo port.AssignmentRepository
	taskRepo       port.EvaluationTaskRepository
	validator      AssignmentValidator
	generator      FanOutGenerator
	engine         appwf.TaskEngine
	txManager      port.TransactionManager
	clock          port.Clock
	dispatcher     dispatcher.Dispatcher
	logger         Logger
}

// NewAssignmentService creates a new AssignmentService. d may be nil.
func NewAssignmentService(
	assignmentRepo port.AssignmentRepository,
	taskRepo port.EvaluationTaskRepository,
	validator AssignmentValidator,
	generator FanOutGenerator,
	engine appwf.TaskEngine,
	txManager port.TransactionManager,
	clock port.Clock,
	d dispatcher.Dispatcher,
	logger Logger,
) AssignmentService {
	return &assignmentServiceImpl{
		assignmentRepo: assignmentRepo,
		taskRepo:       taskRepo,
		validator:      validator,
		generator:      generator,
		engine:         engine,
		txManager:      txManager,
		clock:          clock,
		dispatcher:     d,
		logger:         logger,
	}
}

// Create validates and fans out a new assignment
func (s *assignmentServiceImpl) Create(ctx context.Context, req CreateAssignmentRequest) (*AssignmentResult, error) {
	label := strings.TrimSpace(req.PeriodLabel)
	if label == "" {
		return nil, fmt.Errorf("%w: period label is required", entity.ErrInvalidWindow)
	}

	assignment := &entity.Assignment{
		AreaID:      req.AreaID,
		PeriodLabel: label,
		StartAt:     req.Start.UTC(),
		EndAt:       req.End.UTC(),
		CreatedBy:   req.Actor,
	}

	result, err := s.generator.Generate(ctx, assignment)
	if err != nil {
		return nil, err
	}

	return &AssignmentResult{
		Assignment:   result.Assignment,
		TasksCreated: result.TasksCreated,
	}, nil
}

// Update moves the window or area of an assignment whose tasks are all
// untouched. A new area regenerates the task set.
func (s *assignmentServiceImpl) Update(ctx context.Context, req UpdateAssignmentRequest) (*AssignmentResult, error) {
	var assignment *entity.Assignment
	tasksCreated := 0

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		assignment, err = loadAssignment(txCtx, s.assignmentRepo, req.ID)
		if err != nil {
			return err
		}

		tasks, err := s.requireUntouched(txCtx, assignment)
		if err != nil {
			return err
		}

		label := strings.TrimSpace(req.PeriodLabel)
		if label == "" {
			label = assignment.PeriodLabel
		}
		start, end := req.Start.UTC(), req.End.UTC()

		validation, err := s.validator.Validate(txCtx, req.AreaID, start, end)
		if err != nil {
			return err
		}

		existing, err := s.assignmentRepo.FindActiveByWindow(txCtx, req.AreaID, label, start, end)
		if err != nil {
			return fmt.Errorf("check duplicate assignment: %w", err)
		}
		if existing != nil && existing.ID != assignment.ID {
			return fmt.Errorf("%w: assignment %d", entity.ErrDuplicateAssignment, existing.ID)
		}

		areaChanged := req.AreaID != assignment.AreaID
		windowChanged := !start.Equal(assignment.StartAt) || !end.Equal(assignment.EndAt)

		now := s.clock.Now()
		assignment.AreaID = req.AreaID
		assignment.PeriodLabel = label
		assignment.StartAt = start
		assignment.EndAt = end
		assignment.UpdatedAt = now
		if err := s.assignmentRepo.Update(txCtx, assignment); err != nil {
			return fmt.Errorf("update assignment: %w", err)
		}

		switch {
		case areaChanged:
			deleted, err := s.taskRepo.DeletePendingByAssignmentID(txCtx, assignment.ID)
			if err != nil {
				return fmt.Errorf("delete pending tasks: %w", err)
			}
			if int(deleted) != len(tasks) {
				return fmt.Errorf("%w: assignment %d has tasks that can no longer be replaced", entity.ErrIllegalTransition, assignment.ID)
			}

			planned := PlanTasks(assignment, validation.Roster, now)
			if err := s.taskRepo.CreateBatch(txCtx, planned); err != nil {
				return fmt.Errorf("create tasks: %w", err)
			}
			tasksCreated = len(planned)

		case windowChanged:
			if err := s.taskRepo.UpdateWindow(txCtx, assignment.ID, start, end); err != nil {
				return fmt.Errorf("update task window: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Assignment updated",
		"assignment_id", assignment.ID,
		"area_id", assignment.AreaID,
		"tasks_created", tasksCreated,
		"actor", req.Actor)
	s.publish(ctx, event.TypeAssignmentUpdated, assignment.ID, req.Actor)

	return &AssignmentResult{Assignment: assignment, TasksCreated: tasksCreated}, nil
}

// Delete soft-deletes the assignment and cancels its tasks. Every task must
// still be PENDING with no marks.
func (s *assignmentServiceImpl) Delete(ctx context.Context, assignmentID int64, actor string) error {
	var changes []*appwf.Change

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		assignment, err := loadAssignment(txCtx, s.assignmentRepo, assignmentID)
		if err != nil {
			return err
		}

		tasks, err := s.requireUntouched(txCtx, assignment)
		if err != nil {
			return err
		}

		for _, task := range tasks {
			change, err := s.engine.Apply(txCtx, task, domainwf.TriggerCancel, actor, false)
			if err != nil {
				return fmt.Errorf("cancel task %d: %w", task.ID, err)
			}
			changes = append(changes, change)
		}

		return s.assignmentRepo.MarkDeleted(txCtx, assignment.ID, s.clock.Now())
	})
	if err != nil {
		return err
	}

	s.engine.Publish(ctx, changes...)
	s.logger.Info("Assignment deleted",
		"assignment_id", assignmentID,
		"tasks_cancelled", len(changes),
		"actor", actor)
	s.publish(ctx, event.TypeAssignmentDeleted, assignmentID, actor)
	return nil
}

// Get returns a live assignment
func (s *assignmentServiceImpl) Get(ctx context.Context, assignmentID int64) (*entity.Assignment, error) {
	return loadAssignment(ctx, s.assignmentRepo, assignmentID)
}

// requireUntouched returns the assignment's tasks if all of them are still
// effectively PENDING and none has marks
func (s *assignmentServiceImpl) requireUntouched(ctx context.Context, a *entity.Assignment) ([]*entity.EvaluationTask, error) {
	tasks, err := s.taskRepo.GetByAssignmentID(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("get tasks: %w", err)
	}

	now := s.clock.Now()
	for _, task := range tasks {
		// An untouched task past its deadline is effectively EXPIRED
		status, _ := domainwf.ResolveStatus(task.Status, task.Deadline, false, now)
		if status != domainwf.StatePending {
			return nil, fmt.Errorf("%w: task %d of assignment %d is %s",
				entity.ErrIllegalTransition, task.ID, a.ID, status)
		}
	}

	scored, err := s.taskRepo.HasDetails(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("check score details: %w", err)
	}
	if scored {
		return nil, fmt.Errorf("%w: assignment %d already has marks", entity.ErrIllegalTransition, a.ID)
	}

	return tasks, nil
}

func (s *assignmentServiceImpl) publish(ctx context.Context, t event.Type, assignmentID int64, actor string) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(t, assignmentID, 0,
		map[string]interface{}{event.KeyActor: actor}, s.clock.Now()))
}
