package port

import (
	"context"
	"time"

	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	"github.com/garyjia/staff-evaluation/internal/domain/workflow"
)

// Repositories return (nil, nil) when a single row lookup finds nothing.

// AssignmentRepository defines persistence operations for Assignment
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *entity.Assignment) error
	GetByID(ctx context.Context, id int64) (*entity.Assignment, error)

	// FindActiveByWindow returns the non-deleted assignment with exactly this
	// area, period and window
	FindActiveByWindow(ctx context.Context, areaID int64, periodLabel string, start, end time.Time) (*entity.Assignment, error)

	// Update rewrites area, period, window and status
	Update(ctx context.Context, assignment *entity.Assignment) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	MarkDeleted(ctx context.Context, id int64, at time.Time) error

	// ListOpen returns non-deleted assignments still in OPEN status
	ListOpen(ctx context.Context) ([]*entity.Assignment, error)
}

// TaskFilter narrows ListForPerson
type TaskFilter struct {
	PersonID    string
	TaskType    entity.TaskType // empty matches every type
	AsEvaluator bool            // false matches the person as subject
}

// TaskCount is one (type, status) bucket of an assignment's task set
type TaskCount struct {
	TaskType entity.TaskType
	Status   workflow.State
	Count    int
}

// OverdueCursor is the (deadline, id) key of the last task a sweep page
// returned. The zero value starts from the beginning.
type OverdueCursor struct {
	Deadline time.Time
	ID       int64
}

// EvaluationTaskRepository defines persistence operations for EvaluationTask
// and its ScoreDetail rows
type EvaluationTaskRepository interface {
	CreateBatch(ctx context.Context, tasks []*entity.EvaluationTask) error

	// GetByID loads the task with its details in position order
	GetByID(ctx context.Context, id int64) (*entity.EvaluationTask, error)

	// GetByAssignmentID loads the tasks of an assignment without details
	GetByAssignmentID(ctx context.Context, assignmentID int64) ([]*entity.EvaluationTask, error)

	ListForPerson(ctx context.Context, filter TaskFilter) ([]*entity.EvaluationTask, error)

	// ListOverdue returns up to limit non-terminal tasks whose deadline is
	// before now and whose (deadline, id) key is after the cursor
	ListOverdue(ctx context.Context, now time.Time, after OverdueCursor, limit int) ([]*entity.EvaluationTask, error)

	// Save persists status, score, comment and timestamps
	Save(ctx context.Context, task *entity.EvaluationTask) error

	// ReplaceDetails deletes every detail row of the task and inserts details
	ReplaceDetails(ctx context.Context, taskID int64, details []entity.ScoreDetail) error

	// HasDetails reports whether any task of the assignment has a detail row
	HasDetails(ctx context.Context, assignmentID int64) (bool, error)

	UpdateWindow(ctx context.Context, assignmentID int64, scheduledAt, deadline time.Time) error

	// DeletePendingByAssignmentID removes PENDING tasks without details
	DeletePendingByAssignmentID(ctx context.Context, assignmentID int64) (int64, error)

	CountByAssignment(ctx context.Context, assignmentID int64) ([]TaskCount, error)
}

// IncidentRepository defines persistence operations for Incident
type IncidentRepository interface {
	Create(ctx context.Context, incident *entity.Incident) error
	FindByTaskAndCategory(ctx context.Context, taskID int64, category entity.IncidentCategory) (*entity.Incident, error)
	ListByAffected(ctx context.Context, personID string, limit int) ([]*entity.Incident, error)
}

// TransitionRepository defines persistence operations for TaskTransition
type TransitionRepository interface {
	Create(ctx context.Context, transition *entity.TaskTransition) error
	GetByTaskID(ctx context.Context, taskID int64) ([]*entity.TaskTransition, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
