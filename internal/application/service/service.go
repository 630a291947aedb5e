package service

import (
	"context"
	"fmt"

	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

func loadTask(ctx context.Context, repo port.EvaluationTaskRepository, taskID int64) (*entity.EvaluationTask, error) {
	task, err := repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %d", entity.ErrNotFound, taskID)
	}
	return task, nil
}

func loadAssignment(ctx context.Context, repo port.AssignmentRepository, assignmentID int64) (*entity.Assignment, error) {
	a, err := repo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if a == nil || a.IsDeleted() {
		return nil, fmt.Errorf("%w: assignment %d", entity.ErrNotFound, assignmentID)
	}
	return a, nil
}
