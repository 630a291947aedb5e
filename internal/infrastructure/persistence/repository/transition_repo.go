package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	"github.com/garyjia/staff-evaluation/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// TransitionRepository implements port.TransitionRepository
type TransitionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransitionRepository creates a new transition repository
func NewTransitionRepository(db *sql.DB, logger *zap.Logger) port.TransitionRepository {
	return &TransitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create records one task status change
func (r *TransitionRepository) Create(ctx context.Context, t *entity.TaskTransition) error {
	query := `
		INSERT INTO task_transitions (
			task_id, previous_status, new_status, trigger_name, actor, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		t.TaskID,
		t.PreviousStatus,
		t.NewStatus,
		t.Trigger,
		t.Actor,
		toDBTime(t.OccurredAt),
	)
	if err != nil {
		r.logger.Error("Failed to create transition record", zap.Int64("task_id", t.TaskID), zap.Error(err))
		return fmt.Errorf("failed to create transition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	t.ID = id
	return nil
}

// GetByTaskID retrieves the transitions of a task in the order they happened
func (r *TransitionRepository) GetByTaskID(ctx context.Context, taskID int64) ([]*entity.TaskTransition, error) {
	query := `
		SELECT id, task_id, previous_status, new_status, trigger_name, actor, occurred_at
		FROM task_transitions
		WHERE task_id = ?
		ORDER BY id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, taskID)
	if err != nil {
		r.logger.Error("Failed to get transitions", zap.Int64("task_id", taskID), zap.Error(err))
		return nil, fmt.Errorf("failed to get transitions: %w", err)
	}
	defer rows.Close()

	var transitions []*entity.TaskTransition
	for rows.Next() {
		var t entity.TaskTransition
		if err := rows.Scan(
			&t.ID,
			&t.TaskID,
			&t.PreviousStatus,
			&t.NewStatus,
			&t.Trigger,
			&t.Actor,
			&t.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		t.OccurredAt = t.OccurredAt.UTC()
		transitions = append(transitions, &t)
	}

	return transitions, rows.Err()
}

// Verify interface compliance
var _ port.TransitionRepository = (*TransitionRepository)(nil)
