package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	"github.com/garyjia/staff-evaluation/internal/domain/workflow"
	"github.com/garyjia/staff-evaluation/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// EvaluationTaskRepository implements port.EvaluationTaskRepository
type EvaluationTaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEvaluationTaskRepository creates a new evaluation task repository
func NewEvaluationTaskRepository(db *sql.DB, logger *zap.Logger) port.EvaluationTaskRepository {
	return &EvaluationTaskRepository{
		db:     db,
		logger: logger,
	}
}

const taskColumns = `id, assignment_id, task_type, evaluator_id, subject_id,
	scheduled_at, deadline, status, score, comment,
	opened_at, finalized_at, created_at, updated_at`

// CreateBatch inserts tasks in order using one prepared statement
func (r *EvaluationTaskRepository) CreateBatch(ctx context.Context, tasks []*entity.EvaluationTask) error {
	if len(tasks) == 0 {
		return nil
	}

	query := `
		INSERT INTO evaluation_tasks (
			assignment_id, task_type, evaluator_id, subject_id,
			scheduled_at, deadline, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := sqlite.ExecutorFrom(ctx, r.db)
	for _, task := range tasks {
		if task.Status == "" {
			task.Status = workflow.StatePending
		}

		result, err := exec.ExecContext(ctx, query,
			task.AssignmentID,
			task.TaskType,
			task.EvaluatorID,
			task.SubjectID,
			toDBTime(task.ScheduledAt),
			toDBTime(task.Deadline),
			task.Status,
			toDBTime(task.CreatedAt),
			toDBTime(task.UpdatedAt),
		)
		if err != nil {
			r.logger.Error("Failed to create evaluation task",
				zap.Int64("assignment_id", task.AssignmentID),
				zap.String("task_type", string(task.TaskType)),
				zap.String("evaluator_id", task.EvaluatorID),
				zap.String("subject_id", task.SubjectID),
				zap.Error(err))
			return fmt.Errorf("failed to create evaluation task: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		task.ID = id
	}

	return nil
}

// GetByID retrieves a task with its score details
func (r *EvaluationTaskRepository) GetByID(ctx context.Context, id int64) (*entity.EvaluationTask, error) {
	query := `SELECT ` + taskColumns + ` FROM evaluation_tasks WHERE id = ?`

	task, err := scanTask(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get evaluation task", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get evaluation task: %w", err)
	}

	details, err := r.getDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Details = details

	return task, nil
}

// GetByAssignmentID retrieves every task of an assignment without details
func (r *EvaluationTaskRepository) GetByAssignmentID(ctx context.Context, assignmentID int64) ([]*entity.EvaluationTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM evaluation_tasks
		WHERE assignment_id = ?
		ORDER BY id
	`
	return r.queryTasks(ctx, "assignment", query, assignmentID)
}

// ListForPerson retrieves tasks where the person is evaluator or subject
func (r *EvaluationTaskRepository) ListForPerson(ctx context.Context, filter port.TaskFilter) ([]*entity.EvaluationTask, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + taskColumns + ` FROM evaluation_tasks t WHERE `)

	args := []interface{}{filter.PersonID}
	if filter.AsEvaluator {
		sb.WriteString(`t.evaluator_id = ?`)
	} else {
		sb.WriteString(`t.subject_id = ?`)
	}
	if filter.TaskType != "" {
		sb.WriteString(` AND t.task_type = ?`)
		args = append(args, filter.TaskType)
	}
	// Tasks of deleted assignments stay reachable by id but leave the lists
	sb.WriteString(` AND EXISTS (SELECT 1 FROM assignments a WHERE a.id = t.assignment_id AND a.deleted_at IS NULL)`)
	sb.WriteString(` ORDER BY t.deadline, t.id`)

	return r.queryTasks(ctx, "person", sb.String(), args...)
}

// ListOverdue retrieves one keyset page of non-terminal tasks whose deadline
// has passed, ordered by (deadline, id)
func (r *EvaluationTaskRepository) ListOverdue(ctx context.Context, now time.Time, after port.OverdueCursor, limit int) ([]*entity.EvaluationTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM evaluation_tasks
		WHERE status IN (?, ?) AND deadline < ?
		  AND (deadline > ? OR (deadline = ? AND id > ?))
		ORDER BY deadline, id
		LIMIT ?
	`
	cursor := toDBTime(after.Deadline)
	return r.queryTasks(ctx, "overdue", query,
		workflow.StatePending, workflow.StateActive, toDBTime(now),
		cursor, cursor, after.ID, limit)
}

// Save persists the mutable task fields
func (r *EvaluationTaskRepository) Save(ctx context.Context, task *entity.EvaluationTask) error {
	query := `
		UPDATE evaluation_tasks
		SET status = ?, score = ?, comment = ?, opened_at = ?, finalized_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		task.Status,
		nullFloat(task.Score),
		nullString(task.Comment),
		nullDBTime(task.OpenedAt),
		nullDBTime(task.FinalizedAt),
		toDBTime(task.UpdatedAt),
		task.ID,
	)
	if err != nil {
		r.logger.Error("Failed to save evaluation task",
			zap.Int64("id", task.ID),
			zap.String("status", string(task.Status)),
			zap.Error(err))
		return fmt.Errorf("failed to save evaluation task: %w", err)
	}

	return requireOneRow(result, "evaluation task", task.ID)
}

// ReplaceDetails swaps the full detail set of a task
func (r *EvaluationTaskRepository) ReplaceDetails(ctx context.Context, taskID int64, details []entity.ScoreDetail) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	if _, err := exec.ExecContext(ctx, `DELETE FROM score_details WHERE task_id = ?`, taskID); err != nil {
		r.logger.Error("Failed to clear score details", zap.Int64("task_id", taskID), zap.Error(err))
		return fmt.Errorf("failed to clear score details: %w", err)
	}

	query := `INSERT INTO score_details (task_id, subcriterion_id, points, position) VALUES (?, ?, ?, ?)`
	for _, d := range details {
		if _, err := exec.ExecContext(ctx, query, taskID, d.SubCriterionID, d.Points, d.Position); err != nil {
			r.logger.Error("Failed to insert score detail",
				zap.Int64("task_id", taskID),
				zap.Int64("subcriterion_id", d.SubCriterionID),
				zap.Error(err))
			return fmt.Errorf("failed to insert score detail: %w", err)
		}
	}

	return nil
}

// HasDetails reports whether any task of the assignment has saved marks
func (r *EvaluationTaskRepository) HasDetails(ctx context.Context, assignmentID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM score_details d
			JOIN evaluation_tasks t ON t.id = d.task_id
			WHERE t.assignment_id = ?
		)
	`

	var exists bool
	if err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, assignmentID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check score details", zap.Int64("assignment_id", assignmentID), zap.Error(err))
		return false, fmt.Errorf("failed to check score details: %w", err)
	}
	return exists, nil
}

// UpdateWindow moves the schedule and deadline of every non-terminal task
func (r *EvaluationTaskRepository) UpdateWindow(ctx context.Context, assignmentID int64, scheduledAt, deadline time.Time) error {
	query := `
		UPDATE evaluation_tasks
		SET scheduled_at = ?, deadline = ?, updated_at = ?
		WHERE assignment_id = ? AND status IN (?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		toDBTime(scheduledAt),
		toDBTime(deadline),
		toDBTime(time.Now()),
		assignmentID,
		workflow.StatePending,
		workflow.StateActive,
	)
	if err != nil {
		r.logger.Error("Failed to update task window", zap.Int64("assignment_id", assignmentID), zap.Error(err))
		return fmt.Errorf("failed to update task window: %w", err)
	}
	return nil
}

// DeletePendingByAssignmentID removes untouched tasks and their transition rows
func (r *EvaluationTaskRepository) DeletePendingByAssignmentID(ctx context.Context, assignmentID int64) (int64, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	untouched := `
		SELECT id FROM evaluation_tasks t
		WHERE t.assignment_id = ? AND t.status = ?
			AND NOT EXISTS (SELECT 1 FROM score_details d WHERE d.task_id = t.id)
			AND NOT EXISTS (SELECT 1 FROM incidents i WHERE i.task_id = t.id)
	`

	if _, err := exec.ExecContext(ctx,
		`DELETE FROM task_transitions WHERE task_id IN (`+untouched+`)`,
		assignmentID, workflow.StatePending); err != nil {
		r.logger.Error("Failed to delete task transitions", zap.Int64("assignment_id", assignmentID), zap.Error(err))
		return 0, fmt.Errorf("failed to delete task transitions: %w", err)
	}

	result, err := exec.ExecContext(ctx,
		`DELETE FROM evaluation_tasks WHERE id IN (`+untouched+`)`,
		assignmentID, workflow.StatePending)
	if err != nil {
		r.logger.Error("Failed to delete pending tasks", zap.Int64("assignment_id", assignmentID), zap.Error(err))
		return 0, fmt.Errorf("failed to delete pending tasks: %w", err)
	}

	return result.RowsAffected()
}

// CountByAssignment groups the assignment's tasks by type and status
func (r *EvaluationTaskRepository) CountByAssignment(ctx context.Context, assignmentID int64) ([]port.TaskCount, error) {
	query := `
		SELECT task_type, status, COUNT(*)
		FROM evaluation_tasks
		WHERE assignment_id = ?
		GROUP BY task_type, status
		ORDER BY task_type, status
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, assignmentID)
	if err != nil {
		r.logger.Error("Failed to count tasks", zap.Int64("assignment_id", assignmentID), zap.Error(err))
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()

	var counts []port.TaskCount
	for rows.Next() {
		var c port.TaskCount
		if err := rows.Scan(&c.TaskType, &c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan task count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

func (r *EvaluationTaskRepository) queryTasks(ctx context.Context, scope string, query string, args ...interface{}) ([]*entity.EvaluationTask, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query evaluation tasks", zap.String("scope", scope), zap.Error(err))
		return nil, fmt.Errorf("failed to query evaluation tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.EvaluationTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

func (r *EvaluationTaskRepository) getDetails(ctx context.Context, taskID int64) ([]entity.ScoreDetail, error) {
	query := `
		SELECT task_id, subcriterion_id, points, position
		FROM score_details
		WHERE task_id = ?
		ORDER BY position, subcriterion_id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, taskID)
	if err != nil {
		r.logger.Error("Failed to get score details", zap.Int64("task_id", taskID), zap.Error(err))
		return nil, fmt.Errorf("failed to get score details: %w", err)
	}
	defer rows.Close()

	var details []entity.ScoreDetail
	for rows.Next() {
		var d entity.ScoreDetail
		if err := rows.Scan(&d.TaskID, &d.SubCriterionID, &d.Points, &d.Position); err != nil {
			return nil, fmt.Errorf("failed to scan score detail: %w", err)
		}
		details = append(details, d)
	}

	return details, rows.Err()
}

func scanTask(row rowScanner) (*entity.EvaluationTask, error) {
	var task entity.EvaluationTask
	var score sql.NullFloat64
	var comment sql.NullString
	var openedAt, finalizedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.AssignmentID,
		&task.TaskType,
		&task.EvaluatorID,
		&task.SubjectID,
		&task.ScheduledAt,
		&task.Deadline,
		&task.Status,
		&score,
		&comment,
		&openedAt,
		&finalizedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.ScheduledAt = task.ScheduledAt.UTC()
	task.Deadline = task.Deadline.UTC()
	if score.Valid {
		task.Score = &score.Float64
	}
	if comment.Valid {
		task.Comment = &comment.String
	}
	task.OpenedAt = timePtr(openedAt)
	task.FinalizedAt = timePtr(finalizedAt)

	return &task, nil
}

// Verify interface compliance
var _ port.EvaluationTaskRepository = (*EvaluationTaskRepository)(nil)
