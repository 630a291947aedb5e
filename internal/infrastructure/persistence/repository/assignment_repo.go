package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	"github.com/garyjia/staff-evaluation/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// AssignmentRepository implements port.AssignmentRepository
type AssignmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *sql.DB, logger *zap.Logger) port.AssignmentRepository {
	return &AssignmentRepository{
		db:     db,
		logger: logger,
	}
}

const assignmentColumns = `id, area_id, period_label, start_at, end_at, status, created_by,
	deleted_at, created_at, updated_at`

// Create inserts an assignment. A live assignment with the same area, period
// and window yields entity.ErrDuplicateAssignment.
func (r *AssignmentRepository) Create(ctx context.Context, a *entity.Assignment) error {
	query := `
		INSERT INTO assignments (
			area_id, period_label, start_at, end_at, status, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if a.Status == "" {
		a.Status = entity.AssignmentStatusOpen
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		a.AreaID,
		a.PeriodLabel,
		toDBTime(a.StartAt),
		toDBTime(a.EndAt),
		a.Status,
		a.CreatedBy,
		toDBTime(a.CreatedAt),
		toDBTime(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: area %d period %s", entity.ErrDuplicateAssignment, a.AreaID, a.PeriodLabel)
		}
		r.logger.Error("Failed to create assignment",
			zap.Int64("area_id", a.AreaID),
			zap.String("period_label", a.PeriodLabel),
			zap.Error(err))
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	a.ID = id
	return nil
}

// GetByID retrieves an assignment, deleted or not
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*entity.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = ?`

	a, err := r.scanAssignment(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get assignment", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// FindActiveByWindow retrieves the live assignment occupying a window
func (r *AssignmentRepository) FindActiveByWindow(ctx context.Context, areaID int64, periodLabel string, start, end time.Time) (*entity.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE area_id = ? AND period_label = ? AND start_at = ? AND end_at = ?
			AND deleted_at IS NULL
		LIMIT 1
	`

	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, areaID, periodLabel, toDBTime(start), toDBTime(end))
	a, err := r.scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find assignment by window",
			zap.Int64("area_id", areaID),
			zap.String("period_label", periodLabel),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find assignment: %w", err)
	}
	return a, nil
}

// Update rewrites the mutable fields of a live assignment
func (r *AssignmentRepository) Update(ctx context.Context, a *entity.Assignment) error {
	query := `
		UPDATE assignments
		SET area_id = ?, period_label = ?, start_at = ?, end_at = ?, status = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		a.AreaID,
		a.PeriodLabel,
		toDBTime(a.StartAt),
		toDBTime(a.EndAt),
		a.Status,
		toDBTime(a.UpdatedAt),
		a.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: area %d period %s", entity.ErrDuplicateAssignment, a.AreaID, a.PeriodLabel)
		}
		r.logger.Error("Failed to update assignment", zap.Int64("id", a.ID), zap.Error(err))
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	return requireOneRow(result, "assignment", a.ID)
}

// UpdateStatus sets OPEN or CLOSED
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE assignments SET status = ?, updated_at = ? WHERE id = ?`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, status, toDBTime(time.Now()), id)
	if err != nil {
		r.logger.Error("Failed to update assignment status",
			zap.Int64("id", id),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("failed to update assignment status: %w", err)
	}

	return requireOneRow(result, "assignment", id)
}

// MarkDeleted soft-deletes the assignment and closes it
func (r *AssignmentRepository) MarkDeleted(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE assignments
		SET deleted_at = ?, status = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		toDBTime(at), entity.AssignmentStatusClosed, toDBTime(at), id)
	if err != nil {
		r.logger.Error("Failed to delete assignment", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	return requireOneRow(result, "assignment", id)
}

// ListOpen retrieves live assignments that are still OPEN
func (r *AssignmentRepository) ListOpen(ctx context.Context) ([]*entity.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE status = ? AND deleted_at IS NULL
		ORDER BY id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, entity.AssignmentStatusOpen)
	if err != nil {
		r.logger.Error("Failed to list open assignments", zap.Error(err))
		return nil, fmt.Errorf("failed to list open assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*entity.Assignment
	for rows.Next() {
		a, err := r.scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *AssignmentRepository) scanAssignment(row rowScanner) (*entity.Assignment, error) {
	var a entity.Assignment
	var deletedAt sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.AreaID,
		&a.PeriodLabel,
		&a.StartAt,
		&a.EndAt,
		&a.Status,
		&a.CreatedBy,
		&deletedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.StartAt = a.StartAt.UTC()
	a.EndAt = a.EndAt.UTC()
	a.DeletedAt = timePtr(deletedAt)
	return &a, nil
}

func requireOneRow(result sql.Result, kind string, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s %d", entity.ErrNotFound, kind, id)
	}
	return nil
}

// Verify interface compliance
var _ port.AssignmentRepository = (*AssignmentRepository)(nil)
