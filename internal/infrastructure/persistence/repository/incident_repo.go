package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
	"github.com/garyjia/staff-evaluation/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// IncidentRepository implements port.IncidentRepository
type IncidentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIncidentRepository creates a new incident repository
func NewIncidentRepository(db *sql.DB, logger *zap.Logger) port.IncidentRepository {
	return &IncidentRepository{
		db:     db,
		logger: logger,
	}
}

const incidentColumns = `id, task_id, occurred_at, description, category, reporter_id, affected_id, created_at`

// Create inserts an incident. A second incident of the same category for the
// same task is absorbed: incident receives the existing row.
func (r *IncidentRepository) Create(ctx context.Context, incident *entity.Incident) error {
	query := `
		INSERT INTO incidents (
			task_id, occurred_at, description, category, reporter_id, affected_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (task_id, category) DO NOTHING
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		incident.TaskID,
		toDBTime(incident.OccurredAt),
		incident.Description,
		incident.Category,
		incident.ReporterID,
		incident.AffectedID,
		toDBTime(incident.CreatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create incident",
			zap.Int64("task_id", incident.TaskID),
			zap.String("category", string(incident.Category)),
			zap.Error(err))
		return fmt.Errorf("failed to create incident: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := r.FindByTaskAndCategory(ctx, incident.TaskID, incident.Category)
		if err != nil {
			return err
		}
		if existing != nil {
			*incident = *existing
		}
		return nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	incident.ID = id
	return nil
}

// FindByTaskAndCategory retrieves the incident of a category for a task
func (r *IncidentRepository) FindByTaskAndCategory(ctx context.Context, taskID int64, category entity.IncidentCategory) (*entity.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE task_id = ? AND category = ?`

	incident, err := scanIncident(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, taskID, category))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find incident",
			zap.Int64("task_id", taskID),
			zap.String("category", string(category)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find incident: %w", err)
	}
	return incident, nil
}

// ListByAffected retrieves the most recent incidents about a person
func (r *IncidentRepository) ListByAffected(ctx context.Context, personID string, limit int) ([]*entity.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE affected_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, personID, limit)
	if err != nil {
		r.logger.Error("Failed to list incidents", zap.String("affected_id", personID), zap.Error(err))
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*entity.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		incidents = append(incidents, incident)
	}

	return incidents, rows.Err()
}

func scanIncident(row rowScanner) (*entity.Incident, error) {
	var i entity.Incident
	err := row.Scan(
		&i.ID,
		&i.TaskID,
		&i.OccurredAt,
		&i.Description,
		&i.Category,
		&i.ReporterID,
		&i.AffectedID,
		&i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	i.OccurredAt = i.OccurredAt.UTC()
	return &i, nil
}

// Verify interface compliance
var _ port.IncidentRepository = (*IncidentRepository)(nil)
