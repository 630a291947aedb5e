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

// CriterionRepository implements port.CriterionCatalog
type CriterionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCriterionRepository creates a new criterion repository
func NewCriterionRepository(db *sql.DB, logger *zap.Logger) port.CriterionCatalog {
	return &CriterionRepository{
		db:     db,
		logger: logger,
	}
}

// GetCriteria retrieves the criterion set of a task type. Criteria without
// sub-criteria are returned with an empty SubCriteria slice.
func (r *CriterionRepository) GetCriteria(ctx context.Context, taskType entity.TaskType) ([]entity.Criterion, error) {
	query := `
		SELECT c.id, c.name, c.position,
			s.id, s.name, s.weight, s.position
		FROM criteria c
		LEFT JOIN subcriteria s ON s.criterion_id = c.id
		WHERE c.task_type = ?
		ORDER BY c.position, c.id, s.position, s.id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, taskType)
	if err != nil {
		r.logger.Error("Failed to get criteria", zap.String("task_type", string(taskType)), zap.Error(err))
		return nil, fmt.Errorf("failed to get criteria: %w", err)
	}
	defer rows.Close()

	var criteria []entity.Criterion
	for rows.Next() {
		var c entity.Criterion
		var subID sql.NullInt64
		var subName sql.NullString
		var subWeight sql.NullFloat64
		var subPosition sql.NullInt64

		if err := rows.Scan(&c.ID, &c.Name, &c.Position, &subID, &subName, &subWeight, &subPosition); err != nil {
			return nil, fmt.Errorf("failed to scan criterion: %w", err)
		}

		if n := len(criteria); n == 0 || criteria[n-1].ID != c.ID {
			c.SubCriteria = []entity.SubCriterion{}
			criteria = append(criteria, c)
		}

		if subID.Valid {
			last := &criteria[len(criteria)-1]
			last.SubCriteria = append(last.SubCriteria, entity.SubCriterion{
				ID:          subID.Int64,
				CriterionID: c.ID,
				Name:        subName.String,
				Weight:      subWeight.Float64,
				Position:    int(subPosition.Int64),
			})
		}
	}

	return criteria, rows.Err()
}

// Verify interface compliance
var _ port.CriterionCatalog = (*CriterionRepository)(nil)
