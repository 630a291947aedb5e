package port

import (
	"context"

	"github.com/garyjia/staff-evaluation/internal/domain/entity"
)

// RosterProvider is the read-only view of area membership owned by the
// roster subsystem
type RosterProvider interface {
	GetArea(ctx context.Context, areaID int64) (*entity.Area, error)

	// GetActiveRoster returns the active members of the area split by role
	GetActiveRoster(ctx context.Context, areaID int64) (*entity.Roster, error)
}

// CriterionCatalog is the read-only criterion set per evaluation type
type CriterionCatalog interface {
	// GetCriteria returns criteria and sub-criteria in position order
	GetCriteria(ctx context.Context, taskType entity.TaskType) ([]entity.Criterion, error)
}

// Notifier delivers a short message to a person. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, personID string, message string) error
}
