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

// RosterRepository implements port.RosterProvider over the area membership tables
type RosterRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRosterRepository creates a new roster repository
func NewRosterRepository(db *sql.DB, logger *zap.Logger) port.RosterProvider {
	return &RosterRepository{
		db:     db,
		logger: logger,
	}
}

// GetArea retrieves an area by ID
func (r *RosterRepository) GetArea(ctx context.Context, areaID int64) (*entity.Area, error) {
	query := `SELECT id, name, active FROM areas WHERE id = ?`

	var area entity.Area
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, areaID).
		Scan(&area.ID, &area.Name, &area.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get area", zap.Int64("area_id", areaID), zap.Error(err))
		return nil, fmt.Errorf("failed to get area: %w", err)
	}
	return &area, nil
}

// GetActiveRoster retrieves active members of an area split by role. A person
// listed under several roles lands in the highest one only, ranked subject,
// supervisor, peer. Each slice is ordered by person ID.
func (r *RosterRepository) GetActiveRoster(ctx context.Context, areaID int64) (*entity.Roster, error) {
	query := `
		SELECT p.id, p.name, m.role
		FROM area_members m
		JOIN people p ON p.id = m.person_id
		WHERE m.area_id = ? AND m.active = 1 AND p.active = 1
		ORDER BY p.id,
			CASE m.role WHEN 'SUBJECT' THEN 0 WHEN 'SUPERVISOR' THEN 1 ELSE 2 END
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, areaID)
	if err != nil {
		r.logger.Error("Failed to get roster", zap.Int64("area_id", areaID), zap.Error(err))
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}
	defer rows.Close()

	roster := &entity.Roster{AreaID: areaID}
	seen := make(map[string]bool)
	for rows.Next() {
		var person entity.PersonRef
		var role string
		if err := rows.Scan(&person.ID, &person.Name, &role); err != nil {
			return nil, fmt.Errorf("failed to scan roster member: %w", err)
		}
		if seen[person.ID] {
			continue
		}
		seen[person.ID] = true

		switch role {
		case entity.RoleSubject:
			roster.Subjects = append(roster.Subjects, person)
		case entity.RoleSupervisor:
			roster.Supervisors = append(roster.Supervisors, person)
		case entity.RolePeer:
			roster.Peers = append(roster.Peers, person)
		}
	}

	return roster, rows.Err()
}

// Verify interface compliance
var _ port.RosterProvider = (*RosterRepository)(nil)
