package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/garyjia/staff-evaluation/internal/domain/entity"
)

// ValidationResult carries the resolved area and the roster counts shown to
// the person creating an assignment
type ValidationResult struct {
	Area            *entity.Area   `json:"area"`
	Roster          *entity.Roster `json:"-"`
	SubjectCount    int            `json:"subject_count"`
	SupervisorCount int            `json:"supervisor_count"`
	PeerCount       int            `json:"peer_count"`
	RosterSize      int            `json:"roster_size"`
	TasksPlanned    int            `json:"tasks_planned"`
}

// AssignmentValidator checks a proposed assignment before anything is written
type AssignmentValidator interface {
	Validate(ctx context.Context, areaID int64, start, end time.Time) (*ValidationResult, error)
}

type assignmentValidatorImpl struct {
	roster port.RosterProvider
}

// NewAssignmentValidator creates a new AssignmentValidator
func NewAssignmentValidator(roster port.RosterProvider) AssignmentValidator {
	return &assignmentValidatorImpl{roster: roster}
}

// Validate rejects bad windows and areas without subjects. It has no side effects.
func (v *assignmentValidatorImpl) Validate(ctx context.Context, areaID int64, start, end time.Time) (*ValidationResult, error) {
	if err := checkWindow(start, end); err != nil {
		return nil, err
	}

	area, err := v.roster.GetArea(ctx, areaID)
	if err != nil {
		return nil, fmt.Errorf("get area: %w", err)
	}
	if area == nil || !area.Active {
		return nil, fmt.Errorf("%w: area %d", entity.ErrNotFound, areaID)
	}

	roster, err := v.roster.GetActiveRoster(ctx, areaID)
	if err != nil {
		return nil, fmt.Errorf("get roster: %w", err)
	}
	roster = normalizeRoster(roster)
	if len(roster.Subjects) == 0 {
		return nil, fmt.Errorf("%w: area %d", entity.ErrEmptyRoster, areaID)
	}

	s, p, t := len(roster.Subjects), len(roster.Supervisors), len(roster.Peers)
	return &ValidationResult{
		Area:            area,
		Roster:          roster,
		SubjectCount:    s,
		SupervisorCount: p,
		PeerCount:       t,
		RosterSize:      roster.Size(),
		TasksPlanned:    s + p*s + t*s,
	}, nil
}

// checkWindow compares calendar days first, then time of day within one day
func checkWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end are required", entity.ErrInvalidWindow)
	}

	startDay := dayOf(start)
	endDay := dayOf(end)
	if endDay.Before(startDay) {
		return fmt.Errorf("%w: end date %s is before start date %s",
			entity.ErrInvalidWindow, endDay.Format(time.DateOnly), startDay.Format(time.DateOnly))
	}
	if endDay.Equal(startDay) && !end.After(start) {
		return fmt.Errorf("%w: end time must be after start time on the same day", entity.ErrInvalidWindow)
	}
	return nil
}

func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
