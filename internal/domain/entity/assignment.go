package entity

import "time"

// Assignment is one generation event: an area, an academic period label and
// the time window that every spawned task inherits as its schedule and deadline.
type Assignment struct {
	ID          int64     `json:"id"`
	AreaID      int64     `json:"area_id"`
	PeriodLabel string    `json:"period_label"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `json:"status"`
	CreatedBy   string    `json:"created_by"`

	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Assignment status constants
const (
	AssignmentStatusOpen   = "OPEN"
	AssignmentStatusClosed = "CLOSED"
)

// Deadline is the instant after which no task of the assignment accepts marks
func (a *Assignment) Deadline() time.Time {
	return a.EndAt
}

// IsDeleted reports whether the assignment was administratively removed
func (a *Assignment) IsDeleted() bool {
	return a.DeletedAt != nil
}
