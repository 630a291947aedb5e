package entity

import "time"

// IncidentCategory classifies why an incident was raised
type IncidentCategory string

// Incident category constants
const (
	IncidentEvaluationExpired        IncidentCategory = "EVALUATION_EXPIRED"
	IncidentEvaluationBelowThreshold IncidentCategory = "EVALUATION_BELOW_THRESHOLD"
)

// Incident records an evaluation failure worth human attention. At most one
// incident exists per task and category.
type Incident struct {
	ID          int64            `json:"id"`
	TaskID      int64            `json:"task_id"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Description string           `json:"description"`
	Category    IncidentCategory `json:"category"`
	ReporterID  string           `json:"reporter_id"`
	AffectedID  string           `json:"affected_id"`
	CreatedAt   time.Time        `json:"created_at"`
}
