package entity

import (
	"time"

	"github.com/garyjia/staff-evaluation/internal/domain/workflow"
)

// TaskType identifies the evaluator/subject relationship of a task. It also
// selects the criterion set the evaluator must rate.
type TaskType string

// Task type constants
const (
	TaskTypeSelfEvaluation      TaskType = "SELF_EVALUATION"
	TaskTypeSupervisorToSubject TaskType = "SUPERVISOR_TO_SUBJECT"
	TaskTypePeerToSubject       TaskType = "PEER_TO_SUBJECT"
)

// AllTaskTypes returns every task type in fan-out order
func AllTaskTypes() []TaskType {
	return []TaskType{TaskTypeSelfEvaluation, TaskTypeSupervisorToSubject, TaskTypePeerToSubject}
}

// IsValid returns true for a known task type
func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeSelfEvaluation, TaskTypeSupervisorToSubject, TaskTypePeerToSubject:
		return true
	}
	return false
}

// EvaluationTask is one evaluator-to-subject evaluation with its own lifecycle.
// For self evaluations EvaluatorID equals SubjectID.
type EvaluationTask struct {
	ID           int64    `json:"id"`
	AssignmentID int64    `json:"assignment_id"`
	TaskType     TaskType `json:"task_type"`
	EvaluatorID  string   `json:"evaluator_id"`
	SubjectID    string   `json:"subject_id"`

	// Inherited from the owning assignment window
	ScheduledAt time.Time `json:"scheduled_at"`
	Deadline    time.Time `json:"deadline"`

	Status  workflow.State `json:"status"`
	Score   *float64       `json:"score,omitempty"`
	Comment *string        `json:"comment,omitempty"`
	Details []ScoreDetail  `json:"details,omitempty"`

	OpenedAt    *time.Time `json:"opened_at,omitempty"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScoreDetail is the mark given to one sub-criterion. The full set is
// replaced on every submission.
type ScoreDetail struct {
	TaskID         int64   `json:"task_id"`
	SubCriterionID int64   `json:"subcriterion_id"`
	Points         float64 `json:"points"`
	Position       int     `json:"position"`
}

// Marks returns the detail points in position order
func (t *EvaluationTask) Marks() []float64 {
	marks := make([]float64, len(t.Details))
	for i, d := range t.Details {
		marks[i] = d.Points
	}
	return marks
}

// HasDetails reports whether any mark was ever saved for the task
func (t *EvaluationTask) HasDetails() bool {
	return len(t.Details) > 0
}
