package entity

import "time"

// TaskTransition is the append-only audit record of one task status change
type TaskTransition struct {
	ID             int64     `json:"id"`
	TaskID         int64     `json:"task_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Trigger        string    `json:"trigger"`
	Actor          string    `json:"actor"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ActorSystem is recorded for transitions not caused by a person
const ActorSystem = "system"
