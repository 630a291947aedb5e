package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by publishers and subscribers
const (
	KeyPreviousStatus = "previous_status"
	KeyNewStatus      = "new_status"
	KeyTrigger        = "trigger"
	KeyActor          = "actor"
	KeyScore          = "score"
	KeyTasksCreated   = "tasks_created"
	KeyIncidentID     = "incident_id"
	KeyCategory       = "category"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	AssignmentID  int64                  `json:"assignment_id,omitempty"`
	TaskID        int64                  `json:"task_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a domain event stamped at the given instant
func NewEvent(eventType Type, assignmentID, taskID int64, payload map[string]interface{}, at time.Time) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		AssignmentID:  assignmentID,
		TaskID:        taskID,
		Payload:       payload,
		Timestamp:     at,
		CorrelationID: id,
	}
}

// Follow creates an event caused by e, sharing its correlation chain
func (e *Event) Follow(eventType Type, payload map[string]interface{}, at time.Time) *Event {
	next := NewEvent(eventType, e.AssignmentID, e.TaskID, payload, at)
	next.CorrelationID = e.CorrelationID
	return next
}

// WithPayload returns a copy of the event with key set (the receiver is unchanged)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayloadFloat retrieves a float64 value from the payload
func (e *Event) GetPayloadFloat(key string) float64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		case int:
			return float64(v)
		}
	}
	return 0.0
}
