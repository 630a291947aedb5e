package event

// Type identifies the type of domain event
type Type string

const (
	TypeAssignmentCreated Type = "assignment.created"
	TypeAssignmentUpdated Type = "assignment.updated"
	TypeAssignmentDeleted Type = "assignment.deleted"
	TypeTaskStatusChanged Type = "task.status_changed"
	TypeTaskTerminal      Type = "task.terminal"
	TypeIncidentRaised    Type = "incident.raised"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeAssignmentCreated,
		TypeAssignmentUpdated,
		TypeAssignmentDeleted,
		TypeTaskStatusChanged,
		TypeTaskTerminal,
		TypeIncidentRaised:
		return true
	default:
		return false
	}
}
