package workflow

// State represents the lifecycle state of an evaluation task
type State string

const (
	StatePending   State = "PENDING"
	StateActive    State = "ACTIVE"
	StateCompleted State = "COMPLETED"
	StateExpired   State = "EXPIRED"
	StateCancelled State = "CANCELLED"
)

var validStates = map[State]bool{
	StatePending:   true,
	StateActive:    true,
	StateCompleted: true,
	StateExpired:   true,
	StateCancelled: true,
}

var terminalStates = map[State]bool{
	StateCompleted: true,
	StateExpired:   true,
	StateCancelled: true,
}

// AllStates returns every task state in lifecycle order
func AllStates() []State {
	return []State{StatePending, StateActive, StateCompleted, StateExpired, StateCancelled}
}

// IsTerminal returns true if no transition may leave the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known task state
func (s State) IsValid() bool {
	return validStates[s]
}
