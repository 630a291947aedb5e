package workflow

import "context"

// StateMachine tracks the current state of one task and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire reports whether the trigger has a permitted transition whose guard passes
	CanFire(ctx context.Context, trigger Trigger) bool

	// Fire executes the trigger, moving to the target state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns the triggers configured for the current state
	PermittedTriggers() []Trigger
}
