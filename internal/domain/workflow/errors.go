package workflow

import "errors"

var (
	// ErrInvalidTransition means no rule for the trigger leaves the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState means a task carries a status outside the lifecycle,
	// usually a row written by something other than the engine
	ErrInvalidState = errors.New("invalid task state")

	// ErrGuardFailed means the rule exists but its deadline or score guard
	// rejected it
	ErrGuardFailed = errors.New("guard condition failed")
)
