package workflow

import "time"

// ResolveStatus applies the deadline rule to a task snapshot.
//
// A non-terminal task whose deadline is strictly before now resolves to
// COMPLETED when it carries a usable score and to EXPIRED otherwise. Every
// other task keeps its current state. The returned trigger is empty when no
// transition fires.
//
// The sweep and every mutation path call this same function so they cannot
// disagree about a task's effective state.
func ResolveStatus(current State, deadline time.Time, hasUsableScore bool, now time.Time) (State, Trigger) {
	if current.IsTerminal() || !now.After(deadline) {
		return current, ""
	}

	if hasUsableScore {
		return StateCompleted, TriggerAutoComplete
	}
	return StateExpired, TriggerExpire
}
