package workflow

import (
	"context"

	domainwf "github.com/garyjia/staff-evaluation/internal/domain/workflow"
)

// TaskGuards are evaluated when a trigger fires. A nil guard always passes.
type TaskGuards struct {
	// WithinWindow passes while the task still accepts evaluator input
	WithinWindow domainwf.GuardFunc
	// Overdue passes once the deadline is strictly in the past
	Overdue domainwf.GuardFunc
	// Scored passes when the task holds a usable score
	Scored domainwf.GuardFunc
}

// BuildTaskStateMachine creates a state machine for one evaluation task
func BuildTaskStateMachine(initialState domainwf.State, g TaskGuards) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	overdueScored := all(g.Overdue, g.Scored)
	overdueUnscored := all(g.Overdue, not(g.Scored))

	// PENDING: created by fan-out, never opened
	builder.Configure(domainwf.StatePending).
		PermitIf(domainwf.TriggerOpen, domainwf.StateActive, g.WithinWindow).
		PermitIf(domainwf.TriggerSubmit, domainwf.StateActive, g.WithinWindow).
		PermitIf(domainwf.TriggerFinalize, domainwf.StateCompleted, all(g.WithinWindow, g.Scored)).
		PermitIf(domainwf.TriggerAutoComplete, domainwf.StateCompleted, overdueScored).
		PermitIf(domainwf.TriggerExpire, domainwf.StateExpired, overdueUnscored).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled)

	// ACTIVE: the evaluator is working; resubmission stays ACTIVE
	builder.Configure(domainwf.StateActive).
		PermitIf(domainwf.TriggerSubmit, domainwf.StateActive, g.WithinWindow).
		PermitIf(domainwf.TriggerFinalize, domainwf.StateCompleted, all(g.WithinWindow, g.Scored)).
		PermitIf(domainwf.TriggerAutoComplete, domainwf.StateCompleted, overdueScored).
		PermitIf(domainwf.TriggerExpire, domainwf.StateExpired, overdueUnscored)

	// COMPLETED, EXPIRED and CANCELLED are terminal

	return builder.Build(initialState)
}

func all(guards ...domainwf.GuardFunc) domainwf.GuardFunc {
	return func(ctx context.Context) bool {
		for _, g := range guards {
			if g != nil && !g(ctx) {
				return false
			}
		}
		return true
	}
}

func not(g domainwf.GuardFunc) domainwf.GuardFunc {
	if g == nil {
		return func(context.Context) bool { return false }
	}
	return func(ctx context.Context) bool { return !g(ctx) }
}
