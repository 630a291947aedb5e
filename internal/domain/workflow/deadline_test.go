package workflow

import (
	"testing"
	"time"
)

func TestResolveStatus(t *testing.T) {
	deadline := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		current     State
		scored      bool
		now         time.Time
		wantState   State
		wantTrigger Trigger
	}{
		{"pending before deadline", StatePending, false, deadline.Add(-time.Hour), StatePending, ""},
		{"exactly at deadline is still open", StateActive, true, deadline, StateActive, ""},
		{"pending unscored after deadline", StatePending, false, deadline.Add(time.Second), StateExpired, TriggerExpire},
		{"active unscored after deadline", StateActive, false, deadline.Add(time.Second), StateExpired, TriggerExpire},
		{"active scored after deadline", StateActive, true, deadline.Add(time.Second), StateCompleted, TriggerAutoComplete},
		{"completed stays completed", StateCompleted, true, deadline.Add(time.Hour), StateCompleted, ""},
		{"expired stays expired", StateExpired, false, deadline.Add(time.Hour), StateExpired, ""},
		{"cancelled stays cancelled", StateCancelled, false, deadline.Add(time.Hour), StateCancelled, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotState, gotTrigger := ResolveStatus(tt.current, deadline, tt.scored, tt.now)
			if gotState != tt.wantState {
				t.Errorf("ResolveStatus() state = %v, want %v", gotState, tt.wantState)
			}
			if gotTrigger != tt.wantTrigger {
				t.Errorf("ResolveStatus() trigger = %q, want %q", gotTrigger, tt.wantTrigger)
			}
		})
	}
}
