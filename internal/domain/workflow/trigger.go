package workflow

// Trigger represents an event that can cause a task state transition
type Trigger string

const (
	// TriggerOpen marks the first time an evaluator opens the task
	TriggerOpen Trigger = "OPEN"
	// TriggerSubmit saves a full set of marks, keeping the task editable
	TriggerSubmit Trigger = "SUBMIT"
	// TriggerFinalize is the evaluator's explicit finish
	TriggerFinalize Trigger = "FINALIZE"
	// TriggerAutoComplete closes a scored task whose window elapsed
	TriggerAutoComplete Trigger = "AUTO_COMPLETE"
	// TriggerExpire closes an unscored task whose window elapsed
	TriggerExpire Trigger = "EXPIRE"
	// TriggerCancel removes an untouched task with its assignment
	TriggerCancel Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
