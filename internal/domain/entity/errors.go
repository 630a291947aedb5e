package entity

import "errors"

// Engine error kinds. Services wrap these with context; callers match them
// with errors.Is.
var (
	// Assignment creation errors
	ErrInvalidWindow       = errors.New("invalid assignment window")
	ErrEmptyRoster         = errors.New("area has no subjects to evaluate")
	ErrDuplicateAssignment = errors.New("assignment already exists for this area, period and window")

	// Task mutation errors
	ErrIncompleteScoring = errors.New("rate every item before submitting")
	ErrDeadlinePassed    = errors.New("this evaluation window has closed")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrNotPermitted      = errors.New("actor is not permitted to perform this action")

	ErrNotFound = errors.New("not found")
)
