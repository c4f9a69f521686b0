package survey

import "fmt"

// ValidationError rejects a malformed, out-of-range or disallowed
// submission. Mapped to 400 by the HTTP layer.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError signals an unresolved survey or option id.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// StateError rejects writes against a closed or expired survey.
// Mapped to 409 by the HTTP layer.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string { return e.Reason }

// DuplicateResponseError signals that the identity already responded to a
// survey that disallows multiple responses. Mapped to 409.
type DuplicateResponseError struct {
	SurveyID uint
}

func (e *DuplicateResponseError) Error() string {
	return fmt.Sprintf("identity already responded to survey %d", e.SurveyID)
}
