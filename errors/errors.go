package errors

import (
	"fmt"
	"strings"
)

var (
	ErrParticipantExists   = fmt.Errorf("participant already registered")
	ErrParticipantNotFound = fmt.Errorf("participant not found")
	ErrMessageNotFound     = fmt.Errorf("message not found")
	ErrNotMessageOwner     = fmt.Errorf("requester is not the message owner")
	ErrStorage             = fmt.Errorf("storage failure")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
)

// ValidationError lists every violated field from a single validation pass,
// so callers can report all of them together instead of one at a time.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, ", ")
}

// NewValidationError builds a ValidationError from one or more violations.
func NewValidationError(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}
