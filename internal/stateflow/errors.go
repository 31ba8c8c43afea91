package stateflow

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a definition, update or transition request that
	// breaks a structural or state-machine rule. Always caller-fixable.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing (or inactive) definition or instance.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an id collision on creation.
	ErrConflict = errors.New("conflict")
	// ErrWorkflow marks a stored definition the engine cannot run, such as
	// one without a unique initial state.
	ErrWorkflow = errors.New("workflow error")
)

// ValidationError reports the first rule a definition or transition request
// violated.
type ValidationError struct {
	Rule   string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Is makes errors.Is(err, ErrValidation) true for every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError for rule with a formatted reason.
func Invalid(rule, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Workflowf wraps ErrWorkflow with a formatted message.
func Workflowf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrWorkflow, fmt.Sprintf(format, args...))
}
