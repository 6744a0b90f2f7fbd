package orasp

import "fmt"

// InvalidParameterError reports a structurally invalid generation request.
// It is returned before any sampling happens.
type InvalidParameterError struct {
	Field   string
	Message string
}

func (e *InvalidParameterError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid parameter: %s", e.Message)
}

// Is enables errors.Is() comparison against ErrInvalidParameter.
func (e *InvalidParameterError) Is(target error) bool {
	_, ok := target.(*InvalidParameterError)
	return ok
}

// InternalConsistencyError means a generated instance violated one of its
// invariants. It signals a generator defect, never bad input.
type InternalConsistencyError struct {
	Invariant string
	Err       error
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency: %s: %v", e.Invariant, e.Err)
}

func (e *InternalConsistencyError) Unwrap() error { return e.Err }

// Is enables errors.Is() comparison against ErrInternalConsistency.
func (e *InternalConsistencyError) Is(target error) bool {
	_, ok := target.(*InternalConsistencyError)
	return ok
}

var (
	ErrInvalidParameter    = &InvalidParameterError{}
	ErrInternalConsistency = &InternalConsistencyError{}
)

func invalidf(field, format string, args ...any) error {
	return &InvalidParameterError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// violation tags an Instance.Validate failure with the invariant it broke.
type violation struct {
	invariant string
	msg       string
}

func (v *violation) Error() string { return v.msg }

func violationf(invariant, format string, args ...any) error {
	return &violation{invariant: invariant, msg: fmt.Sprintf(format, args...)}
}
