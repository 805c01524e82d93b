package monitor

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when a component is built without one of its
// required collaborators.
var ErrNotConfigured = errors.New("monitor dependencies not configured")

// CycleError is a cycle-level failure tagged with its journal category.
type CycleError struct {
	Category ErrorCategory
	Err      error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

// CategoryOf returns the category carried by err, or CategoryUnexpected.
func CategoryOf(err error) ErrorCategory {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryUnexpected
}
