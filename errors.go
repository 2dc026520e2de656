package autosched

import "fmt"

// InternalError reports a broken invariant inside the autoscheduler.
// These indicate bugs, not bad inputs, so they are raised as panics and
// carry enough context to diagnose the violation.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "autosched: internal error: " + e.Msg
}

// internalErrorf panics with an *InternalError.
func internalErrorf(format string, args ...any) {
	panic(&InternalError{Msg: fmt.Sprintf(format, args...)})
}

// internalAssert panics unless cond holds.
func internalAssert(cond bool, format string, args ...any) {
	if !cond {
		internalErrorf(format, args...)
	}
}
