package executor

import (
	"fmt"
	"strings"
)

// MultiError groups several target-body failures raised by a single
// run into one error. recordError expands it into one (target,
// message) entry per sub-error, preceded by a top-level entry, instead
// of a single opaque message.
type MultiError []error

func (m MultiError) Error() string {
	msgs := make([]string, len(m))
	for i, err := range m {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors: %s", len(m), strings.Join(msgs, "; "))
}

// Unwrap exposes the wrapped errors for errors.Is/errors.As.
func (m MultiError) Unwrap() []error {
	return []error(m)
}

// TestsFailedError marks a failure originating from a test runner
// invoked by a target body. recordError recognizes it and skips
// notifying the vendor error sink, since the test runner is assumed to
// have already reported the failure through its own channel.
type TestsFailedError struct {
	Message string
}

func (e *TestsFailedError) Error() string {
	return e.Message
}

// ErrTestsFailed wraps msg as a TestsFailedError.
func ErrTestsFailed(msg string) error {
	return &TestsFailedError{Message: msg}
}
