package collection

import (
	"errors"
	"fmt"
)

// ErrOutOfRange indicates a path or section index outside the store bounds.
var ErrOutOfRange = errors.New("path out of range")

// AssertionError reports a violated contract. It is raised with panic and is
// never returned as an ordinary error.
type AssertionError struct {
	// Op is the operation that detected the violation.
	Op string

	// Message describes the violation.
	Message string

	// Err is the sentinel classifying the violation.
	Err error
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("assertion failed: %s", e.Message)
	}
	return fmt.Sprintf("assertion failed in %s: %s", e.Op, e.Message)
}

// Unwrap returns the classifying sentinel.
func (e *AssertionError) Unwrap() error {
	return e.Err
}

// Assert panics with an *AssertionError built from the arguments.
func Assert(op string, sentinel error, format string, args ...any) {
	panic(&AssertionError{
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Err:     sentinel,
	})
}

// RecoverAssertion converts a recovered panic value into an *AssertionError.
// It returns nil if v is not an assertion.
func RecoverAssertion(v any) *AssertionError {
	if v == nil {
		return nil
	}
	err, ok := v.(error)
	if !ok {
		return nil
	}
	var ae *AssertionError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
