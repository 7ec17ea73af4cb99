package policy

import (
	"errors"
	"fmt"
)

var (
	// ErrCoercion is returned when a policy value cannot be converted to the
	// type its key declares.
	ErrCoercion = errors.New("policy value has wrong type")
)

// CoercionError describes the entry that failed to convert.
type CoercionError struct {
	Path  string
	Line  int
	Key   Key
	Kind  Kind
	Value string
	Err   error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%s:%d: %s=%q is not a valid %s: %v", e.Path, e.Line, e.Key, e.Value, e.Kind, e.Err)
}

func (e *CoercionError) Unwrap() []error {
	return []error{ErrCoercion, e.Err}
}
