package review

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a mutation references an item that is not in
// the board. It is a client error; no state is changed.
var ErrNotFound = errors.New("review item not found")

// InvalidInputError rejects a malformed mutation request before any state is
// touched.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvariantError reports that record-set validation failed after a merge or
// mutation. It indicates a logic bug; the enclosing transaction must be
// aborted rather than persist a broken set.
type InvariantError struct {
	URL    string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("record set invariant violated for %q: %s", e.URL, e.Reason)
}
