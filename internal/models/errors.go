package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine components. Callers classify
// failures with errors.Is; transports map them to status codes.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrAlreadyWaiting   = errors.New("already in the waitlist for this slot")
)

// ConflictError reports that one or more resources failed the availability
// check at booking time. It carries the structured conflict list for
// caller display.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("resources not available: %d conflict(s)", len(e.Conflicts))
}

// AsConflictError unwraps a ConflictError if err carries one.
func AsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
