package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a status change is not in
	// the lifecycle table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPastDate is returned for appointment dates before today.
	ErrPastDate = errors.New("date is in the past")

	// ErrDateTooFar is returned for dates beyond the booking horizon.
	ErrDateTooFar = errors.New("date is too far in the future")
)

// ValidationError names the rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
