package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when the referenced client does not belong to the caller.
	ErrForbidden = errors.New("client does not belong to caller")
	// ErrInvalidState is returned when the referenced assignment is missing or cannot be logged against.
	ErrInvalidState = errors.New("workout assignment is not in a loggable state")
	// ErrWorkoutLogNotFound is returned when a workout log cannot be located.
	ErrWorkoutLogNotFound = errors.New("workout log not found")
	// ErrSetLogNotFound is returned when a set log cannot be located.
	ErrSetLogNotFound = errors.New("set log not found")
	// ErrActiveLogConflict signals that another request created the active
	// workout log first. Callers re-query and reuse the winner.
	ErrActiveLogConflict = errors.New("active workout log already exists")
)

// MissingFieldError reports an absent or non-positive required field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// UnsupportedBlockTypeError reports a block-type tag outside the known set.
type UnsupportedBlockTypeError struct {
	Tag string
}

func (e *UnsupportedBlockTypeError) Error() string {
	return fmt.Sprintf("unsupported block type: %q", e.Tag)
}

// ValidationError reports a payload that parsed but failed a structural check.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}
