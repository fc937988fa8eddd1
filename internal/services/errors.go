package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Typed engine errors. Multi-step operations abort before any partial
// write when a lookup misses; callers match with errors.Is.
var (
	// ErrNotFound is returned when a ticket, department, workflow or
	// ticket-type lookup misses.
	ErrNotFound = errors.New("not found")

	// ErrStepNotFound is returned when a department action targets a step
	// number absent from the canonical workflow.
	ErrStepNotFound = errors.New("workflow step not found")

	// ErrInvalidTransition is returned when a requested status change or
	// step operation conflicts with the ticket's workflow state.
	ErrInvalidTransition = errors.New("invalid transition")
)

// notFound wraps ErrNotFound with the entity that missed.
func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// asLookupError converts a repository miss into a typed engine error,
// passing every other failure through unchanged.
func asLookupError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return err
}
