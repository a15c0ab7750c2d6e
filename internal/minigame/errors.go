package minigame

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks failures the caller can fix by passing
	// different input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState marks calls made in the wrong order.
	ErrInvalidState = errors.New("invalid state")
	// ErrOrphaned is wrapped by every StaleError.
	ErrOrphaned = errors.New("orphaned")
	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrCancelled is returned when a listener vetoes a stage change.
	ErrCancelled = errors.New("cancelled by listener")

	// ErrRoundEnding is returned by mutations of a round that is ending.
	ErrRoundEnding = fmt.Errorf("round is ending: %w", ErrInvalidState)
)

// StaleError is returned by every operation on an orphaned entity.
type StaleError struct {
	Kind string
	ID   string
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%s %s is orphaned", e.Kind, e.ID)
}

func (e *StaleError) Unwrap() error {
	return ErrOrphaned
}

func argumentError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func stateError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
