package rollback

import (
	"errors"
	"fmt"

	"github.com/playperu/minigames/internal/physical"
)

var (
	// ErrNothingToRestore is returned by Restore when no round has been
	// tracked and nothing has been marked since the last restore.
	ErrNothingToRestore = errors.New("nothing to restore")
	// ErrOutOfBounds is returned by Mark for locations outside the boundary.
	ErrOutOfBounds = errors.New("location outside boundary")
	// ErrAlreadyTracking is returned by BeginTracking while a previous round's
	// changes have neither been restored nor discarded.
	ErrAlreadyTracking = errors.New("journal is still tracking a round")
)

// Error wraps a world I/O failure that happened while capturing or restoring.
// The journal is unchanged when one is returned, so the operation can be
// retried.
type Error struct {
	Op   string
	Cell physical.Cell
	Err  error
}

func (e *Error) Error() string {
	if e.Cell == (physical.Cell{}) {
		return fmt.Sprintf("rollback %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("rollback %s %s: %v", e.Op, e.Cell, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
