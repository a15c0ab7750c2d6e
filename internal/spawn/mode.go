// Package spawn chooses which of an arena's spawn points an entering
// challenger is placed at.
package spawn

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned when parsing an unrecognised mode name.
var ErrUnknownMode = errors.New("unknown spawning mode")

// Mode is the policy used to pick a spawn point.
type Mode int

const (
	// Sequential walks the spawn points in index order, wrapping around.
	Sequential Mode = iota
	// Random picks uniformly.
	Random
	// Shuffle walks a shuffled order that is rebuilt whenever the spawn list
	// changes.
	Shuffle
	// ProximityHigh picks the point with the greatest mean distance to the
	// round's non-spectating challengers.
	ProximityHigh
)

var modeNames = [...]string{
	Sequential:    "sequential",
	Random:        "random",
	Shuffle:       "shuffle",
	ProximityHigh: "proximity_high",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode accepts the names returned by String, case-insensitively, with
// either '_' or '-' as separator.
func ParseMode(s string) (Mode, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for m, name := range modeNames {
		if name == norm {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
