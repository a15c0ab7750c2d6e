// Package lifecycle implements the stage sequence and timer of a round as a
// plain value. It knows nothing about locking or events; the owning round
// supplies both.
package lifecycle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNoStages       = errors.New("stage sequence is empty")
	ErrDuplicateStage = errors.New("duplicate stage id")
	ErrInvalidStage   = errors.New("invalid stage")
	ErrUnknownStage   = errors.New("unknown stage")
	ErrLastStage      = errors.New("already at the last stage")
	ErrNegativeTime   = errors.New("time must not be negative")
)

// Stage is a named phase of a round. A Duration of zero means the stage is
// untimed and lasts until advanced by hand.
type Stage struct {
	ID       string `json:"id" yaml:"id"`
	Duration int64  `json:"duration" yaml:"duration"`
}

// Untimed is the duration of a stage without a time limit.
const Untimed = 0

// Timed reports whether the stage expires on its own.
func (s Stage) Timed() bool {
	return s.Duration > 0
}

func (s Stage) String() string {
	return s.ID + ":" + strconv.FormatInt(s.Duration, 10)
}

// ValidateStages checks that stages is non-empty, that every id is set and
// unique, and that no duration is negative.
func ValidateStages(stages []Stage) error {
	if len(stages) == 0 {
		return ErrNoStages
	}
	seen := make(map[string]struct{}, len(stages))
	for i, s := range stages {
		if s.ID == "" {
			return fmt.Errorf("%w: stage %d has no id", ErrInvalidStage, i)
		}
		if s.Duration < 0 {
			return fmt.Errorf("%w: stage %q has negative duration", ErrInvalidStage, s.ID)
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateStage, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// ParseStages reads the compact form "lobby:30,play:120,results". A stage
// without a duration is untimed.
func ParseStages(text string) ([]Stage, error) {
	var stages []Stage
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, dur, found := strings.Cut(part, ":")
		s := Stage{ID: strings.TrimSpace(id)}
		if found {
			d, err := strconv.ParseInt(strings.TrimSpace(dur), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidStage, part, err)
			}
			s.Duration = d
		}
		stages = append(stages, s)
	}
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// FormatStages is the inverse of ParseStages.
func FormatStages(stages []Stage) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}
