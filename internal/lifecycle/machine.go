package lifecycle

import (
	"fmt"
	"slices"
)

// Machine holds the current stage index and timer of a round. The index is
// always within the stage sequence. The zero value is not usable; call
// NewMachine.
type Machine struct {
	stages  []Stage
	index   int
	timer   int64
	ticking bool
}

// Transition describes a stage change.
type Transition struct {
	From Stage
	To   Stage
}

// TickResult is what happened during one Tick.
type TickResult struct {
	// Ticked is false when the timer was stopped and nothing changed.
	Ticked  bool
	OldTime int64
	NewTime int64
	// Expired is set when the current timed stage has run out.
	Expired bool
	// Final is set when the expired stage is the last one.
	Final bool
}

// NewMachine returns a machine positioned at the first stage with the timer
// stopped at zero.
func NewMachine(stages []Stage) (*Machine, error) {
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}
	return &Machine{stages: slices.Clone(stages)}, nil
}

// Stages returns a copy of the configured sequence.
func (m *Machine) Stages() []Stage {
	return slices.Clone(m.stages)
}

// Stage returns the current stage.
func (m *Machine) Stage() Stage {
	return m.stages[m.index]
}

// Index returns the position of the current stage.
func (m *Machine) Index() int {
	return m.index
}

// Next returns the stage after the current one, if any.
func (m *Machine) Next() (Stage, bool) {
	if m.index+1 >= len(m.stages) {
		return Stage{}, false
	}
	return m.stages[m.index+1], true
}

// Lookup returns the stage with the given id.
func (m *Machine) Lookup(id string) (Stage, bool) {
	i := m.indexOf(id)
	if i < 0 {
		return Stage{}, false
	}
	return m.stages[i], true
}

// Time returns the seconds elapsed in the current stage.
func (m *Machine) Time() int64 {
	return m.timer
}

// Ticking reports whether Tick advances the timer.
func (m *Machine) Ticking() bool {
	return m.ticking
}

// Remaining returns duration minus elapsed time for the current stage, or -1
// if the stage is untimed. It never goes below zero, so -1 always means
// untimed even when SetTime has pushed the timer past the duration.
func (m *Machine) Remaining() int64 {
	s := m.Stage()
	if !s.Timed() {
		return -1
	}
	return max(s.Duration-m.timer, 0)
}

// SetStages replaces the sequence. The machine stays on the stage with the
// current id if the new sequence has one, otherwise it moves to the first
// stage and the timer is zeroed.
func (m *Machine) SetStages(stages []Stage) error {
	if err := ValidateStages(stages); err != nil {
		return err
	}
	cur := m.Stage().ID
	m.stages = slices.Clone(stages)
	if i := m.indexOf(cur); i >= 0 {
		m.index = i
		return nil
	}
	m.index = 0
	m.timer = 0
	return nil
}

// Jump moves to the named stage without touching the timer.
func (m *Machine) Jump(id string) (Transition, error) {
	i := m.indexOf(id)
	if i < 0 {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownStage, id)
	}
	t := Transition{From: m.Stage(), To: m.stages[i]}
	m.index = i
	return t, nil
}

// PeekAdvance returns the transition Advance would make without applying it.
func (m *Machine) PeekAdvance() (Transition, error) {
	next, ok := m.Next()
	if !ok {
		return Transition{}, fmt.Errorf("%w: %q", ErrLastStage, m.Stage().ID)
	}
	return Transition{From: m.Stage(), To: next}, nil
}

// Advance moves to the next stage and zeroes the timer.
func (m *Machine) Advance() (Transition, error) {
	t, err := m.PeekAdvance()
	if err != nil {
		return Transition{}, err
	}
	m.index++
	m.timer = 0
	return t, nil
}

// Reset returns to the first stage with the timer stopped at zero. It
// reports whether the timer was ticking.
func (m *Machine) Reset() bool {
	was := m.ticking
	m.index = 0
	m.timer = 0
	m.ticking = false
	return was
}

// Start makes Tick advance the timer. It reports whether the timer was
// previously stopped.
func (m *Machine) Start() bool {
	was := m.ticking
	m.ticking = true
	return !was
}

// Stop freezes the timer. It reports whether the timer was ticking.
func (m *Machine) Stop() bool {
	was := m.ticking
	m.ticking = false
	return was
}

// SetTime sets the elapsed time of the current stage and returns the old
// value.
func (m *Machine) SetTime(t int64) (int64, error) {
	if t < 0 {
		return m.timer, fmt.Errorf("%w: %d", ErrNegativeTime, t)
	}
	old := m.timer
	m.timer = t
	return old, nil
}

// Tick advances a running timer by one second and reports whether the
// current stage has expired. It never changes the stage; the caller decides
// whether to Advance.
func (m *Machine) Tick() TickResult {
	if !m.ticking {
		return TickResult{}
	}
	res := TickResult{Ticked: true, OldTime: m.timer}
	m.timer++
	res.NewTime = m.timer

	s := m.Stage()
	if s.Timed() && m.timer >= s.Duration {
		res.Expired = true
		res.Final = m.index == len(m.stages)-1
	}
	return res
}

func (m *Machine) indexOf(id string) int {
	return slices.IndexFunc(m.stages, func(s Stage) bool { return s.ID == id })
}
