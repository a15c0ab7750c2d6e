package minigame

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/playperu/minigames/internal/confignode"
	"github.com/playperu/minigames/internal/lifecycle"
	"github.com/playperu/minigames/internal/metadata"
	"github.com/playperu/minigames/internal/spawn"
)

// Round is one play session in an arena.
type Round struct {
	guard
	id       uuid.UUID
	arena    *Arena
	config   *confignode.Table
	meta     *metadata.Bag
	selector *spawn.Selector
	done     chan struct{}

	// opMu serializes every mutating operation.
	opMu sync.Mutex

	// mu guards the fields below for readers.
	mu          sync.RWMutex
	machine     *lifecycle.Machine
	challengers map[uuid.UUID]*Challenger
	order       []*Challenger
	teams       map[string]*Team
	teamOrder   []*Team
	ending      bool
	joins       int
	// pending holds the end kind of a round whose restore failed.
	pending *endRequest
}

type endRequest struct {
	natural  bool
	rollback bool
}

func newRound(a *Arena, machine *lifecycle.Machine) *Round {
	r := &Round{
		id:          uuid.New(),
		arena:       a,
		config:      confignode.NewTable(),
		meta:        metadata.New(),
		selector:    spawn.NewSelector(a.mg.newSeed()),
		done:        make(chan struct{}),
		machine:     machine,
		challengers: map[uuid.UUID]*Challenger{},
		teams:       map[string]*Team{},
	}
	r.init("round", r.id.String())
	return r
}

func (r *Round) ID() uuid.UUID { return r.id }

// Arena returns the owning arena.
func (r *Round) Arena() (*Arena, error) {
	if err := r.ensureValid(); err != nil {
		return nil, err
	}
	return r.arena, nil
}

// Done is closed once the round has been orphaned.
func (r *Round) Done() <-chan struct{} { return r.done }

func (r *Round) isEnding() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ending
}

// Ending reports whether End has begun.
func (r *Round) Ending() (bool, error) {
	if err := r.ensureValid(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ending, nil
}

func (r *Round) Metadata() (*metadata.Bag, error) {
	if err := r.ensureValid(); err != nil {
		return nil, err
	}
	return r.meta, nil
}

// RoundConfig resolves a node for a round: the round's override, else the
// minigame's, else the default.
func RoundConfig[T any](r *Round, k *confignode.Key[T]) (T, error) {
	if err := r.ensureValid(); err != nil {
		var zero T
		return zero, err
	}
	return resolveFor(r, k), nil
}

func resolveFor[T any](r *Round, k *confignode.Key[T]) T {
	return confignode.Resolve(k, r.config, r.arena.mg.config)
}

// SetRoundConfig overrides a round-scoped node for this round.
func SetRoundConfig[T any](r *Round, k *confignode.Key[T], v T) error {
	if err := r.ensureValid(); err != nil {
		return err
	}
	if k.Scope() != confignode.ScopeRound {
		return argumentError("%s cannot be set per round", k.Name())
	}
	confignode.Set(r.config, k, v)
	return nil
}

// SetConfigText parses and stores a round override by node name.
func (r *Round) SetConfigText(name, text string) error {
	if err := r.ensureValid(); err != nil {
		return err
	}
	if err := checkRoundNode(name); err != nil {
		return err
	}
	if _, err := r.config.SetText(name, text); err != nil {
		return argumentError("%v", err)
	}
	return nil
}

func checkRoundNode(name string) error {
	n, ok := confignode.Lookup(name)
	if !ok {
		return argumentError("unknown config node %q", name)
	}
	if n.Scope() != confignode.ScopeRound {
		return argumentError("%s cannot be set per round", name)
	}
	return nil
}

// ValidateRoundConfig checks that every override could be applied with
// SetConfigText, without touching any round.
func ValidateRoundConfig(overrides map[string]string) error {
	scratch := confignode.NewTable()
	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		if err := checkRoundNode(name); err != nil {
			return err
		}
		if _, err := scratch.SetText(name, overrides[name]); err != nil {
			return argumentError("%v", err)
		}
	}
	return nil
}

// ConfigOverrides returns the round-level overrides by node name.
func (r *Round) ConfigOverrides() (map[string]any, error) {
	if err := r.ensureValid(); err != nil {
		return nil, err
	}
	return r.config.Snapshot(), nil
}

// mutable checks validity and that the round is not ending. opMu must be
// held.
func (r *Round) mutable() error {
	if err := r.ensureValid(); err != nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.ending {
		return ErrRoundEnding
	}
	return nil
}

func stageError(err error) error {
	if errors.Is(err, lifecycle.ErrLastStage) {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
}

// Stages returns the configured stage sequence.
func (r *Round) Stages() ([]lifecycle.Stage, error) {
	if err := r.ensureValid(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.machine.Stages(), nil
}

// SetLifecycleStages replaces the stage sequence. The round stays on a stage
// with the current id if the new sequence has one.
func (r *Round) SetLifecycleStages(stages []lifecycle.Stage) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.machine.SetStages(stages); err != nil {
		return stageError(err)
	}
	return nil
}

// Stage returns the current stage.
func (r *Round) Stage() (lifecycle.Stage, error) {
	if err := r.ensureValid(); err != nil {
		return lifecycle.Stage{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.machine.Stage(), nil
}

// NextStage returns the stage after the current one, if any.
func (r *Round) NextStage() (lifecycle.Stage, bool, error) {
	if err := r.ensureValid(); err != nil {
		return lifecycle.Stage{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.machine.Next()
	return s, ok, nil
}

// SetLifecycleStage jumps to the named stage. The timer is left alone.
func (r *Round) SetLifecycleStage(ctx context.Context, id string) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}

	r.mu.RLock()
	cur := r.machine.Stage()
	target, ok := r.machine.Lookup(id)
	r.mu.RUnlock()
	if !ok {
		return stageError(fmt.Errorf("%w: %q", lifecycle.ErrUnknownStage, id))
	}
	if target.ID == cur.ID {
		return nil
	}

	ev := &StageChange{roundEvent: roundEvent{r}, Before: cur, After: target}
	r.arena.mg.publish(ctx, ev)
	if ev.Cancelled() {
		return ErrCancelled
	}

	r.mu.Lock()
	_, err := r.machine.Jump(id)
	r.mu.Unlock()
	return err
}

// NextLifecycleStage advances to the following stage and zeroes the timer.
// It fails with ErrInvalidState at the last stage.
func (r *Round) NextLifecycleStage(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	return r.advanceLocked(ctx, false)
}

// advanceLocked publishes a stage change and applies it unless vetoed.
// opMu must be held.
func (r *Round) advanceLocked(ctx context.Context, expired bool) error {
	r.mu.RLock()
	tr, err := r.machine.PeekAdvance()
	r.mu.RUnlock()
	if err != nil {
		return stageError(err)
	}

	ev := &StageChange{roundEvent: roundEvent{r}, Before: tr.From, After: tr.To, Expired: expired}
	r.arena.mg.publish(ctx, ev)
	if ev.Cancelled() {
		return ErrCancelled
	}

	r.mu.Lock()
	_, err = r.machine.Advance()
	r.mu.Unlock()
	return err
}

// Time returns the seconds elapsed in the current stage.
func (r *Round) Time() (int64, error) {
	if err := r.ensureValid(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.machine.Time(), nil
}

// RemainingTime returns the seconds left in the current stage, or -1 for an
// untimed stage.
func (r *Round) RemainingTime() (int64, error) {
	if err := r.ensureValid(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.machine.Remaining(), nil
}

// Ticking reports whether the timer is running.
func (r *Round) Ticking() (bool, error) {
	if err := r.ensureValid(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.machine.Ticking(), nil
}

// SetTime sets the elapsed time of the current stage.
func (r *Round) SetTime(ctx context.Context, t int64) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	r.mu.Lock()
	old, err := r.machine.SetTime(t)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	r.arena.mg.publish(ctx, &TimerChange{roundEvent: roundEvent{r}, Old: old, New: t})
	return nil
}

func (r *Round) StartTimer() error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	r.mu.Lock()
	r.machine.Start()
	r.mu.Unlock()
	return nil
}

func (r *Round) StopTimer(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	r.stopTimerLocked(ctx)
	return nil
}

func (r *Round) stopTimerLocked(ctx context.Context) {
	r.mu.Lock()
	was := r.machine.Stop()
	t := r.machine.Time()
	r.mu.Unlock()
	if was {
		r.arena.mg.publish(ctx, &TimerStop{roundEvent: roundEvent{r}, Time: t})
	}
}

// ResetTimer returns to the first stage and stops the timer at zero.
func (r *Round) ResetTimer(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	r.mu.Lock()
	was := r.machine.Reset()
	r.mu.Unlock()
	if was {
		r.arena.mg.publish(ctx, &TimerStop{roundEvent: roundEvent{r}})
	}
	return nil
}

// Tick advances a running timer by one second. When the current timed stage
// expires the round moves on, or, at the last stage, begins ending in the
// background.
func (r *Round) Tick(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.ensureValid(); err != nil {
		return err
	}
	r.mu.Lock()
	if r.ending {
		r.mu.Unlock()
		return nil
	}
	res := r.machine.Tick()
	r.mu.Unlock()

	if !res.Ticked {
		return nil
	}
	r.arena.mg.publish(ctx, &TimerTick{roundEvent: roundEvent{r}, Old: res.OldTime, New: res.NewTime})
	if !res.Expired {
		return nil
	}

	if !res.Final {
		if err := r.advanceLocked(ctx, true); err != nil && !errors.Is(err, ErrCancelled) {
			return err
		}
		return nil
	}

	if !resolveFor(r, confignode.EndOnFinalStageExpiry) {
		r.stopTimerLocked(ctx)
		return nil
	}
	r.beginNaturalEnd(ctx)
	return nil
}

// beginNaturalEnd marks the round ending and finishes it off the tick path.
// opMu must be held.
func (r *Round) beginNaturalEnd(ctx context.Context) {
	r.mu.Lock()
	r.ending = true
	r.mu.Unlock()
	r.stopTimerLocked(ctx)

	req := endRequest{natural: true, rollback: resolveFor(r, confignode.RollbackOnEnd)}
	ctx = context.WithoutCancel(ctx)
	mg := r.arena.mg
	mg.wg.Add(1)
	go func() {
		defer mg.wg.Done()
		r.opMu.Lock()
		defer r.opMu.Unlock()
		if err := r.finish(ctx, req); err != nil {
			mg.logger.Error("natural round end failed", "round", r.id, "error", err)
		}
	}()
}

// EndOption adjusts End.
type EndOption func(*endRequest)

// WithRollback overrides the RollbackOnEnd setting for this end.
func WithRollback(rollback bool) EndOption {
	return func(e *endRequest) { e.rollback = rollback }
}

// End ends the round: every challenger is removed, the arena is restored
// unless disabled, and the round is orphaned. It fails with ErrInvalidState
// if the round is already ending. If the restore fails the error is
// returned and the round stays ending until Arena.Rollback succeeds.
func (r *Round) End(ctx context.Context, opts ...EndOption) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.ensureValid(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.ending {
		r.mu.Unlock()
		return stateError("round %s is already ending", r.id)
	}
	r.ending = true
	r.mu.Unlock()

	req := endRequest{rollback: resolveFor(r, confignode.RollbackOnEnd)}
	for _, o := range opts {
		o(&req)
	}
	r.stopTimerLocked(ctx)
	return r.finish(ctx, req)
}

// retryEnd finishes a round whose end stalled on a failed restore.
func (r *Round) retryEnd(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.ensureValid(); err != nil {
		return err
	}
	r.mu.Lock()
	pending, ending := r.pending, r.ending
	r.pending = nil
	r.mu.Unlock()
	if pending == nil {
		if ending {
			return ErrRoundEnding
		}
		return stateError("arena %q has a live round", r.arena.id)
	}
	return r.finish(ctx, *pending)
}

// finish runs the end sequence. opMu must be held; it is released while the
// arena journal is settled and held again on return, so world I/O never
// holds up the round's other callers. The ending flag keeps every mutation
// out meanwhile. It is safe to run again after a failed restore.
func (r *Round) finish(ctx context.Context, req endRequest) error {
	for _, c := range r.snapshotChallengers() {
		r.removeLocked(ctx, c, true)
	}

	a := r.arena
	r.opMu.Unlock()
	restored, err := a.settleJournal(ctx, req.rollback)
	r.opMu.Lock()
	if err != nil {
		r.mu.Lock()
		r.pending = &req
		r.mu.Unlock()
		return a.afterRestore(ctx, restored, err)
	}

	a.mu.Lock()
	if a.round == r {
		a.round = nil
	}
	a.mu.Unlock()
	if req.rollback {
		if err := a.afterRestore(ctx, restored, nil); err != nil {
			return err
		}
	}

	r.mu.Lock()
	final := r.machine.Stage()
	teams := r.teamOrder
	r.teams, r.teamOrder = map[string]*Team{}, nil
	r.mu.Unlock()

	for _, t := range teams {
		t.orphan()
	}
	r.orphan()
	close(r.done)
	a.mg.logger.Info("round ended", "arena", a.id, "round", r.id, "natural", req.natural, "stage", final.ID)
	r.arena.mg.publish(ctx, &RoundEnd{roundEvent: roundEvent{r}, Natural: req.natural, FinalStage: final, Challengers: r.joinCount()})
	return nil
}

// Broadcast sends msg to every challenger. Delivery failures are joined.
func (r *Round) Broadcast(ctx context.Context, msg string) error {
	cs, err := r.Challengers()
	if err != nil {
		return err
	}
	m := r.arena.mg.messenger
	if m == nil {
		return nil
	}
	var errs []error
	for _, c := range cs {
		if err := m.Send(ctx, c.id, msg); err != nil {
			errs = append(errs, fmt.Errorf("sending to %s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Round) joinCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.joins
}

func (r *Round) snapshotChallengers() []*Challenger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
