package minigame

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/playperu/minigames/internal/confignode"
	"github.com/playperu/minigames/internal/lifecycle"
	"github.com/playperu/minigames/internal/metadata"
	"github.com/playperu/minigames/internal/physical"
	"github.com/playperu/minigames/internal/rollback"
	"github.com/playperu/minigames/internal/spawn"
)

// Arena is a bounded region that hosts at most one round at a time.
type Arena struct {
	guard
	mg   *Minigame
	id   string
	meta *metadata.Bag

	// rbMu serializes journal I/O: capture, restore and discard. It is
	// never taken by readers of the arena, so the tick driver does not wait
	// on the world. It is taken before mu and never while holding a
	// round's opMu.
	rbMu sync.Mutex

	mu           sync.Mutex
	name         string
	boundary     physical.Boundary
	spawns       map[int]physical.Location3D
	nextSpawn    int
	spawnVersion uint64
	round        *Round
	journal      *rollback.Journal
	signs        []*LobbySign
}

func newArena(m *Minigame, id, name string, boundary physical.Boundary) *Arena {
	a := &Arena{
		mg:       m,
		id:       id,
		meta:     metadata.New(),
		name:     name,
		boundary: boundary,
		spawns:   map[int]physical.Location3D{},
		journal:  rollback.New(m.world, boundary, rollback.WithLogger(m.logger.With("arena", id))),
	}
	a.init("arena", id)
	return a
}

// ID returns the arena id as it was given at creation.
func (a *Arena) ID() string { return a.id }

// Minigame returns the owner.
func (a *Arena) Minigame() (*Minigame, error) {
	if err := a.ensureValid(); err != nil {
		return nil, err
	}
	return a.mg, nil
}

func (a *Arena) Name() (string, error) {
	if err := a.ensureValid(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name, nil
}

func (a *Arena) SetName(name string) error {
	if err := a.ensureValid(); err != nil {
		return err
	}
	if name == "" {
		return argumentError("arena name is empty")
	}
	a.mu.Lock()
	a.name = name
	a.mu.Unlock()
	return nil
}

// World returns the name of the world the arena lives in, or "".
func (a *Arena) World() (string, error) {
	b, err := a.Boundary()
	if err != nil {
		return "", err
	}
	return b.World(), nil
}

func (a *Arena) Boundary() (physical.Boundary, error) {
	if err := a.ensureValid(); err != nil {
		return physical.Boundary{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.boundary, nil
}

// SetBoundary replaces the boundary. It fails while a round is live or when
// an existing spawn point would fall outside.
func (a *Arena) SetBoundary(b physical.Boundary) error {
	if err := a.ensureValid(); err != nil {
		return err
	}
	a.rbMu.Lock()
	defer a.rbMu.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.round != nil {
		return stateError("arena %q has a live round", a.id)
	}
	for i, p := range a.spawns {
		if err := checkSpawn(b, p); err != nil {
			return fmt.Errorf("spawn point %d: %w", i, err)
		}
	}
	if err := a.journal.SetBoundary(b); err != nil {
		return stateError("%v", err)
	}
	a.boundary = b
	return nil
}

// Metadata returns the arena's metadata bag.
func (a *Arena) Metadata() (*metadata.Bag, error) {
	if err := a.ensureValid(); err != nil {
		return nil, err
	}
	return a.meta, nil
}

func checkSpawn(b physical.Boundary, p physical.Location3D) error {
	if b.World() != "" && p.HasWorld() && p.World != b.World() {
		return argumentError("spawn point %s is not in world %q", p, b.World())
	}
	if !b.Contains(p) {
		return argumentError("spawn point %s is outside boundary %s", p, b)
	}
	return nil
}

// SpawnPoints returns the spawn points ordered by index.
func (a *Arena) SpawnPoints() ([]spawn.Point, error) {
	if err := a.ensureValid(); err != nil {
		return nil, err
	}
	points, _ := a.spawnSnapshot()
	return points, nil
}

func (a *Arena) spawnSnapshot() ([]spawn.Point, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	points := make([]spawn.Point, 0, len(a.spawns))
	for i, l := range a.spawns {
		points = append(points, spawn.Point{Index: i, Location: l})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Index < points[j].Index })
	return points, a.spawnVersion
}

// AddSpawnPoint adds a spawn point and returns its index. Indices are never
// reused within the life of the arena.
func (a *Arena) AddSpawnPoint(p physical.Location3D) (int, error) {
	if err := a.ensureValid(); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := checkSpawn(a.boundary, p); err != nil {
		return 0, err
	}
	idx := a.nextSpawn
	a.nextSpawn++
	a.spawns[idx] = p
	a.spawnVersion++
	return idx, nil
}

// RemoveSpawnPoint removes the spawn point at index. The last spawn point
// cannot be removed.
func (a *Arena) RemoveSpawnPoint(index int) error {
	if err := a.ensureValid(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.spawns[index]; !ok {
		return argumentError("no spawn point at index %d", index)
	}
	if len(a.spawns) == 1 {
		return argumentError("cannot remove the last spawn point")
	}
	delete(a.spawns, index)
	a.spawnVersion++
	return nil
}

// RemoveSpawnPointAt removes the spawn point at exactly p.
func (a *Arena) RemoveSpawnPointAt(p physical.Location3D) error {
	if err := a.ensureValid(); err != nil {
		return err
	}
	a.mu.Lock()
	idx, found := -1, false
	for i, l := range a.spawns {
		if l == p {
			idx, found = i, true
			break
		}
	}
	a.mu.Unlock()
	if !found {
		return argumentError("no spawn point at %s", p)
	}
	return a.RemoveSpawnPoint(idx)
}

// Round returns the live round, if any.
func (a *Arena) Round() (*Round, bool, error) {
	if err := a.ensureValid(); err != nil {
		return nil, false, err
	}
	r := a.currentRound()
	return r, r != nil, nil
}

// HasActiveRound reports whether a round is attached and not orphaned.
func (a *Arena) HasActiveRound() bool {
	r := a.currentRound()
	return r != nil && !r.Orphaned()
}

func (a *Arena) currentRound() *Round {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.round
}

// CreateRound starts a round with the given stages, or with the minigame's
// DefaultLifecycleStages when none are given. The arena's boundary is
// snapshotted for rollback and the round's timer starts ticking.
func (a *Arena) CreateRound(ctx context.Context, stages ...lifecycle.Stage) (*Round, error) {
	if err := a.ensureValid(); err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		stages = Config(a.mg, confignode.DefaultLifecycleStages)
	}
	machine, err := lifecycle.NewMachine(stages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	// Fail fast without waiting on a restore still running for an ending
	// round; the check is repeated under rbMu.
	if err := a.checkNoRound(); err != nil {
		return nil, err
	}
	a.rbMu.Lock()
	if err := a.checkNoRound(); err != nil {
		a.rbMu.Unlock()
		return nil, err
	}

	// Capture runs without mu; rbMu keeps other creators and restores out.
	a.journal.SetCaptureLimit(Config(a.mg, confignode.RollbackCaptureLimit))
	if err := a.journal.BeginTracking(ctx); err != nil {
		a.rbMu.Unlock()
		if errors.Is(err, rollback.ErrAlreadyTracking) {
			return nil, stateError("%v", err)
		}
		return nil, err
	}

	a.mu.Lock()
	if err := a.ensureValid(); err != nil {
		a.mu.Unlock()
		a.journal.Discard()
		a.rbMu.Unlock()
		return nil, err
	}
	r := newRound(a, machine)
	machine.Start()
	// The round is not reachable until a.round is set, so this cannot block.
	r.opMu.Lock()
	defer r.opMu.Unlock()
	a.round = r
	a.mu.Unlock()
	a.rbMu.Unlock()

	a.mg.logger.Info("round created", "arena", a.id, "round", r.id, "stages", lifecycle.FormatStages(stages))
	a.mg.publish(ctx, &RoundStart{roundEvent: roundEvent{r}, Stage: machine.Stage()})
	return r, nil
}

// MarkForRollback captures the cell at loc so it is restored when the
// current round ends. Marking an already tracked cell does nothing.
func (a *Arena) MarkForRollback(ctx context.Context, loc physical.Location3D) error {
	if err := a.ensureValid(); err != nil {
		return err
	}
	if err := a.journal.Mark(ctx, loc); err != nil {
		if errors.Is(err, rollback.ErrOutOfBounds) {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		return err
	}
	return nil
}

// Rollback restores the arena. If a round is stuck ending because its
// restore failed, this retries the restore and completes the end. It fails
// while a round is running normally.
func (a *Arena) Rollback(ctx context.Context) error {
	if err := a.ensureValid(); err != nil {
		return err
	}
	if r := a.currentRound(); r != nil {
		return r.retryEnd(ctx)
	}

	a.rbMu.Lock()
	if err := a.checkNoRound(); err != nil {
		a.rbMu.Unlock()
		return err
	}
	n, err := a.journal.Restore(ctx)
	a.rbMu.Unlock()
	return a.afterRestore(ctx, n, err)
}

// checkNoRound fails unless the arena is valid and idle.
func (a *Arena) checkNoRound() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureValid(); err != nil {
		return err
	}
	if a.round != nil {
		return stateError("arena %q already has a live round", a.id)
	}
	return nil
}

// settleJournal restores or discards the journal at the end of a round.
func (a *Arena) settleJournal(ctx context.Context, restore bool) (int, error) {
	a.rbMu.Lock()
	defer a.rbMu.Unlock()
	if !restore {
		a.journal.Discard()
		return 0, nil
	}
	return a.journal.Restore(ctx)
}

// afterRestore logs and publishes the outcome of a journal restore and maps
// its error. It must be called without a.mu held.
func (a *Arena) afterRestore(ctx context.Context, n int, err error) error {
	a.mg.publish(ctx, &ArenaRollback{Arena: a, Cells: n, Err: err})
	if errors.Is(err, rollback.ErrNothingToRestore) {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if err != nil {
		a.mg.logger.Error("arena rollback failed", "arena", a.id, "error", err)
		return err
	}
	a.mg.logger.Info("arena rolled back", "arena", a.id, "cells", n)
	return nil
}

// LobbySigns returns the signs registered to the arena.
func (a *Arena) LobbySigns() ([]*LobbySign, error) {
	if err := a.ensureValid(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.signs), nil
}
