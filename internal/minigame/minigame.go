// Package minigame is the round lifecycle and arena state engine. A Minigame
// owns Arenas; an Arena hosts at most one live Round; a Round owns its
// Challengers and Teams. Every owned entity carries a validity bit and every
// operation on an invalidated entity fails with a *StaleError.
//
// Locks are taken in the order Arena.rbMu, Arena.mu, Round.mu, then the
// minigame's player index. Round.opMu comes before Arena.mu but is never
// held while waiting for Arena.rbMu: journal reads and writes run with
// neither opMu nor Arena.mu held, and an ending round releases its opMu
// for the restore. Events for a round are published while its opMu is
// held, so listeners must not call mutating methods of the same round
// synchronously.
package minigame

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/playperu/minigames/internal/confignode"
	"github.com/playperu/minigames/internal/events"
	"github.com/playperu/minigames/internal/physical"
)

// Options wires a Minigame to its host.
type Options struct {
	World     physical.WorldAccessor
	Players   Players
	Messenger Messenger
	Signs     SignDisplay
	Bus       *events.Bus
	Logger    *slog.Logger
	// Rand seeds spawn selection. Nil uses a random source.
	Rand *rand.Rand
}

// Minigame is the root of the ownership graph.
type Minigame struct {
	id        string
	world     physical.WorldAccessor
	players   Players
	messenger Messenger
	signs     SignDisplay
	bus       *events.Bus
	logger    *slog.Logger
	rng       *rand.Rand
	rngMu     sync.Mutex
	config    *confignode.Table

	mu     sync.RWMutex
	arenas map[string]*Arena

	idxMu sync.Mutex
	// index maps a player to their live challenger. A nil value is a
	// reservation held by an in-flight join.
	index map[uuid.UUID]*Challenger

	wg sync.WaitGroup
}

// New returns a minigame with no arenas.
func New(id string, opts Options) (*Minigame, error) {
	if strings.TrimSpace(id) == "" {
		return nil, argumentError("minigame id is empty")
	}
	if opts.World == nil || opts.Players == nil {
		return nil, argumentError("world and players are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus(opts.Logger)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Minigame{
		id:        id,
		world:     opts.World,
		players:   opts.Players,
		messenger: opts.Messenger,
		signs:     opts.Signs,
		bus:       opts.Bus,
		logger:    opts.Logger.With("minigame", id),
		rng:       opts.Rand,
		config:    confignode.NewTable(),
		arenas:    map[string]*Arena{},
		index:     map[uuid.UUID]*Challenger{},
	}, nil
}

func (m *Minigame) ID() string { return m.id }

// Bus returns the event bus listeners subscribe to.
func (m *Minigame) Bus() *events.Bus { return m.bus }

// Config resolves a node at minigame scope.
func Config[T any](m *Minigame, k *confignode.Key[T]) T {
	return confignode.Resolve(k, m.config)
}

// SetConfig overrides a node for the whole minigame.
func SetConfig[T any](m *Minigame, k *confignode.Key[T], v T) {
	confignode.Set(m.config, k, v)
}

// SetConfigText parses and stores a minigame override by node name.
func (m *Minigame) SetConfigText(name, text string) error {
	if _, err := m.config.SetText(name, text); err != nil {
		return argumentError("%v", err)
	}
	return nil
}

// ConfigOverrides returns the minigame-level overrides by node name.
func (m *Minigame) ConfigOverrides() map[string]any {
	return m.config.Snapshot()
}

// foldID normalizes an arena id for case-insensitive lookup.
func foldID(id string) string {
	return cases.Fold().String(id)
}

// CreateArena registers a new arena with one initial spawn point.
func (m *Minigame) CreateArena(id, name string, spawnPoint physical.Location3D, boundary physical.Boundary) (*Arena, error) {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, " /\\") {
		return nil, argumentError("invalid arena id %q", id)
	}
	if name == "" {
		name = id
	}
	if err := checkSpawn(boundary, spawnPoint); err != nil {
		return nil, err
	}

	a := newArena(m, id, name, boundary)
	a.spawns[0] = spawnPoint
	a.nextSpawn = 1

	m.mu.Lock()
	defer m.mu.Unlock()
	key := foldID(id)
	if _, dup := m.arenas[key]; dup {
		return nil, argumentError("arena %q already exists", id)
	}
	m.arenas[key] = a
	m.logger.Info("arena created", "arena", id, "boundary", boundary.String())
	return a, nil
}

// Arena looks up an arena by id, ignoring case.
func (m *Minigame) Arena(id string) (*Arena, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.arenas[foldID(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// Arenas returns every arena sorted by id.
func (m *Minigame) Arenas() []*Arena {
	m.mu.RLock()
	out := make([]*Arena, 0, len(m.arenas))
	for _, a := range m.arenas {
		out = append(out, a)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// RemoveArena ends the arena's round, unregisters its lobby signs and
// orphans it.
func (m *Minigame) RemoveArena(ctx context.Context, a *Arena) error {
	if err := a.ensureValid(); err != nil {
		return err
	}
	if a.mg != m {
		return argumentError("arena %q belongs to another minigame", a.id)
	}

	for {
		r := a.currentRound()
		if r == nil {
			a.rbMu.Lock()
			a.mu.Lock()
			if a.round != nil {
				a.mu.Unlock()
				a.rbMu.Unlock()
				continue
			}
			for _, s := range a.signs {
				s.orphan()
			}
			a.signs = nil
			a.journal.Discard()
			a.orphan()
			a.mu.Unlock()
			a.rbMu.Unlock()
			break
		}
		if err := r.End(ctx); err != nil && !errors.Is(err, ErrInvalidState) && !errors.Is(err, ErrOrphaned) {
			return err
		}
		select {
		case <-r.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	delete(m.arenas, foldID(a.id))
	m.mu.Unlock()
	m.logger.Info("arena removed", "arena", a.id)
	return nil
}

// Rounds returns the live rounds of every arena.
func (m *Minigame) Rounds() []*Round {
	var out []*Round
	for _, a := range m.Arenas() {
		if r := a.currentRound(); r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Challengers returns every live challenger across all rounds.
func (m *Minigame) Challengers() []*Challenger {
	var out []*Challenger
	for _, r := range m.Rounds() {
		cs, err := r.Challengers()
		if err != nil {
			continue
		}
		out = append(out, cs...)
	}
	return out
}

// Challenger returns the live challenger for a player, in whatever round.
func (m *Minigame) Challenger(id uuid.UUID) (*Challenger, error) {
	m.idxMu.Lock()
	defer m.idxMu.Unlock()
	c := m.index[id]
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// Tick advances the timer of every live round by one second and refreshes
// lobby signs. It is meant to be called by a scheduler once per second.
func (m *Minigame) Tick(ctx context.Context) {
	for _, r := range m.Rounds() {
		if r.isEnding() {
			continue
		}
		if err := r.Tick(ctx); err != nil && !errors.Is(err, ErrOrphaned) {
			m.logger.Warn("round tick failed", "round", r.id, "error", err)
		}
	}
	if m.signs != nil {
		m.UpdateSigns(ctx)
	}
}

// Wait blocks until every background round end has finished.
func (m *Minigame) Wait() {
	m.wg.Wait()
}

func (m *Minigame) reserve(id uuid.UUID) bool {
	m.idxMu.Lock()
	defer m.idxMu.Unlock()
	if _, taken := m.index[id]; taken {
		return false
	}
	m.index[id] = nil
	return true
}

func (m *Minigame) bind(id uuid.UUID, c *Challenger) {
	m.idxMu.Lock()
	m.index[id] = c
	m.idxMu.Unlock()
}

func (m *Minigame) release(id uuid.UUID) {
	m.idxMu.Lock()
	delete(m.index, id)
	m.idxMu.Unlock()
}

func (m *Minigame) newSeed() *rand.Rand {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return rand.New(rand.NewPCG(m.rng.Uint64(), m.rng.Uint64()))
}

func (m *Minigame) publish(ctx context.Context, e events.Event) {
	m.bus.Publish(ctx, e)
}
