// Package worldstoretest provides an in-memory world and player registry
// with failure switches for exercising the engine in tests.
package worldstoretest

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/playperu/minigames/internal/physical"
	"github.com/playperu/minigames/internal/worldstore"
)

// Memory is an in-process world and player registry. Cells that were never
// written read as worldstore.Empty.
type Memory struct {
	mu       sync.RWMutex
	cells    map[physical.Cell]physical.CellState
	players  map[uuid.UUID]*memPlayer
	readErr  error
	writeErr error
	writes   int
}

type memPlayer struct {
	name     string
	loc      physical.Location3D
	online   bool
	messages []string
}

// NewMemory returns an empty world.
func NewMemory() *Memory {
	return &Memory{
		cells:   map[physical.Cell]physical.CellState{},
		players: map[uuid.UUID]*memPlayer{},
	}
}

// FailReads makes every subsequent read return err. A nil err clears it.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// FailWrites makes every subsequent write return err. A nil err clears it.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// Writes returns how many cell writes have been applied.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Cells returns a copy of every written cell.
func (m *Memory) Cells() map[physical.Cell]physical.CellState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.cells)
}

func (m *Memory) Read(_ context.Context, c physical.Cell) (physical.CellState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.readErr != nil {
		return physical.CellState{}, m.readErr
	}
	if s, ok := m.cells[c]; ok {
		return s, nil
	}
	return worldstore.Empty, nil
}

func (m *Memory) Write(_ context.Context, c physical.Cell, s physical.CellState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.put(c, s)
	return nil
}

// WriteBatch applies every write or none.
func (m *Memory) WriteBatch(_ context.Context, writes []physical.CellWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for _, w := range writes {
		m.put(w.Cell, w.State)
	}
	return nil
}

func (m *Memory) put(c physical.Cell, s physical.CellState) {
	if s.Kind == worldstore.Empty.Kind && len(s.Data) == 0 {
		delete(m.cells, c)
	} else {
		m.cells[c] = s
	}
	m.writes++
}

// Connect registers an online player at loc.
func (m *Memory) Connect(id uuid.UUID, name string, loc physical.Location3D) {
	m.mu.Lock()
	m.players[id] = &memPlayer{name: name, loc: loc, online: true}
	m.mu.Unlock()
}

// Disconnect marks a player offline.
func (m *Memory) Disconnect(id uuid.UUID) {
	m.mu.Lock()
	if p, ok := m.players[id]; ok {
		p.online = false
	}
	m.mu.Unlock()
}

func (m *Memory) online(id uuid.UUID) (*memPlayer, error) {
	p, ok := m.players[id]
	if !ok || !p.online {
		return nil, fmt.Errorf("%w: %s", physical.ErrPlayerOffline, id)
	}
	return p, nil
}

func (m *Memory) Name(_ context.Context, id uuid.UUID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, err := m.online(id)
	if err != nil {
		return "", err
	}
	return p.name, nil
}

func (m *Memory) Location(_ context.Context, id uuid.UUID) (physical.Location3D, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, err := m.online(id)
	if err != nil {
		return physical.Location3D{}, err
	}
	return p.loc, nil
}

func (m *Memory) Teleport(_ context.Context, id uuid.UUID, loc physical.Location3D) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.online(id)
	if err != nil {
		return err
	}
	p.loc = loc
	return nil
}

func (m *Memory) Send(_ context.Context, id uuid.UUID, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.online(id)
	if err != nil {
		return err
	}
	p.messages = append(p.messages, msg)
	return nil
}

// Messages returns what has been sent to a player.
func (m *Memory) Messages(id uuid.UUID) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.players[id]; ok {
		return append([]string(nil), p.messages...)
	}
	return nil
}
