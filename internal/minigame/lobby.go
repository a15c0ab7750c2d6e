package minigame

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/playperu/minigames/internal/confignode"
	"github.com/playperu/minigames/internal/physical"
)

// SignType selects what a lobby sign shows.
type SignType int

const (
	// StatusSign shows the arena's name, stage, time and player count.
	StatusSign SignType = iota
	// ListingSign shows a page of four challenger names.
	ListingSign
)

func (t SignType) String() string {
	switch t {
	case StatusSign:
		return "status"
	case ListingSign:
		return "listing"
	}
	return fmt.Sprintf("SignType(%d)", int(t))
}

// SignView is the arena state handed to a Populator.
type SignView struct {
	Type      SignType
	Index     int
	ArenaID   string
	ArenaName string
	// Stage is empty when the arena has no round.
	Stage      string
	Remaining  int64
	Players    int
	MaxPlayers int
	Names      []string
}

// Populator renders the four lines of a sign.
type Populator func(SignView) [4]string

// DefaultPopulator is used by signs without a custom populator.
func DefaultPopulator(v SignView) [4]string {
	var lines [4]string
	if v.Type == ListingSign {
		start := v.Index * 4
		for i := range lines {
			if start+i < len(v.Names) {
				lines[i] = v.Names[start+i]
			}
		}
		return lines
	}

	lines[0] = v.ArenaName
	if v.Stage == "" {
		lines[1] = "waiting"
		lines[3] = "0/" + strconv.Itoa(v.MaxPlayers)
		return lines
	}
	lines[1] = v.Stage
	if v.Remaining >= 0 {
		lines[2] = fmt.Sprintf("%d:%02d", v.Remaining/60, v.Remaining%60)
	}
	lines[3] = fmt.Sprintf("%d/%d", v.Players, v.MaxPlayers)
	return lines
}

// LobbySign is a display outside an arena.
type LobbySign struct {
	guard
	arena *Arena
	loc   physical.Location3D
	typ   SignType
	index int

	mu        sync.Mutex
	populator Populator
}

// RegisterStatusSign adds a status sign at loc.
func (a *Arena) RegisterStatusSign(loc physical.Location3D) (*LobbySign, error) {
	return a.registerSign(loc, StatusSign, 0)
}

// RegisterListingSign adds a sign showing page index of the challenger list.
func (a *Arena) RegisterListingSign(loc physical.Location3D, index int) (*LobbySign, error) {
	if index < 0 {
		return nil, argumentError("negative listing index %d", index)
	}
	return a.registerSign(loc, ListingSign, index)
}

func (a *Arena) registerSign(loc physical.Location3D, typ SignType, index int) (*LobbySign, error) {
	if err := a.ensureValid(); err != nil {
		return nil, err
	}
	if _, err := a.mg.LobbySignAt(loc); err == nil {
		return nil, argumentError("a lobby sign already exists at %s", loc)
	}

	s := &LobbySign{arena: a, loc: loc, typ: typ, index: index}
	s.init("lobby sign", loc.String())

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureValid(); err != nil {
		return nil, err
	}
	a.signs = append(a.signs, s)
	return s, nil
}

// LobbySignAt returns the sign registered at loc in any arena.
func (m *Minigame) LobbySignAt(loc physical.Location3D) (*LobbySign, error) {
	for _, a := range m.Arenas() {
		signs, err := a.LobbySigns()
		if err != nil {
			continue
		}
		for _, s := range signs {
			if s.loc == loc {
				return s, nil
			}
		}
	}
	return nil, ErrNotFound
}

// UpdateSigns redraws every lobby sign. Failures are logged.
func (m *Minigame) UpdateSigns(ctx context.Context) {
	for _, a := range m.Arenas() {
		signs, err := a.LobbySigns()
		if err != nil {
			continue
		}
		for _, s := range signs {
			if err := s.Update(ctx); err != nil && !errors.Is(err, ErrOrphaned) {
				m.logger.Warn("updating lobby sign", "arena", a.id, "sign", s.loc.String(), "error", err)
			}
		}
	}
}

func (s *LobbySign) Location() (physical.Location3D, error) {
	if err := s.ensureValid(); err != nil {
		return physical.Location3D{}, err
	}
	return s.loc, nil
}

func (s *LobbySign) Type() (SignType, error) {
	if err := s.ensureValid(); err != nil {
		return 0, err
	}
	return s.typ, nil
}

// Index is the listing page. It is zero for status signs.
func (s *LobbySign) Index() (int, error) {
	if err := s.ensureValid(); err != nil {
		return 0, err
	}
	return s.index, nil
}

func (s *LobbySign) Arena() (*Arena, error) {
	if err := s.ensureValid(); err != nil {
		return nil, err
	}
	return s.arena, nil
}

// SetPopulator replaces how the sign's text is produced. Nil restores
// DefaultPopulator.
func (s *LobbySign) SetPopulator(p Populator) error {
	if err := s.ensureValid(); err != nil {
		return err
	}
	s.mu.Lock()
	s.populator = p
	s.mu.Unlock()
	return nil
}

// View returns the state the sign would render.
func (s *LobbySign) View() (SignView, error) {
	if err := s.ensureValid(); err != nil {
		return SignView{}, err
	}
	a := s.arena
	v := SignView{
		Type:       s.typ,
		Index:      s.index,
		ArenaID:    a.id,
		MaxPlayers: Config(a.mg, confignode.MaxPlayers),
	}
	name, err := a.Name()
	if err != nil {
		return SignView{}, err
	}
	v.ArenaName = name

	r := a.currentRound()
	if r == nil {
		return v, nil
	}
	r.mu.RLock()
	v.Stage = r.machine.Stage().ID
	v.Remaining = r.machine.Remaining()
	v.Players = len(r.order)
	v.Names = make([]string, 0, len(r.order))
	for _, c := range r.order {
		v.Names = append(v.Names, c.name)
	}
	r.mu.RUnlock()
	v.MaxPlayers = resolveFor(r, confignode.MaxPlayers)
	return v, nil
}

// Update renders the sign and hands the lines to the host display.
func (s *LobbySign) Update(ctx context.Context) error {
	v, err := s.View()
	if err != nil {
		return err
	}
	s.mu.Lock()
	p := s.populator
	s.mu.Unlock()
	if p == nil {
		p = DefaultPopulator
	}
	lines := p(v)

	d := s.arena.mg.signs
	if d == nil {
		return nil
	}
	return d.Display(ctx, s.loc, lines)
}

// Unregister removes the sign from its arena.
func (s *LobbySign) Unregister() error {
	if err := s.ensureValid(); err != nil {
		return err
	}
	a := s.arena
	a.mu.Lock()
	for i, o := range a.signs {
		if o == s {
			a.signs = append(a.signs[:i:i], a.signs[i+1:]...)
			break
		}
	}
	a.mu.Unlock()
	s.orphan()
	return nil
}
