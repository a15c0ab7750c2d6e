package minigame

import (
	"context"
	"slices"
	"strings"

	"github.com/playperu/minigames/internal/metadata"
)

// Team groups challengers within a round.
type Team struct {
	guard
	round *Round
	id    string
	meta  *metadata.Bag

	// guarded by round.mu
	name    string
	members []*Challenger
}

// CreateTeam adds a team with the given id. Ids are unique per round.
func (r *Round) CreateTeam(id string) (*Team, error) {
	if err := r.ensureValid(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, argumentError("team id is empty")
	}
	if r.isEnding() {
		return nil, ErrRoundEnding
	}
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.teams[id]; dup {
		return nil, argumentError("team %q already exists", id)
	}
	return r.addTeamLocked(id), nil
}

// GetOrCreateTeam returns the team with id, creating it if needed.
func (r *Round) GetOrCreateTeam(id string) (*Team, error) {
	if err := r.ensureValid(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, argumentError("team id is empty")
	}
	if r.isEnding() {
		return nil, ErrRoundEnding
	}
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.teams[id]; ok {
		return t, nil
	}
	return r.addTeamLocked(id), nil
}

func (r *Round) addTeamLocked(id string) *Team {
	t := &Team{round: r, id: id, name: id, meta: metadata.New()}
	t.init("team", id)
	r.teams[id] = t
	r.teamOrder = append(r.teamOrder, t)
	return t
}

func (r *Round) Team(id string) (*Team, error) {
	if err := r.ensureValid(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// Teams returns the round's teams in creation order.
func (r *Round) Teams() ([]*Team, error) {
	if err := r.ensureValid(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.teamOrder), nil
}

// RemoveTeam disbands t. Its members stay in the round without a team.
func (r *Round) RemoveTeam(ctx context.Context, t *Team) error {
	if err := r.ensureValid(); err != nil {
		return err
	}
	if err := t.ensureValid(); err != nil {
		return err
	}
	if t.round != r {
		return argumentError("team %q is not in round %s", t.id, r.id)
	}
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	if err := t.ensureValid(); err != nil {
		return err
	}
	r.mu.Lock()
	for _, c := range t.members {
		c.team = nil
	}
	t.members = nil
	delete(r.teams, t.id)
	r.teamOrder = slices.DeleteFunc(r.teamOrder, func(o *Team) bool { return o == t })
	r.mu.Unlock()
	t.orphan()
	r.arena.mg.logger.DebugContext(ctx, "team removed", "round", r.id, "team", t.id)
	return nil
}

func (t *Team) ID() string { return t.id }

func (t *Team) Round() (*Round, error) {
	if err := t.ensureValid(); err != nil {
		return nil, err
	}
	return t.round, nil
}

func (t *Team) Name() (string, error) {
	if err := t.ensureValid(); err != nil {
		return "", err
	}
	t.round.mu.RLock()
	defer t.round.mu.RUnlock()
	return t.name, nil
}

func (t *Team) SetName(name string) error {
	if err := t.ensureValid(); err != nil {
		return err
	}
	if name == "" {
		return argumentError("team name is empty")
	}
	r := t.round
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	r.mu.Lock()
	t.name = name
	r.mu.Unlock()
	return nil
}

// Challengers returns the members in the order they joined the team.
func (t *Team) Challengers() ([]*Challenger, error) {
	if err := t.ensureValid(); err != nil {
		return nil, err
	}
	t.round.mu.RLock()
	defer t.round.mu.RUnlock()
	return slices.Clone(t.members), nil
}

// AddChallenger moves c into this team.
func (t *Team) AddChallenger(c *Challenger) error {
	if err := t.ensureValid(); err != nil {
		return err
	}
	return c.SetTeam(t)
}

// RemoveChallenger takes c out of this team.
func (t *Team) RemoveChallenger(c *Challenger) error {
	if err := t.ensureValid(); err != nil {
		return err
	}
	return c.moveTeam(nil, t)
}

func (t *Team) Metadata() (*metadata.Bag, error) {
	if err := t.ensureValid(); err != nil {
		return nil, err
	}
	return t.meta, nil
}

// detachLocked drops c from the member list. round.mu must be held.
func (t *Team) detachLocked(c *Challenger) {
	t.members = slices.DeleteFunc(t.members, func(o *Challenger) bool { return o == c })
}
