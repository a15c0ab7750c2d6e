package minigame

import (
	"context"

	"github.com/google/uuid"

	"github.com/playperu/minigames/internal/metadata"
	"github.com/playperu/minigames/internal/physical"
)

// Challenger is a player's membership in one round.
type Challenger struct {
	guard
	round *Round
	id    uuid.UUID
	name  string
	from  physical.Location3D
	spawn physical.Location3D
	meta  *metadata.Bag

	// guarded by round.mu
	team       *Team
	spectating bool
	// leaving is set once removal has started; the challenger can no
	// longer join a team or change mode.
	leaving bool
}

func newChallenger(r *Round, id uuid.UUID, name string, from, spawn physical.Location3D) *Challenger {
	c := &Challenger{
		round: r,
		id:    id,
		name:  name,
		from:  from,
		spawn: spawn,
		meta:  metadata.New(),
	}
	c.init("challenger", name)
	return c
}

// ID returns the player id.
func (c *Challenger) ID() uuid.UUID { return c.id }

func (c *Challenger) Name() (string, error) {
	if err := c.ensureValid(); err != nil {
		return "", err
	}
	return c.name, nil
}

func (c *Challenger) Round() (*Round, error) {
	if err := c.ensureValid(); err != nil {
		return nil, err
	}
	return c.round, nil
}

// Team returns the challenger's team, if any.
func (c *Challenger) Team() (*Team, bool, error) {
	if err := c.ensureValid(); err != nil {
		return nil, false, err
	}
	c.round.mu.RLock()
	defer c.round.mu.RUnlock()
	return c.team, c.team != nil, nil
}

// SetTeam moves the challenger to t. A nil team removes them from their
// current one.
func (c *Challenger) SetTeam(t *Team) error {
	return c.moveTeam(t, nil)
}

// moveTeam sets the challenger's team under the round's opMu. A non-nil from
// requires the challenger to currently be on that team.
func (c *Challenger) moveTeam(t, from *Team) error {
	if err := c.ensureValid(); err != nil {
		return err
	}
	if t != nil {
		if err := t.ensureValid(); err != nil {
			return err
		}
		if t.round != c.round {
			return argumentError("team %q is not in the challenger's round", t.id)
		}
	}
	// A leave listener runs under opMu; refuse before waiting on it.
	if err := c.checkStaying(); err != nil {
		return err
	}

	r := c.round
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	if err := c.checkStaying(); err != nil {
		return err
	}
	if t != nil {
		if err := t.ensureValid(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if from != nil && c.team != from {
		return argumentError("challenger %s is not on team %q", c.name, from.id)
	}
	if c.team == t {
		return nil
	}
	if c.team != nil {
		c.team.detachLocked(c)
	}
	c.team = t
	if t != nil {
		t.members = append(t.members, c)
	}
	return nil
}

// checkStaying fails if the challenger is orphaned or being removed.
func (c *Challenger) checkStaying() error {
	if err := c.ensureValid(); err != nil {
		return err
	}
	c.round.mu.RLock()
	defer c.round.mu.RUnlock()
	if c.leaving {
		return stateError("challenger %s is leaving the round", c.name)
	}
	return nil
}

func (c *Challenger) Spectating() (bool, error) {
	if err := c.ensureValid(); err != nil {
		return false, err
	}
	return c.isSpectating(), nil
}

func (c *Challenger) isSpectating() bool {
	c.round.mu.RLock()
	defer c.round.mu.RUnlock()
	return c.spectating
}

// SetSpectating toggles spectator mode. Spectators are ignored when picking
// spawn points by proximity.
func (c *Challenger) SetSpectating(v bool) error {
	if err := c.checkStaying(); err != nil {
		return err
	}
	r := c.round
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return err
	}
	if err := c.checkStaying(); err != nil {
		return err
	}
	r.mu.Lock()
	c.spectating = v
	r.mu.Unlock()
	return nil
}

func (c *Challenger) Metadata() (*metadata.Bag, error) {
	if err := c.ensureValid(); err != nil {
		return nil, err
	}
	return c.meta, nil
}

// ReturnLocation is where the player stood before joining.
func (c *Challenger) ReturnLocation() (physical.Location3D, error) {
	if err := c.ensureValid(); err != nil {
		return physical.Location3D{}, err
	}
	return c.from, nil
}

// SpawnLocation is the spawn point the player was sent to on joining.
func (c *Challenger) SpawnLocation() (physical.Location3D, error) {
	if err := c.ensureValid(); err != nil {
		return physical.Location3D{}, err
	}
	return c.spawn, nil
}

// RemoveFromRound is shorthand for Round.RemoveChallenger.
func (c *Challenger) RemoveFromRound(ctx context.Context) error {
	if err := c.ensureValid(); err != nil {
		return err
	}
	return c.round.RemoveChallenger(ctx, c)
}
