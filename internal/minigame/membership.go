package minigame

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/playperu/minigames/internal/confignode"
	"github.com/playperu/minigames/internal/physical"
	"github.com/playperu/minigames/internal/spawn"
)

// AddChallenger admits a player. Refusals are reported through the
// JoinResult; the error is only set for stale or ending rounds.
func (r *Round) AddChallenger(ctx context.Context, player uuid.UUID) (JoinResult, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.mutable(); err != nil {
		return JoinResult{}, err
	}

	res := r.join(ctx, player)
	if res.OK() {
		c := res.challenger
		r.arena.mg.logger.Info("challenger joined", "round", r.id, "player", player, "name", c.name)
		r.arena.mg.publish(ctx, &ChallengerJoin{roundEvent: roundEvent{r}, Challenger: c, Spawn: c.spawn})
	} else {
		r.arena.mg.logger.Debug("join refused", "round", r.id, "player", player, "result", res.String())
		r.arena.mg.publish(ctx, &ChallengerJoinRejected{roundEvent: roundEvent{r}, Player: player, Result: res})
	}
	return res, nil
}

func (r *Round) join(ctx context.Context, player uuid.UUID) JoinResult {
	mg := r.arena.mg
	if !mg.reserve(player) {
		return joinRefused(JoinAlreadyInRound, fmt.Errorf("player %s is already in a round", player))
	}
	admitted := false
	defer func() {
		if !admitted {
			mg.release(player)
		}
	}()

	r.mu.RLock()
	count := len(r.challengers)
	r.mu.RUnlock()
	if limit := resolveFor(r, confignode.MaxPlayers); count >= limit {
		return joinRefused(JoinRoundFull, fmt.Errorf("round has %d of %d players", count, limit))
	}

	name, err := mg.players.Name(ctx, player)
	if err != nil {
		return hostFailure(err)
	}
	from, err := mg.players.Location(ctx, player)
	if err != nil {
		return hostFailure(err)
	}

	points, version := r.arena.spawnSnapshot()
	mode := resolveFor(r, confignode.SpawningMode)
	var occupied []physical.Location3D
	if mode == spawn.ProximityHigh {
		occupied = r.occupied(ctx)
	}
	p, err := r.selector.Pick(mode, points, version, occupied)
	if err != nil {
		return joinRefused(JoinInternalError, fmt.Errorf("selecting spawn point: %w", err))
	}
	if err := mg.players.Teleport(ctx, player, p.Location); err != nil {
		return hostFailure(err)
	}

	c := newChallenger(r, player, name, from, p.Location)
	r.mu.Lock()
	r.challengers[player] = c
	r.order = append(r.order, c)
	r.joins++
	r.mu.Unlock()
	mg.bind(player, c)
	admitted = true
	return joinSucceeded(c)
}

func hostFailure(err error) JoinResult {
	if errors.Is(err, physical.ErrPlayerOffline) {
		return joinRefused(JoinPlayerUnavailable, err)
	}
	return joinRefused(JoinInternalError, err)
}

// occupied returns the current positions of non-spectating challengers.
// Players the host cannot locate are skipped.
func (r *Round) occupied(ctx context.Context) []physical.Location3D {
	var locs []physical.Location3D
	for _, c := range r.snapshotChallengers() {
		if c.isSpectating() {
			continue
		}
		loc, err := r.arena.mg.players.Location(ctx, c.id)
		if err != nil {
			continue
		}
		locs = append(locs, loc)
	}
	return locs
}

// RemoveChallenger takes a challenger out of the round and returns the
// player to where they were before joining.
func (r *Round) RemoveChallenger(ctx context.Context, c *Challenger) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.ensureValid(); err != nil {
		return err
	}
	if err := c.ensureValid(); err != nil {
		return err
	}
	if c.round != r {
		return argumentError("challenger %s is not in round %s", c.name, r.id)
	}
	r.removeLocked(ctx, c, false)
	return nil
}

// RemoveChallengerByID removes the challenger for a player.
func (r *Round) RemoveChallengerByID(ctx context.Context, player uuid.UUID) error {
	c, err := r.Challenger(player)
	if errors.Is(err, ErrNotFound) {
		return argumentError("player %s is not in round %s", player, r.id)
	}
	if err != nil {
		return err
	}
	return r.RemoveChallenger(ctx, c)
}

// removeLocked is the single removal path shared by leaving and ending.
// opMu must be held.
func (r *Round) removeLocked(ctx context.Context, c *Challenger, ending bool) {
	mg := r.arena.mg

	r.mu.Lock()
	c.leaving = true
	if c.team != nil {
		c.team.detachLocked(c)
		c.team = nil
	}
	c.spectating = false
	r.mu.Unlock()

	ev := &ChallengerLeave{
		roundEvent:     roundEvent{r},
		Challenger:     c,
		ReturnLocation: c.from,
		Relocate:       resolveFor(r, confignode.RelocateOnLeave),
		RoundEnding:    ending,
	}
	mg.publish(ctx, ev)

	if ev.Relocate {
		if err := mg.players.Teleport(ctx, c.id, ev.ReturnLocation); err != nil {
			mg.logger.Warn("returning player", "player", c.id, "error", err)
		}
	}

	r.mu.Lock()
	delete(r.challengers, c.id)
	for i, o := range r.order {
		if o == c {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	mg.release(c.id)

	c.orphan()
	mg.logger.Info("challenger left", "round", r.id, "player", c.id, "round_ending", ending)
}

// Challengers returns the members in join order.
func (r *Round) Challengers() ([]*Challenger, error) {
	if err := r.ensureValid(); err != nil {
		return nil, err
	}
	return r.snapshotChallengers(), nil
}

// Challenger returns the member for a player.
func (r *Round) Challenger(player uuid.UUID) (*Challenger, error) {
	if err := r.ensureValid(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.challengers[player]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// SpectatorCount returns how many members are spectating.
func (r *Round) SpectatorCount() (int, error) {
	if err := r.ensureValid(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.order {
		if c.spectating {
			n++
		}
	}
	return n, nil
}
