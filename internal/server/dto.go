package server

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/playperu/minigames/internal/lifecycle"
	"github.com/playperu/minigames/internal/minigame"
	"github.com/playperu/minigames/internal/physical"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type BoundaryResponse struct {
	Lower physical.Location3D `json:"lower"`
	Upper physical.Location3D `json:"upper"`
}

type SpawnResponse struct {
	Index    int                 `json:"index"`
	Location physical.Location3D `json:"location"`
}

type ArenaResponse struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Boundary BoundaryResponse `json:"boundary"`
	Spawns   []SpawnResponse  `json:"spawns"`
	Round    *RoundResponse   `json:"round,omitempty"`
}

type ChallengerResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Team       string    `json:"team,omitempty"`
	Spectating bool      `json:"spectating"`
}

type TeamResponse struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Members []uuid.UUID `json:"members"`
}

type RoundResponse struct {
	ID          uuid.UUID            `json:"id"`
	Stage       lifecycle.Stage      `json:"stage"`
	Stages      []lifecycle.Stage    `json:"stages"`
	Time        int64                `json:"time"`
	Remaining   int64                `json:"remaining"`
	Ticking     bool                 `json:"ticking"`
	Ending      bool                 `json:"ending"`
	Challengers []ChallengerResponse `json:"challengers"`
	Teams       []TeamResponse       `json:"teams"`
}

type CreateRoundRequest struct {
	// Stages uses the "id:seconds,id" form. Empty uses the minigame default.
	Stages string            `json:"stages,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

type SetStageRequest struct {
	ID string `json:"id"`
}

type SetTimeRequest struct {
	Time int64 `json:"time"`
}

type AddSpawnRequest struct {
	Location physical.Location3D `json:"location"`
}

type JoinRequest struct {
	Player uuid.UUID `json:"player"`
}

type JoinResponse struct {
	Status     string              `json:"status"`
	Error      string              `json:"error,omitempty"`
	Challenger *ChallengerResponse `json:"challenger,omitempty"`
}

type TeamRequest struct {
	// Team is the team id. Empty removes the challenger from their team.
	Team string `json:"team"`
}

type SpectateRequest struct {
	Spectating bool `json:"spectating"`
}

var errChallengerNotFound = fmt.Errorf("challenger: %w", minigame.ErrNotFound)

func parsePlayerID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: player id %q", minigame.ErrInvalidArgument, s)
	}
	return id, nil
}

func arenaResponse(a *minigame.Arena) (ArenaResponse, error) {
	name, err := a.Name()
	if err != nil {
		return ArenaResponse{}, err
	}
	b, err := a.Boundary()
	if err != nil {
		return ArenaResponse{}, err
	}
	points, err := a.SpawnPoints()
	if err != nil {
		return ArenaResponse{}, err
	}
	resp := ArenaResponse{
		ID:       a.ID(),
		Name:     name,
		Boundary: BoundaryResponse{Lower: b.Lower(), Upper: b.Upper()},
		Spawns:   make([]SpawnResponse, 0, len(points)),
	}
	for _, p := range points {
		resp.Spawns = append(resp.Spawns, SpawnResponse{Index: p.Index, Location: p.Location})
	}

	r, ok, err := a.Round()
	if err != nil {
		return ArenaResponse{}, err
	}
	if ok {
		rr, err := roundResponse(r)
		if err != nil {
			return ArenaResponse{}, err
		}
		resp.Round = &rr
	}
	return resp, nil
}

func roundResponse(r *minigame.Round) (RoundResponse, error) {
	resp := RoundResponse{ID: r.ID()}
	var err error
	if resp.Stage, err = r.Stage(); err != nil {
		return RoundResponse{}, err
	}
	if resp.Stages, err = r.Stages(); err != nil {
		return RoundResponse{}, err
	}
	if resp.Time, err = r.Time(); err != nil {
		return RoundResponse{}, err
	}
	if resp.Remaining, err = r.RemainingTime(); err != nil {
		return RoundResponse{}, err
	}
	if resp.Ticking, err = r.Ticking(); err != nil {
		return RoundResponse{}, err
	}
	if resp.Ending, err = r.Ending(); err != nil {
		return RoundResponse{}, err
	}

	cs, err := r.Challengers()
	if err != nil {
		return RoundResponse{}, err
	}
	resp.Challengers = make([]ChallengerResponse, 0, len(cs))
	for _, c := range cs {
		cr, err := challengerResponse(c)
		if err != nil {
			return RoundResponse{}, err
		}
		resp.Challengers = append(resp.Challengers, cr)
	}

	teams, err := r.Teams()
	if err != nil {
		return RoundResponse{}, err
	}
	resp.Teams = make([]TeamResponse, 0, len(teams))
	for _, t := range teams {
		name, err := t.Name()
		if err != nil {
			return RoundResponse{}, err
		}
		members, err := t.Challengers()
		if err != nil {
			return RoundResponse{}, err
		}
		tr := TeamResponse{ID: t.ID(), Name: name, Members: make([]uuid.UUID, 0, len(members))}
		for _, m := range members {
			tr.Members = append(tr.Members, m.ID())
		}
		resp.Teams = append(resp.Teams, tr)
	}
	return resp, nil
}

func challengerResponse(c *minigame.Challenger) (ChallengerResponse, error) {
	name, err := c.Name()
	if err != nil {
		return ChallengerResponse{}, err
	}
	spectating, err := c.Spectating()
	if err != nil {
		return ChallengerResponse{}, err
	}
	resp := ChallengerResponse{ID: c.ID(), Name: name, Spectating: spectating}
	t, ok, err := c.Team()
	if err != nil {
		return ChallengerResponse{}, err
	}
	if ok {
		resp.Team = t.ID()
	}
	return resp, nil
}
