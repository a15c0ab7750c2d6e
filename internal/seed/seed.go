// Package seed loads arena definitions from YAML.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/playperu/minigames/internal/lifecycle"
	"github.com/playperu/minigames/internal/minigame"
	"github.com/playperu/minigames/internal/physical"
	"github.com/playperu/minigames/internal/worldstore"
)

// File is the top level of an arenas file.
type File struct {
	// Config holds minigame-level overrides by node name.
	Config  map[string]string `yaml:"config"`
	Arenas  []Arena           `yaml:"arenas"`
	Players []Player          `yaml:"players"`
}

type Arena struct {
	ID           string                `yaml:"id"`
	Name         string                `yaml:"name"`
	Boundary     Boundary              `yaml:"boundary"`
	Spawns       []physical.Location3D `yaml:"spawns"`
	StatusSigns  []physical.Location3D `yaml:"status_signs"`
	ListingSigns []ListingSign         `yaml:"listing_signs"`
	// Round, when set, starts a round as soon as the arena is created.
	Round *Round `yaml:"round"`
}

type Boundary struct {
	Lower physical.Location3D `yaml:"lower"`
	Upper physical.Location3D `yaml:"upper"`
}

type ListingSign struct {
	Location physical.Location3D `yaml:"location"`
	Index    int                 `yaml:"index"`
}

type Round struct {
	Stages string            `yaml:"stages"`
	Config map[string]string `yaml:"config"`
}

type Player struct {
	ID       string              `yaml:"id"`
	Name     string              `yaml:"name"`
	Location physical.Location3D `yaml:"location"`
	Offline  bool                `yaml:"offline"`
}

// PlayerSink stores seeded players.
type PlayerSink interface {
	UpsertPlayer(ctx context.Context, p worldstore.Player) error
}

// Load reads and parses path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading arenas file: %w", err)
	}
	return Parse(data)
}

// Parse decodes an arenas file. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decoding arenas file: %w", err)
	}
	return &f, nil
}

// Apply creates everything f describes. Players are written to sink when it
// is not nil.
func Apply(ctx context.Context, mg *minigame.Minigame, f *File, sink PlayerSink) error {
	for name, text := range f.Config {
		if err := mg.SetConfigText(name, text); err != nil {
			return fmt.Errorf("setting %s: %w", name, err)
		}
	}

	if sink != nil {
		for _, p := range f.Players {
			id, err := uuid.Parse(p.ID)
			if err != nil {
				return fmt.Errorf("player %q: %w", p.Name, err)
			}
			err = sink.UpsertPlayer(ctx, worldstore.Player{ID: id, Name: p.Name, Location: p.Location, Online: !p.Offline})
			if err != nil {
				return err
			}
		}
	}

	for _, def := range f.Arenas {
		if err := applyArena(ctx, mg, def); err != nil {
			return fmt.Errorf("arena %q: %w", def.ID, err)
		}
	}
	return nil
}

func applyArena(ctx context.Context, mg *minigame.Minigame, def Arena) error {
	if len(def.Spawns) == 0 {
		return fmt.Errorf("%w: no spawn points", minigame.ErrInvalidArgument)
	}
	b, err := physical.NewBoundary(def.Boundary.Lower, def.Boundary.Upper)
	if err != nil {
		return fmt.Errorf("%w: %w", minigame.ErrInvalidArgument, err)
	}
	a, err := mg.CreateArena(def.ID, def.Name, def.Spawns[0], b)
	if err != nil {
		return err
	}
	for _, p := range def.Spawns[1:] {
		if _, err := a.AddSpawnPoint(p); err != nil {
			return err
		}
	}
	for _, loc := range def.StatusSigns {
		if _, err := a.RegisterStatusSign(loc); err != nil {
			return err
		}
	}
	for _, s := range def.ListingSigns {
		if _, err := a.RegisterListingSign(s.Location, s.Index); err != nil {
			return err
		}
	}

	if def.Round == nil {
		return nil
	}
	var stages []lifecycle.Stage
	if def.Round.Stages != "" {
		if stages, err = lifecycle.ParseStages(def.Round.Stages); err != nil {
			return fmt.Errorf("%w: %w", minigame.ErrInvalidArgument, err)
		}
	}
	r, err := a.CreateRound(ctx, stages...)
	if err != nil {
		return err
	}
	for name, text := range def.Round.Config {
		if err := r.SetConfigText(name, text); err != nil {
			return fmt.Errorf("setting %s: %w", name, err)
		}
	}
	return nil
}
