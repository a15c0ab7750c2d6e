package worldstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/playperu/minigames/internal/physical"
)

// UpsertPlayer creates or updates a player row.
func (s *Store) UpsertPlayer(ctx context.Context, p Player) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, name, world, x, y, z, online)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, world = excluded.world,
			x = excluded.x, y = excluded.y, z = excluded.z,
			online = excluded.online
	`, p.ID.String(), p.Name, p.Location.World, p.Location.X, p.Location.Y, p.Location.Z, p.Online)
	if err != nil {
		return fmt.Errorf("upserting player %s: %w", p.ID, err)
	}
	return nil
}

// SetOnline flips a player's connection flag.
func (s *Store) SetOnline(ctx context.Context, id uuid.UUID, online bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE players SET online = ? WHERE id = ?`, online, id.String())
	if err != nil {
		return fmt.Errorf("updating player %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Player returns a player row regardless of connection state.
func (s *Store) Player(ctx context.Context, id uuid.UUID) (Player, error) {
	p := Player{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, world, x, y, z, online FROM players WHERE id = ?
	`, id.String()).Scan(&p.Name, &p.Location.World, &p.Location.X, &p.Location.Y, &p.Location.Z, &p.Online)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, ErrNotFound
	}
	if err != nil {
		return Player{}, fmt.Errorf("reading player %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) onlinePlayer(ctx context.Context, id uuid.UUID) (Player, error) {
	p, err := s.Player(ctx, id)
	if errors.Is(err, ErrNotFound) || (err == nil && !p.Online) {
		return Player{}, fmt.Errorf("%w: %s", physical.ErrPlayerOffline, id)
	}
	return p, err
}

func (s *Store) Name(ctx context.Context, id uuid.UUID) (string, error) {
	p, err := s.onlinePlayer(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func (s *Store) Location(ctx context.Context, id uuid.UUID) (physical.Location3D, error) {
	p, err := s.onlinePlayer(ctx, id)
	if err != nil {
		return physical.Location3D{}, err
	}
	return p.Location, nil
}

func (s *Store) Teleport(ctx context.Context, id uuid.UUID, loc physical.Location3D) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE players SET world = ?, x = ?, y = ?, z = ? WHERE id = ? AND online = 1
	`, loc.World, loc.X, loc.Y, loc.Z, id.String())
	if err != nil {
		return fmt.Errorf("teleporting player %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", physical.ErrPlayerOffline, id)
	}
	return nil
}

// Send has no chat transport behind it; messages are logged.
func (s *Store) Send(ctx context.Context, id uuid.UUID, msg string) error {
	if _, err := s.onlinePlayer(ctx, id); err != nil {
		return err
	}
	s.logger.Info("player message", "player", id, "message", msg)
	return nil
}
