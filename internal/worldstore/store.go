// Package worldstore provides world and player capabilities for the engine:
// a SQLite-backed Store for the server binary and an in-memory Memory for
// tests and embedding.
package worldstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/playperu/minigames/internal/physical"
)

// Empty is the state of a cell that has never been written.
var Empty = physical.CellState{Kind: "empty"}

var ErrNotFound = errors.New("not found")

// Player is a row of the players table.
type Player struct {
	ID       uuid.UUID           `json:"id"`
	Name     string              `json:"name"`
	Location physical.Location3D `json:"location"`
	Online   bool                `json:"online"`
}

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) Read(ctx context.Context, c physical.Cell) (physical.CellState, error) {
	var st physical.CellState
	err := s.db.QueryRowContext(ctx, `
		SELECT kind, data FROM world_cells
		WHERE world = ? AND x = ? AND y = ? AND z = ?
	`, c.World, c.X, c.Y, c.Z).Scan(&st.Kind, &st.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Empty, nil
	}
	if err != nil {
		return physical.CellState{}, fmt.Errorf("reading cell %s: %w", c, err)
	}
	return st, nil
}

func (s *Store) Write(ctx context.Context, c physical.Cell, st physical.CellState) error {
	if err := writeCell(ctx, s.db, c, st); err != nil {
		return fmt.Errorf("writing cell %s: %w", c, err)
	}
	return nil
}

// WriteBatch applies every write in one transaction.
func (s *Store) WriteBatch(ctx context.Context, writes []physical.CellWrite) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning batch: %w", err)
	}
	defer tx.Rollback()

	for _, w := range writes {
		if err := writeCell(ctx, tx, w.Cell, w.State); err != nil {
			return fmt.Errorf("writing cell %s: %w", w.Cell, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// ReadRegion returns the state of every integer cell in b.
func (s *Store) ReadRegion(ctx context.Context, b physical.Boundary) (map[physical.Cell]physical.CellState, error) {
	out := make(map[physical.Cell]physical.CellState, b.CellCount())
	b.Cells(func(c physical.Cell) bool {
		out[c] = Empty
		return true
	})

	lo, hi := b.Lower().Cell(), b.Upper().Cell()
	rows, err := s.db.QueryContext(ctx, `
		SELECT x, y, z, kind, data FROM world_cells
		WHERE world = ? AND x BETWEEN ? AND ? AND y BETWEEN ? AND ? AND z BETWEEN ? AND ?
	`, b.World(), lo.X, hi.X, lo.Y, hi.Y, lo.Z, hi.Z)
	if err != nil {
		return nil, fmt.Errorf("reading region %s: %w", b, err)
	}
	defer rows.Close()

	for rows.Next() {
		c := physical.Cell{World: b.World()}
		var st physical.CellState
		if err := rows.Scan(&c.X, &c.Y, &c.Z, &st.Kind, &st.Data); err != nil {
			return nil, fmt.Errorf("scanning cell: %w", err)
		}
		if _, ok := out[c]; ok {
			out[c] = st
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading region %s: %w", b, err)
	}
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeCell(ctx context.Context, db execer, c physical.Cell, st physical.CellState) error {
	if st.Kind == Empty.Kind && len(st.Data) == 0 {
		_, err := db.ExecContext(ctx, `
			DELETE FROM world_cells WHERE world = ? AND x = ? AND y = ? AND z = ?
		`, c.World, c.X, c.Y, c.Z)
		return err
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO world_cells (world, x, y, z, kind, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (world, x, y, z) DO UPDATE SET kind = excluded.kind, data = excluded.data
	`, c.World, c.X, c.Y, c.Z, st.Kind, st.Data)
	return err
}
