package physical

import (
	"context"
	"errors"
	"fmt"
)

// Cell is the address of one block in a host world.
type Cell struct {
	World string `json:"world,omitempty"`
	X     int64  `json:"x"`
	Y     int64  `json:"y"`
	Z     int64  `json:"z"`
}

// Location returns the cell's origin point.
func (c Cell) Location() Location3D {
	return Location3D{World: c.World, X: float64(c.X), Y: float64(c.Y), Z: float64(c.Z)}
}

func (c Cell) String() string {
	if c.World == "" {
		return fmt.Sprintf("%d,%d,%d", c.X, c.Y, c.Z)
	}
	return fmt.Sprintf("%s:%d,%d,%d", c.World, c.X, c.Y, c.Z)
}

// CellState is the opaque content of a cell as reported by the host. The
// engine never interprets it; it only captures and writes it back.
type CellState struct {
	Kind string `json:"kind"`
	Data []byte `json:"data,omitempty"`
}

// Equal reports whether two states are identical.
func (s CellState) Equal(o CellState) bool {
	return s.Kind == o.Kind && string(s.Data) == string(o.Data)
}

// WorldAccessor reads and writes cells of the host world.
type WorldAccessor interface {
	Read(ctx context.Context, c Cell) (CellState, error)
	Write(ctx context.Context, c Cell, s CellState) error
}

// CellWrite is one pending write in a batch.
type CellWrite struct {
	Cell  Cell
	State CellState
}

// BatchWriter is implemented by accessors that can apply many writes as one
// unit. Either every write lands or none does.
type BatchWriter interface {
	WriteBatch(ctx context.Context, writes []CellWrite) error
}

// RegionReader is implemented by accessors that can read a whole boundary in
// one call. The returned map holds an entry for every cell in the boundary.
type RegionReader interface {
	ReadRegion(ctx context.Context, b Boundary) (map[Cell]CellState, error)
}

// ErrPlayerOffline is returned by host player capabilities when the player
// is not connected.
var ErrPlayerOffline = errors.New("player offline")
