package physical

import (
	"errors"
	"fmt"
	"math"
)

// ErrWorldMismatch is returned when two corners name different worlds.
var ErrWorldMismatch = errors.New("corners are in different worlds")

// Boundary is an immutable axis-aligned box. Lower is componentwise less
// than or equal to Upper.
type Boundary struct {
	lower Location3D
	upper Location3D
}

// NewBoundary normalizes two opposite corners into a Boundary. If both
// corners name a world they must name the same one; the boundary takes
// whichever world is present.
func NewBoundary(a, b Location3D) (Boundary, error) {
	if a.HasWorld() && b.HasWorld() && a.World != b.World {
		return Boundary{}, fmt.Errorf("%w: %q and %q", ErrWorldMismatch, a.World, b.World)
	}
	world := a.World
	if world == "" {
		world = b.World
	}
	return Boundary{
		lower: Location3D{World: world, X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)},
		upper: Location3D{World: world, X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)},
	}, nil
}

// MustBoundary is NewBoundary for literals known to be valid.
func MustBoundary(a, b Location3D) Boundary {
	bd, err := NewBoundary(a, b)
	if err != nil {
		panic(err)
	}
	return bd
}

// Lower returns the minimum corner.
func (b Boundary) Lower() Location3D { return b.lower }

// Upper returns the maximum corner.
func (b Boundary) Upper() Location3D { return b.upper }

// World returns the boundary's world, or "" if it has none.
func (b Boundary) World() string { return b.lower.World }

// Contains reports whether loc lies inside the boundary, inclusive on every
// face. A location naming a different world is never contained.
func (b Boundary) Contains(loc Location3D) bool {
	if b.World() != "" && loc.HasWorld() && loc.World != b.World() {
		return false
	}
	return loc.X >= b.lower.X && loc.X <= b.upper.X &&
		loc.Y >= b.lower.Y && loc.Y <= b.upper.Y &&
		loc.Z >= b.lower.Z && loc.Z <= b.upper.Z
}

// ContainsCell reports whether the cell holds any point of the boundary.
// These are exactly the cells Location3D.Cell yields for contained points.
func (b Boundary) ContainsCell(c Cell) bool {
	if b.World() != "" && c.World != "" && c.World != b.World() {
		return false
	}
	x0, x1 := cellRange(b.lower.X, b.upper.X)
	y0, y1 := cellRange(b.lower.Y, b.upper.Y)
	z0, z1 := cellRange(b.lower.Z, b.upper.Z)
	return c.X >= x0 && c.X <= x1 && c.Y >= y0 && c.Y <= y1 && c.Z >= z0 && c.Z <= z1
}

// CellCount returns the number of integer cells holding part of the
// boundary.
func (b Boundary) CellCount() int64 {
	x0, x1 := cellRange(b.lower.X, b.upper.X)
	y0, y1 := cellRange(b.lower.Y, b.upper.Y)
	z0, z1 := cellRange(b.lower.Z, b.upper.Z)
	return (x1 - x0 + 1) * (y1 - y0 + 1) * (z1 - z0 + 1)
}

// Cells calls fn for every integer cell holding part of the boundary, in
// x-major then y then z order. Iteration stops when fn returns
// false.
func (b Boundary) Cells(fn func(Cell) bool) {
	x0, x1 := cellRange(b.lower.X, b.upper.X)
	y0, y1 := cellRange(b.lower.Y, b.upper.Y)
	z0, z1 := cellRange(b.lower.Z, b.upper.Z)
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			for z := z0; z <= z1; z++ {
				if !fn(Cell{World: b.World(), X: x, Y: y, Z: z}) {
					return
				}
			}
		}
	}
}

func (b Boundary) String() string {
	return fmt.Sprintf("[%s..%s]", b.lower, b.upper)
}

// cellRange floors both ends, matching Location3D.Cell.
func cellRange(lo, hi float64) (int64, int64) {
	return int64(math.Floor(lo)), int64(math.Floor(hi))
}
