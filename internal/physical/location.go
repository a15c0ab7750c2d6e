// Package physical holds the value types the engine uses to talk about
// places in a host world: points, axis-aligned boundaries, and the integer
// cells a rollback journal captures.
package physical

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidSerial is returned by ParseLocation for malformed input.
var ErrInvalidSerial = errors.New("invalid location serial")

const serialSeparator = ";"

// Location3D is a point in space, optionally bound to a named world.
// The zero value is the origin of no particular world.
type Location3D struct {
	World string  `json:"world,omitempty" yaml:"world,omitempty"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Z     float64 `json:"z" yaml:"z"`
}

// At returns a world-less location.
func At(x, y, z float64) Location3D {
	return Location3D{X: x, Y: y, Z: z}
}

// In returns a location in the named world.
func In(world string, x, y, z float64) Location3D {
	return Location3D{World: world, X: x, Y: y, Z: z}
}

// HasWorld reports whether the location names a world.
func (l Location3D) HasWorld() bool {
	return l.World != ""
}

// Cell returns the integer cell containing the location.
func (l Location3D) Cell() Cell {
	return Cell{
		World: l.World,
		X:     int64(math.Floor(l.X)),
		Y:     int64(math.Floor(l.Y)),
		Z:     int64(math.Floor(l.Z)),
	}
}

// DistanceSquared returns the squared euclidean distance between l and o,
// ignoring worlds.
func (l Location3D) DistanceSquared(o Location3D) float64 {
	dx, dy, dz := l.X-o.X, l.Y-o.Y, l.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// Distance returns the euclidean distance between l and o, ignoring worlds.
func (l Location3D) Distance(o Location3D) float64 {
	return math.Sqrt(l.DistanceSquared(o))
}

// String returns the serial form, e.g. ("lobby";1,5;64,0;-3,0).
func (l Location3D) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	if l.HasWorld() {
		sb.WriteString(strconv.Quote(l.World))
		sb.WriteString(serialSeparator)
	}
	sb.WriteString(commaDecimal(l.X))
	sb.WriteString(serialSeparator)
	sb.WriteString(commaDecimal(l.Y))
	sb.WriteString(serialSeparator)
	sb.WriteString(commaDecimal(l.Z))
	sb.WriteByte(')')
	return sb.String()
}

// ParseLocation parses the form produced by Location3D.String.
func ParseLocation(serial string) (Location3D, error) {
	if !strings.HasPrefix(serial, "(") || !strings.HasSuffix(serial, ")") {
		return Location3D{}, fmt.Errorf("%w: %q", ErrInvalidSerial, serial)
	}
	parts := strings.Split(serial[1:len(serial)-1], serialSeparator)

	var loc Location3D
	switch len(parts) {
	case 3:
	case 4:
		world, err := strconv.Unquote(parts[0])
		if err != nil || world == "" {
			return Location3D{}, fmt.Errorf("%w: bad world in %q", ErrInvalidSerial, serial)
		}
		loc.World = world
		parts = parts[1:]
	default:
		return Location3D{}, fmt.Errorf("%w: %q", ErrInvalidSerial, serial)
	}

	coords := [3]*float64{&loc.X, &loc.Y, &loc.Z}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.ReplaceAll(p, ",", "."), 64)
		if err != nil {
			return Location3D{}, fmt.Errorf("%w: %q: %v", ErrInvalidSerial, serial, err)
		}
		*coords[i] = v
	}
	return loc, nil
}

func commaDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return strings.Replace(s, ".", ",", 1)
}
