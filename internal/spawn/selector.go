package spawn

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/playperu/minigames/internal/physical"
)

// ErrNoSpawnPoints is returned when there is nothing to choose from.
var ErrNoSpawnPoints = errors.New("no spawn points")

// Point is a spawn point and its stable index within its arena.
type Point struct {
	Index    int                 `json:"index"`
	Location physical.Location3D `json:"location"`
}

// Selector keeps the per-round state needed by the cursor-based modes. It is
// safe for concurrent use.
type Selector struct {
	mu      sync.Mutex
	rng     *rand.Rand
	cursor  uint64
	order   []int
	version uint64
}

// NewSelector returns a selector drawing randomness from rng. A nil rng uses
// a randomly seeded source.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{rng: rng}
}

// Cursor returns how many cursor-based picks have been made. It only moves
// forward.
func (s *Selector) Cursor() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Pick chooses a point. points must be ordered by index. version identifies
// the spawn list; a change of version rebuilds the shuffle order. occupied
// holds the positions counted by ProximityHigh.
func (s *Selector) Pick(mode Mode, points []Point, version uint64, occupied []physical.Location3D) (Point, error) {
	if len(points) == 0 {
		return Point{}, ErrNoSpawnPoints
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch mode {
	case Random:
		return points[s.rng.IntN(len(points))], nil
	case Shuffle:
		if s.order == nil || s.version != version || len(s.order) != len(points) {
			s.order = s.rng.Perm(len(points))
			s.version = version
		}
		p := points[s.order[s.cursor%uint64(len(points))]]
		s.cursor++
		return p, nil
	case ProximityHigh:
		return farthest(points, occupied), nil
	default:
		p := points[s.cursor%uint64(len(points))]
		s.cursor++
		return p, nil
	}
}

// farthest returns the point with the highest mean distance to occupied.
// Ties, and the case of nothing occupied, go to the lowest index.
func farthest(points []Point, occupied []physical.Location3D) Point {
	if len(occupied) == 0 {
		return points[0]
	}
	best, bestScore := points[0], -1.0
	for _, p := range points {
		var sum float64
		for _, o := range occupied {
			sum += p.Location.Distance(o)
		}
		if score := sum / float64(len(occupied)); score > bestScore {
			best, bestScore = p, score
		}
	}
	return best
}
