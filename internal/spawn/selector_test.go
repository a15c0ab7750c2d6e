package spawn_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/minigames/internal/physical"
	"github.com/playperu/minigames/internal/spawn"
)

func points(locs ...physical.Location3D) []spawn.Point {
	ps := make([]spawn.Point, len(locs))
	for i, l := range locs {
		ps[i] = spawn.Point{Index: i, Location: l}
	}
	return ps
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestPickSequentialWraps(t *testing.T) {
	ps := points(physical.At(0, 0, 0), physical.At(1, 0, 0), physical.At(2, 0, 0))
	s := spawn.NewSelector(seeded())

	var got []int
	for range 5 {
		p, err := s.Pick(spawn.Sequential, ps, 1, nil)
		require.NoError(t, err)
		got = append(got, p.Index)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1}, got)
	assert.Equal(t, uint64(5), s.Cursor())
}

func TestPickShuffleVisitsEveryPointOncePerCycle(t *testing.T) {
	ps := points(physical.At(0, 0, 0), physical.At(1, 0, 0), physical.At(2, 0, 0), physical.At(3, 0, 0))
	s := spawn.NewSelector(seeded())

	seen := map[int]bool{}
	for range len(ps) {
		p, err := s.Pick(spawn.Shuffle, ps, 7, nil)
		require.NoError(t, err)
		seen[p.Index] = true
	}
	assert.Len(t, seen, len(ps))
}

func TestPickShuffleRebuildsOnVersionChange(t *testing.T) {
	ps := points(physical.At(0, 0, 0), physical.At(1, 0, 0))
	s := spawn.NewSelector(seeded())

	_, err := s.Pick(spawn.Shuffle, ps, 1, nil)
	require.NoError(t, err)

	ps = append(ps, spawn.Point{Index: 5, Location: physical.At(5, 0, 0)})
	seen := map[int]bool{}
	for range 3 {
		p, err := s.Pick(spawn.Shuffle, ps, 2, nil)
		require.NoError(t, err)
		seen[p.Index] = true
	}
	assert.Len(t, seen, 3)
}

func TestPickRandomStaysInRange(t *testing.T) {
	ps := points(physical.At(0, 0, 0), physical.At(1, 0, 0))
	s := spawn.NewSelector(seeded())
	for range 20 {
		p, err := s.Pick(spawn.Random, ps, 1, nil)
		require.NoError(t, err)
		assert.Contains(t, []int{0, 1}, p.Index)
	}
	assert.Equal(t, uint64(0), s.Cursor())
}

func TestPickProximityHigh(t *testing.T) {
	ps := points(physical.At(0, 0, 0), physical.At(10, 0, 0), physical.At(5, 0, 0))
	s := spawn.NewSelector(seeded())

	tests := []struct {
		name     string
		occupied []physical.Location3D
		want     int
	}{
		{name: "nobody present", occupied: nil, want: 0},
		{name: "player near origin", occupied: []physical.Location3D{physical.At(1, 0, 0)}, want: 1},
		{name: "player near far end", occupied: []physical.Location3D{physical.At(9, 0, 0)}, want: 0},
		{name: "tie goes to lowest index", occupied: []physical.Location3D{physical.At(5, 0, 0)}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.Pick(spawn.ProximityHigh, ps, 1, tt.occupied)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Index)
		})
	}
}

func TestPickEmpty(t *testing.T) {
	_, err := spawn.NewSelector(nil).Pick(spawn.Sequential, nil, 0, nil)
	assert.ErrorIs(t, err, spawn.ErrNoSpawnPoints)
}

func TestParseMode(t *testing.T) {
	for _, m := range []spawn.Mode{spawn.Sequential, spawn.Random, spawn.Shuffle, spawn.ProximityHigh} {
		got, err := spawn.ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := spawn.ParseMode("Proximity-High")
	require.NoError(t, err)
	assert.Equal(t, spawn.ProximityHigh, got)

	_, err = spawn.ParseMode("nearest")
	assert.ErrorIs(t, err, spawn.ErrUnknownMode)
}
