package minigame_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/minigames/internal/events"
	"github.com/playperu/minigames/internal/minigame"
	"github.com/playperu/minigames/internal/physical"
	"github.com/playperu/minigames/internal/worldstore/worldstoretest"
)

// gatedWorld holds batch writes to one world until released.
type gatedWorld struct {
	*worldstoretest.Memory
	world   string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedWorld(world string) *gatedWorld {
	return &gatedWorld{
		Memory:  worldstoretest.NewMemory(),
		world:   world,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedWorld) WriteBatch(ctx context.Context, writes []physical.CellWrite) error {
	if len(writes) > 0 && writes[0].Cell.World == g.world {
		g.once.Do(func() { close(g.entered) })
		<-g.release
	}
	return g.Memory.WriteBatch(ctx, writes)
}

func within(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s did not return within %s", what, d)
	}
}

func TestSlowRestoreDoesNotStallOtherRounds(t *testing.T) {
	ctx := context.Background()
	world := newGatedWorld("w")
	var releaseOnce sync.Once
	release := func() { releaseOnce.Do(func() { close(world.release) }) }
	t.Cleanup(release)

	mg, err := minigame.New("test", minigame.Options{World: world, Players: world.Memory})
	require.NoError(t, err)
	a1, err := mg.CreateArena("a1", "", center, box)
	require.NoError(t, err)
	other := physical.MustBoundary(physical.In("v", 0, 0, 0), physical.In("v", 2, 2, 2))
	a2, err := mg.CreateArena("a2", "", physical.In("v", 1, 0, 1), other)
	require.NoError(t, err)

	r1, err := a1.CreateRound(ctx, stages(t, "only:1")...)
	require.NoError(t, err)
	r2, err := a2.CreateRound(ctx, stages(t, "long:100")...)
	require.NoError(t, err)

	mg.Tick(ctx)
	select {
	case <-world.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("natural end never reached the restore")
	}

	within(t, 2*time.Second, "tick during a restore", func() { mg.Tick(ctx) })
	tm, err := r2.Time()
	require.NoError(t, err)
	assert.EqualValues(t, 2, tm)

	within(t, 2*time.Second, "operations on the ending round", func() {
		ending, err := r1.Ending()
		assert.NoError(t, err)
		assert.True(t, ending)
		assert.ErrorIs(t, r1.End(ctx), minigame.ErrInvalidState)
		_, err = r1.CreateTeam("late")
		assert.ErrorIs(t, err, minigame.ErrRoundEnding)
		late := uuid.New()
		world.Connect(late, "late", outside)
		_, err = r1.AddChallenger(ctx, late)
		assert.ErrorIs(t, err, minigame.ErrRoundEnding)
		_, err = a1.CreateRound(ctx)
		assert.ErrorIs(t, err, minigame.ErrInvalidState)
		assert.ErrorIs(t, a1.Rollback(ctx), minigame.ErrInvalidState)
	})

	release()
	mg.Wait()
	<-r1.Done()
	assert.False(t, a1.HasActiveRound())
	assert.True(t, a2.HasActiveRound())
}

func TestLeaveListenerCannotRejoinTeam(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.arena(t, "a").CreateRound(ctx)
	require.NoError(t, err)
	c := f.join(t, r, "p1")
	red, err := r.CreateTeam("red")
	require.NoError(t, err)
	require.NoError(t, c.SetTeam(red))

	var teamErr, spectateErr error
	events.On(f.mg.Bus(), func(_ context.Context, e *minigame.ChallengerLeave) {
		teamErr = e.Challenger.SetTeam(red)
		spectateErr = e.Challenger.SetSpectating(true)
	})
	within(t, 2*time.Second, "removal", func() {
		assert.NoError(t, r.RemoveChallenger(ctx, c))
	})

	assert.ErrorIs(t, teamErr, minigame.ErrInvalidState)
	assert.ErrorIs(t, spectateErr, minigame.ErrInvalidState)
	assert.True(t, c.Orphaned())
	members, err := red.Challengers()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestTeamChangesRaceRemoval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.arena(t, "a").CreateRound(ctx)
	require.NoError(t, err)
	red, err := r.CreateTeam("red")
	require.NoError(t, err)
	blue, err := r.CreateTeam("blue")
	require.NoError(t, err)

	var cs []*minigame.Challenger
	for _, name := range []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"} {
		cs = append(cs, f.join(t, r, name))
	}

	var wg sync.WaitGroup
	for _, c := range cs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if c.SetTeam(red) != nil || c.SetSpectating(true) != nil || c.SetTeam(blue) != nil {
					return
				}
			}
		}()
	}
	for _, c := range cs {
		require.NoError(t, r.RemoveChallenger(ctx, c))
	}
	wg.Wait()

	for _, team := range []*minigame.Team{red, blue} {
		members, err := team.Challengers()
		require.NoError(t, err)
		assert.Empty(t, members, "team %s", team.ID())
	}
	n, err := r.SpectatorCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestParallelJoinsAdmitPlayerOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r1, err := f.arena(t, "a").CreateRound(ctx)
	require.NoError(t, err)
	r2, err := f.arena(t, "b").CreateRound(ctx)
	require.NoError(t, err)
	player := f.player("p1")

	const attempts = 16
	start := make(chan struct{})
	statuses := make(chan minigame.JoinStatus, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		r := r1
		if i%2 == 1 {
			r = r2
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := r.AddChallenger(ctx, player)
			if assert.NoError(t, err) {
				statuses <- res.Status()
			}
		}()
	}
	close(start)
	wg.Wait()
	close(statuses)

	counts := map[minigame.JoinStatus]int{}
	for s := range statuses {
		counts[s]++
	}
	assert.Equal(t, 1, counts[minigame.JoinSuccess])
	assert.Equal(t, attempts-1, counts[minigame.JoinAlreadyInRound])

	c, err := f.mg.Challenger(player)
	require.NoError(t, err)
	assert.False(t, c.Orphaned())
}
