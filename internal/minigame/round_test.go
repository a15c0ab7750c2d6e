package minigame_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/minigames/internal/confignode"
	"github.com/playperu/minigames/internal/events"
	"github.com/playperu/minigames/internal/lifecycle"
	"github.com/playperu/minigames/internal/minigame"
	"github.com/playperu/minigames/internal/physical"
)

func TestRoundScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.arena(t, "arena1")

	marked := physical.Cell{World: "w", X: 1, Y: 0, Z: 1}
	require.NoError(t, f.world.Write(ctx, marked, stone))

	r, err := a.CreateRound(ctx, stages(t, "prep:10,live:60")...)
	require.NoError(t, err)
	assert.True(t, a.HasActiveRound())
	require.NoError(t, f.world.Write(ctx, marked, tnt))

	for range 10 {
		require.NoError(t, r.Tick(ctx))
	}
	s, err := r.Stage()
	require.NoError(t, err)
	assert.Equal(t, "live", s.ID)
	tm, err := r.Time()
	require.NoError(t, err)
	assert.Zero(t, tm)

	p1 := f.player("p1")
	res, err := r.AddChallenger(ctx, p1)
	require.NoError(t, err)
	require.Equal(t, minigame.JoinSuccess, res.Status())
	loc, err := f.world.Location(ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, center, loc)

	var ended *minigame.RoundEnd
	events.On(f.mg.Bus(), func(_ context.Context, e *minigame.RoundEnd) { ended = e })

	require.NoError(t, r.End(ctx, minigame.WithRollback(true)))

	loc, err = f.world.Location(ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, outside, loc)
	assert.Equal(t, stone, f.world.Cells()[marked])
	assert.True(t, r.Orphaned())
	assert.False(t, a.HasActiveRound())
	require.NotNil(t, ended)
	assert.False(t, ended.Natural)
	assert.Equal(t, "live", ended.FinalStage.ID)
	assert.Equal(t, 1, ended.Challengers)

	assert.Equal(t, []string{
		minigame.KindRoundStart,
		minigame.KindStageChange,
		minigame.KindChallengerJoin,
		minigame.KindTimerStop,
		minigame.KindChallengerLeave,
		minigame.KindArenaRollback,
		minigame.KindRoundEnd,
	}, f.events.Kinds())
}

func TestOneRoundPerArena(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.arena(t, "a")
	r, err := a.CreateRound(ctx)
	require.NoError(t, err)

	_, err = a.CreateRound(ctx)
	assert.ErrorIs(t, err, minigame.ErrInvalidState)

	got, ok, err := a.Round()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, r, got)
}

func TestCreateRoundRejectsBadStages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.arena(t, "a")
	_, err := a.CreateRound(ctx, lifecycle.Stage{ID: "x"}, lifecycle.Stage{ID: "x"})
	assert.ErrorIs(t, err, minigame.ErrInvalidArgument)
	assert.False(t, a.HasActiveRound())
}

func TestNextStageUntilLast(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.arena(t, "a").CreateRound(ctx, stages(t, "a:5,b:5,c")...)
	require.NoError(t, err)
	require.NoError(t, r.SetTime(ctx, 3))

	for _, want := range []string{"b", "c"} {
		require.NoError(t, r.NextLifecycleStage(ctx))
		s, err := r.Stage()
		require.NoError(t, err)
		assert.Equal(t, want, s.ID)
		tm, err := r.Time()
		require.NoError(t, err)
		assert.Zero(t, tm)
	}

	err = r.NextLifecycleStage(ctx)
	assert.ErrorIs(t, err, minigame.ErrInvalidState)
	_, ok, err := r.NextStage()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetLifecycleStageKeepsTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.arena(t, "a").CreateRound(ctx, stages(t, "a:50,b:50,c:50")...)
	require.NoError(t, err)
	require.NoError(t, r.SetTime(ctx, 7))

	require.NoError(t, r.SetLifecycleStage(ctx, "c"))
	s, err := r.Stage()
	require.NoError(t, err)
	assert.Equal(t, "c", s.ID)
	tm, err := r.Time()
	require.NoError(t, err)
	assert.EqualValues(t, 7, tm)
	rem, err := r.RemainingTime()
	require.NoError(t, err)
	assert.EqualValues(t, 43, rem)

	assert.ErrorIs(t, r.SetLifecycleStage(ctx, "zzz"), minigame.ErrInvalidArgument)
	assert.ErrorIs(t, r.SetTime(ctx, -1), minigame.ErrInvalidArgument)
}

func TestStageChangeVeto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.arena(t, "a").CreateRound(ctx, stages(t, "a:2,b")...)
	require.NoError(t, err)

	veto := true
	events.On(f.mg.Bus(), func(_ context.Context, e *minigame.StageChange) {
		e.SetCancelled(veto)
	})

	assert.ErrorIs(t, r.NextLifecycleStage(ctx), minigame.ErrCancelled)
	assert.ErrorIs(t, r.SetLifecycleStage(ctx, "b"), minigame.ErrCancelled)

	require.NoError(t, r.Tick(ctx))
	require.NoError(t, r.Tick(ctx))
	require.NoError(t, r.Tick(ctx))
	s, err := r.Stage()
	require.NoError(t, err)
	assert.Equal(t, "a", s.ID, "vetoed expiry stays put")

	veto = false
	require.NoError(t, r.Tick(ctx))
	s, err = r.Stage()
	require.NoError(t, err)
	assert.Equal(t, "b", s.ID)
}

func TestTimerControls(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.arena(t, "a").CreateRound(ctx, stages(t, "a:10,b")...)
	require.NoError(t, err)

	ticking, err := r.Ticking()
	require.NoError(t, err)
	assert.True(t, ticking)

	require.NoError(t, r.StopTimer(ctx))
	require.NoError(t, r.Tick(ctx))
	tm, err := r.Time()
	require.NoError(t, err)
	assert.Zero(t, tm)

	require.NoError(t, r.StartTimer())
	require.NoError(t, r.Tick(ctx))
	require.NoError(t, r.NextLifecycleStage(ctx))
	rem, err := r.RemainingTime()
	require.NoError(t, err)
	assert.EqualValues(t, -1, rem)

	require.NoError(t, r.ResetTimer(ctx))
	s, err := r.Stage()
	require.NoError(t, err)
	assert.Equal(t, "a", s.ID)
	ticking, err = r.Ticking()
	require.NoError(t, err)
	assert.False(t, ticking)
}

func TestFinalStageExpiryStopsWhenConfigured(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	minigame.SetConfig(f.mg, confignode.EndOnFinalStageExpiry, false)
	r, err := f.arena(t, "a").CreateRound(ctx, stages(t, "only:1")...)
	require.NoError(t, err)

	require.NoError(t, r.Tick(ctx))
	assert.False(t, r.Orphaned())
	ticking, err := r.Ticking()
	require.NoError(t, err)
	assert.False(t, ticking)
}

func TestNaturalEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.arena(t, "a")
	r, err := a.CreateRound(ctx, stages(t, "only:2")...)
	require.NoError(t, err)
	c := f.join(t, r, "p1")

	var natural bool
	events.On(f.mg.Bus(), func(_ context.Context, e *minigame.RoundEnd) { natural = e.Natural })

	require.NoError(t, r.Tick(ctx))
	require.NoError(t, r.Tick(ctx))
	f.mg.Wait()

	<-r.Done()
	assert.True(t, r.Orphaned())
	assert.True(t, c.Orphaned())
	assert.True(t, natural)
	assert.False(t, a.HasActiveRound())
}

func TestEndTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.arena(t, "a").CreateRound(ctx)
	require.NoError(t, err)

	require.NoError(t, r.End(ctx))
	err = r.End(ctx)
	assert.ErrorIs(t, err, minigame.ErrOrphaned)
}

func TestOperationsAfterEndAreStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.arena(t, "a").CreateRound(ctx)
	require.NoError(t, err)
	require.NoError(t, r.End(ctx))

	_, err = r.Time()
	var stale *minigame.StaleError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, "round", stale.Kind)
	assert.Equal(t, r.ID().String(), stale.ID)

	assert.ErrorIs(t, r.Tick(ctx), minigame.ErrOrphaned)
	assert.ErrorIs(t, r.NextLifecycleStage(ctx), minigame.ErrOrphaned)
	_, err = r.AddChallenger(ctx, f.player("late"))
	assert.ErrorIs(t, err, minigame.ErrOrphaned)
	_, err = r.CreateTeam("red")
	assert.ErrorIs(t, err, minigame.ErrOrphaned)
}

func TestEndWithoutRollbackKeepsChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.arena(t, "a")
	cell := physical.Cell{World: "w", X: 2, Y: 2, Z: 2}
	r, err := a.CreateRound(ctx)
	require.NoError(t, err)
	require.NoError(t, f.world.Write(ctx, cell, tnt))

	require.NoError(t, r.End(ctx, minigame.WithRollback(false)))
	assert.Equal(t, tnt, f.world.Cells()[cell])
	assert.ErrorIs(t, a.Rollback(ctx), minigame.ErrInvalidState, "journal was discarded")
}

func TestRollbackFailureThenRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.arena(t, "a")
	cell := physical.Cell{World: "w", X: 3, Y: 3, Z: 3}
	r, err := a.CreateRound(ctx)
	require.NoError(t, err)
	c := f.join(t, r, "p1")
	require.NoError(t, f.world.Write(ctx, cell, tnt))

	boom := errors.New("disk on fire")
	f.world.FailWrites(boom)
	err = r.End(ctx)
	require.ErrorIs(t, err, boom)

	assert.False(t, r.Orphaned(), "round stays until the arena is restored")
	assert.True(t, c.Orphaned())
	ending, err := r.Ending()
	require.NoError(t, err)
	assert.True(t, ending)
	assert.ErrorIs(t, r.End(ctx), minigame.ErrInvalidState)
	_, err = r.AddChallenger(ctx, f.player("p2"))
	assert.ErrorIs(t, err, minigame.ErrRoundEnding)

	f.world.FailWrites(nil)
	require.NoError(t, a.Rollback(ctx))
	assert.True(t, r.Orphaned())
	assert.False(t, a.HasActiveRound())
	_, ok := f.world.Cells()[cell]
	assert.False(t, ok)
}

func TestRollbackDuringLiveRound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.arena(t, "a")
	_, err := a.CreateRound(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, a.Rollback(ctx), minigame.ErrInvalidState)
}

func TestMarkForRollbackOutsideRound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.arena(t, "a")
	loc := physical.In("w", 4.5, 1, 4.5)
	require.NoError(t, f.world.Write(ctx, loc.Cell(), stone))

	assert.ErrorIs(t, a.Rollback(ctx), minigame.ErrInvalidState)
	assert.ErrorIs(t, a.MarkForRollback(ctx, outside), minigame.ErrInvalidArgument)

	require.NoError(t, a.MarkForRollback(ctx, loc))
	require.NoError(t, f.world.Write(ctx, loc.Cell(), tnt))
	require.NoError(t, a.MarkForRollback(ctx, loc), "second mark keeps the first capture")

	require.NoError(t, a.Rollback(ctx))
	assert.Equal(t, stone, f.world.Cells()[loc.Cell()])
	assert.ErrorIs(t, a.Rollback(ctx), minigame.ErrInvalidState)
}

func TestBroadcast(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.arena(t, "a").CreateRound(ctx)
	require.NoError(t, err)
	c1 := f.join(t, r, "p1")
	c2 := f.join(t, r, "p2")

	require.NoError(t, r.Broadcast(ctx, "go!"))
	assert.Equal(t, []string{"go!"}, f.world.Messages(c1.ID()))
	assert.Equal(t, []string{"go!"}, f.world.Messages(c2.ID()))

	f.world.Disconnect(c2.ID())
	err = r.Broadcast(ctx, "again")
	assert.Error(t, err)
	assert.Equal(t, []string{"go!", "again"}, f.world.Messages(c1.ID()))
}

func TestValidateRoundConfig(t *testing.T) {
	require.NoError(t, minigame.ValidateRoundConfig(nil))
	require.NoError(t, minigame.ValidateRoundConfig(map[string]string{"max_players": "4"}))

	for _, cfg := range []map[string]string{
		{"max_players": "0"},
		{"no_such_node": "1"},
		{"rollback_capture_limit": "10"},
	} {
		assert.ErrorIs(t, minigame.ValidateRoundConfig(cfg), minigame.ErrInvalidArgument, "%v", cfg)
	}
}
