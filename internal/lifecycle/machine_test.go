package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/minigames/internal/lifecycle"
)

var prepLive = []lifecycle.Stage{{ID: "prep", Duration: 10}, {ID: "live", Duration: 60}}

func TestNewMachineRejectsBadSequences(t *testing.T) {
	tests := []struct {
		name    string
		stages  []lifecycle.Stage
		wantErr error
	}{
		{name: "empty", stages: nil, wantErr: lifecycle.ErrNoStages},
		{name: "duplicate", stages: []lifecycle.Stage{{ID: "a"}, {ID: "a"}}, wantErr: lifecycle.ErrDuplicateStage},
		{name: "blank id", stages: []lifecycle.Stage{{ID: ""}}, wantErr: lifecycle.ErrInvalidStage},
		{name: "negative", stages: []lifecycle.Stage{{ID: "a", Duration: -1}}, wantErr: lifecycle.ErrInvalidStage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lifecycle.NewMachine(tt.stages)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAdvanceReachesLastStage(t *testing.T) {
	stages := []lifecycle.Stage{{ID: "s0"}, {ID: "s1"}, {ID: "s2"}, {ID: "s3"}}
	m, err := lifecycle.NewMachine(stages)
	require.NoError(t, err)

	for i := 1; i < len(stages); i++ {
		tr, err := m.Advance()
		require.NoError(t, err)
		assert.Equal(t, stages[i-1], tr.From)
		assert.Equal(t, stages[i], tr.To)
	}
	assert.Equal(t, "s3", m.Stage().ID)

	_, err = m.Advance()
	assert.ErrorIs(t, err, lifecycle.ErrLastStage)
	assert.Equal(t, "s3", m.Stage().ID)
}

func TestAdvanceResetsTimerButJumpDoesNot(t *testing.T) {
	m, err := lifecycle.NewMachine(prepLive)
	require.NoError(t, err)

	_, err = m.SetTime(7)
	require.NoError(t, err)
	_, err = m.Jump("live")
	require.NoError(t, err)
	assert.Equal(t, int64(7), m.Time())

	_, err = m.Jump("prep")
	require.NoError(t, err)
	_, err = m.Advance()
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Time())

	_, err = m.Jump("overtime")
	assert.ErrorIs(t, err, lifecycle.ErrUnknownStage)
}

func TestTickExpiry(t *testing.T) {
	m, err := lifecycle.NewMachine(prepLive)
	require.NoError(t, err)

	assert.False(t, m.Tick().Ticked, "stopped machine must not tick")

	m.Start()
	for i := 1; i < 10; i++ {
		res := m.Tick()
		require.True(t, res.Ticked)
		require.False(t, res.Expired, "tick %d", i)
	}
	res := m.Tick()
	assert.Equal(t, lifecycle.TickResult{Ticked: true, OldTime: 9, NewTime: 10, Expired: true}, res)

	_, err = m.Advance()
	require.NoError(t, err)
	_, err = m.SetTime(59)
	require.NoError(t, err)
	res = m.Tick()
	assert.True(t, res.Expired)
	assert.True(t, res.Final)
}

func TestRemaining(t *testing.T) {
	m, err := lifecycle.NewMachine([]lifecycle.Stage{{ID: "warmup", Duration: 5}, {ID: "open"}})
	require.NoError(t, err)

	_, _ = m.SetTime(2)
	assert.Equal(t, int64(3), m.Remaining())
	_, _ = m.SetTime(9)
	assert.Equal(t, int64(0), m.Remaining(), "overrun clamps to zero, not -1")

	_, _ = m.Advance()
	assert.Equal(t, int64(-1), m.Remaining())
}

func TestReset(t *testing.T) {
	m, err := lifecycle.NewMachine(prepLive)
	require.NoError(t, err)
	m.Start()
	_, _ = m.Advance()
	_, _ = m.SetTime(4)

	assert.True(t, m.Reset())
	assert.Equal(t, "prep", m.Stage().ID)
	assert.Equal(t, int64(0), m.Time())
	assert.False(t, m.Ticking())
}

func TestSetStagesKeepsCurrentID(t *testing.T) {
	m, err := lifecycle.NewMachine(prepLive)
	require.NoError(t, err)
	_, _ = m.Advance()
	_, _ = m.SetTime(3)

	require.NoError(t, m.SetStages([]lifecycle.Stage{{ID: "intro"}, {ID: "live", Duration: 30}}))
	assert.Equal(t, 1, m.Index())
	assert.Equal(t, int64(3), m.Time())

	require.NoError(t, m.SetStages([]lifecycle.Stage{{ID: "other"}}))
	assert.Equal(t, 0, m.Index())
	assert.Equal(t, int64(0), m.Time())
}

func TestParseStages(t *testing.T) {
	got, err := lifecycle.ParseStages("lobby:30, play:120,results")
	require.NoError(t, err)
	assert.Equal(t, []lifecycle.Stage{{ID: "lobby", Duration: 30}, {ID: "play", Duration: 120}, {ID: "results"}}, got)
	assert.Equal(t, "lobby:30,play:120,results:0", lifecycle.FormatStages(got))

	_, err = lifecycle.ParseStages("a:x")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidStage)
}
