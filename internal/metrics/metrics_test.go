package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/minigames/internal/confignode"
	"github.com/playperu/minigames/internal/metrics"
	"github.com/playperu/minigames/internal/minigame"
	"github.com/playperu/minigames/internal/physical"
	"github.com/playperu/minigames/internal/worldstore/worldstoretest"
)

func TestCollectorsFollowRounds(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	col, err := metrics.New(reg)
	require.NoError(t, err)

	world := worldstoretest.NewMemory()
	mg, err := minigame.New("mg", minigame.Options{World: world, Players: world})
	require.NoError(t, err)
	mg.Bus().Subscribe(col.Listener())
	minigame.SetConfig(mg, confignode.MaxPlayers, 1)

	box := physical.MustBoundary(physical.In("w", 0, 0, 0), physical.In("w", 2, 2, 2))
	a, err := mg.CreateArena("a", "", physical.In("w", 1, 0, 1), box)
	require.NoError(t, err)
	r, err := a.CreateRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(col.RoundsActive))

	for _, name := range []string{"p1", "p2"} {
		id := uuid.New()
		world.Connect(id, name, physical.In("w", 9, 9, 9))
		_, err := r.AddChallenger(ctx, id)
		require.NoError(t, err)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(col.Joins.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(col.Joins.WithLabelValues("round_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(col.Challengers))

	require.NoError(t, r.End(ctx))
	assert.Zero(t, testutil.ToFloat64(col.RoundsActive))
	assert.Zero(t, testutil.ToFloat64(col.Challengers))
	assert.Equal(t, 1.0, testutil.ToFloat64(col.RoundsEnded.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(col.Rollbacks.WithLabelValues("ok")))

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "minigame_rounds_ended_total"))
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)
	_, err = metrics.New(reg)
	assert.Error(t, err)
}
