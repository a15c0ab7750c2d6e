// Package metrics turns engine events into Prometheus series.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/playperu/minigames/internal/events"
	"github.com/playperu/minigames/internal/minigame"
)

// Collectors holds the engine's series.
type Collectors struct {
	RoundsActive prometheus.Gauge
	RoundsEnded  *prometheus.CounterVec
	Joins        *prometheus.CounterVec
	StageChanges *prometheus.CounterVec
	Rollbacks    *prometheus.CounterVec
	Challengers  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		RoundsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "minigame_rounds_active",
			Help: "Rounds currently live.",
		}),
		RoundsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minigame_rounds_ended_total",
			Help: "Rounds ended, by whether the end was natural.",
		}, []string{"natural"}),
		Joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minigame_joins_total",
			Help: "Join attempts by outcome.",
		}, []string{"status"}),
		StageChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minigame_stage_changes_total",
			Help: "Stage changes published, by whether the timer caused them.",
		}, []string{"expired"}),
		Rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minigame_rollbacks_total",
			Help: "Arena restore attempts by result.",
		}, []string{"result"}),
		Challengers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "minigame_challengers",
			Help: "Players currently in a round.",
		}),
	}
	for _, col := range []prometheus.Collector{
		c.RoundsActive, c.RoundsEnded, c.Joins, c.StageChanges, c.Rollbacks, c.Challengers,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Listener returns a bus listener that updates the collectors.
func (c *Collectors) Listener() events.Listener {
	return func(_ context.Context, e events.Event) {
		switch e := e.(type) {
		case *minigame.RoundStart:
			c.RoundsActive.Inc()
		case *minigame.RoundEnd:
			c.RoundsActive.Dec()
			c.RoundsEnded.WithLabelValues(strconv.FormatBool(e.Natural)).Inc()
		case *minigame.ChallengerJoin:
			c.Joins.WithLabelValues(minigame.JoinSuccess.String()).Inc()
			c.Challengers.Inc()
		case *minigame.ChallengerJoinRejected:
			c.Joins.WithLabelValues(e.Result.Status().String()).Inc()
		case *minigame.ChallengerLeave:
			c.Challengers.Dec()
		case *minigame.StageChange:
			c.StageChanges.WithLabelValues(strconv.FormatBool(e.Expired)).Inc()
		case *minigame.ArenaRollback:
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			c.Rollbacks.WithLabelValues(result).Inc()
		}
	}
}

// Handler serves the series gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
