package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/playperu/minigames/internal/lifecycle"
	"github.com/playperu/minigames/internal/minigame"
)

func handleCreateRound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRoundRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var stages []lifecycle.Stage
		if req.Stages != "" {
			var err error
			if stages, err = lifecycle.ParseStages(req.Stages); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		if err := minigame.ValidateRoundConfig(req.Config); err != nil {
			writeEngineError(w, err)
			return
		}

		rd, err := arenaFrom(r).CreateRound(r.Context(), stages...)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		for name, text := range req.Config {
			if err := rd.SetConfigText(name, text); err != nil {
				// Do not leave a round behind that the caller was told failed.
				if endErr := rd.End(r.Context(), minigame.WithRollback(true)); endErr != nil {
					err = errors.Join(err, endErr)
				}
				writeEngineError(w, err)
				return
			}
		}

		resp, err := roundResponse(rd)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func handleGetRound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := roundResponse(roundFrom(r))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleEndRound ends the round. ?rollback=false skips restoring the arena.
func handleEndRound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts []minigame.EndOption
		if s := r.URL.Query().Get("rollback"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid rollback flag")
				return
			}
			opts = append(opts, minigame.WithRollback(v))
		}
		if err := roundFrom(r).End(r.Context(), opts...); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// roundAction runs fn against the request's round and replies with the
// round's new state.
func roundAction(fn func(r *http.Request, rd *minigame.Round) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rd := roundFrom(r)
		if err := fn(r, rd); err != nil {
			writeEngineError(w, err)
			return
		}
		resp, err := roundResponse(rd)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleNextStage() http.HandlerFunc {
	return roundAction(func(r *http.Request, rd *minigame.Round) error {
		return rd.NextLifecycleStage(r.Context())
	})
}

func handleSetStage() http.HandlerFunc {
	return roundAction(func(r *http.Request, rd *minigame.Round) error {
		var req SetStageRequest
		if err := readJSON(r, &req); err != nil {
			return badBody(err)
		}
		return rd.SetLifecycleStage(r.Context(), req.ID)
	})
}

func handleSetTime() http.HandlerFunc {
	return roundAction(func(r *http.Request, rd *minigame.Round) error {
		var req SetTimeRequest
		if err := readJSON(r, &req); err != nil {
			return badBody(err)
		}
		return rd.SetTime(r.Context(), req.Time)
	})
}

func handleStartTimer() http.HandlerFunc {
	return roundAction(func(_ *http.Request, rd *minigame.Round) error {
		return rd.StartTimer()
	})
}

func handleStopTimer() http.HandlerFunc {
	return roundAction(func(r *http.Request, rd *minigame.Round) error {
		return rd.StopTimer(r.Context())
	})
}

func badBody(err error) error {
	return fmt.Errorf("%w: invalid request body: %v", minigame.ErrInvalidArgument, err)
}
