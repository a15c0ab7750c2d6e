package server

import (
	"net/http"

	"github.com/playperu/minigames/internal/minigame"
)

// handleJoin admits a player. Refused joins answer 409 with the join status.
func handleJoin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := roundFrom(r).AddChallenger(r.Context(), req.Player)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		resp := JoinResponse{Status: res.Status().String()}
		if !res.OK() {
			if cause := res.Err(); cause != nil {
				resp.Error = cause.Error()
			}
			status := http.StatusConflict
			if res.Status() == minigame.JoinInternalError {
				status = http.StatusInternalServerError
			}
			writeJSON(w, status, resp)
			return
		}

		c, err := res.Challenger()
		if err != nil {
			writeEngineError(w, err)
			return
		}
		cr, err := challengerResponse(c)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		resp.Challenger = &cr
		writeJSON(w, http.StatusCreated, resp)
	}
}

func handleLeave() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := challengerFrom(r)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if err := roundFrom(r).RemoveChallenger(r.Context(), c); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// challengerAction runs fn against {playerID} and replies with the
// challenger's new state.
func challengerAction(fn func(r *http.Request, c *minigame.Challenger) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := challengerFrom(r)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if err := fn(r, c); err != nil {
			writeEngineError(w, err)
			return
		}
		resp, err := challengerResponse(c)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleSetTeam() http.HandlerFunc {
	return challengerAction(func(r *http.Request, c *minigame.Challenger) error {
		var req TeamRequest
		if err := readJSON(r, &req); err != nil {
			return badBody(err)
		}
		if req.Team == "" {
			return c.SetTeam(nil)
		}
		t, err := roundFrom(r).GetOrCreateTeam(req.Team)
		if err != nil {
			return err
		}
		return c.SetTeam(t)
	})
}

func handleSpectate() http.HandlerFunc {
	return challengerAction(func(r *http.Request, c *minigame.Challenger) error {
		var req SpectateRequest
		if err := readJSON(r, &req); err != nil {
			return badBody(err)
		}
		return c.SetSpectating(req.Spectating)
	})
}
