package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/minigames/internal/minigame"
)

type ctxKey int

const (
	ctxKeyArena ctxKey = iota
	ctxKeyRound
)

// arenaMiddleware resolves {arenaID} and stores the arena in the context.
func arenaMiddleware(mg *minigame.Minigame) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, err := mg.Arena(chi.URLParam(r, "arenaID"))
			if err != nil {
				writeError(w, http.StatusNotFound, "arena not found")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyArena, a)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// roundMiddleware requires the arena to have a live round.
func roundMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rd, ok, err := arenaFrom(r).Round()
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "arena has no round")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyRound, rd)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func arenaFrom(r *http.Request) *minigame.Arena {
	return r.Context().Value(ctxKeyArena).(*minigame.Arena)
}

func roundFrom(r *http.Request) *minigame.Round {
	return r.Context().Value(ctxKeyRound).(*minigame.Round)
}

// challengerFrom resolves {playerID} within the request's round.
func challengerFrom(r *http.Request) (*minigame.Challenger, error) {
	id, err := parsePlayerID(chi.URLParam(r, "playerID"))
	if err != nil {
		return nil, err
	}
	c, err := roundFrom(r).Challenger(id)
	if errors.Is(err, minigame.ErrNotFound) {
		return nil, errChallengerNotFound
	}
	return c, err
}
