package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/minigames/internal/minigame"
	"github.com/playperu/minigames/internal/worldstore"
)

// HistoryReader lists finished rounds.
type HistoryReader interface {
	RoundHistory(ctx context.Context, arenaID string, limit int) ([]worldstore.RoundRecord, error)
}

func handleListArenas(mg *minigame.Minigame) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		arenas := mg.Arenas()
		resp := make([]ArenaResponse, 0, len(arenas))
		for _, a := range arenas {
			ar, err := arenaResponse(a)
			if err != nil {
				// Removed while listing.
				continue
			}
			resp = append(resp, ar)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetArena() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := arenaResponse(arenaFrom(r))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAddSpawn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddSpawnRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		idx, err := arenaFrom(r).AddSpawnPoint(req.Location)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, SpawnResponse{Index: idx, Location: req.Location})
	}
}

func handleRemoveSpawn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid spawn index")
			return
		}
		if err := arenaFrom(r).RemoveSpawnPoint(idx); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRollback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := arenaFrom(r).Rollback(r.Context()); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleHistory(history HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}
		records, err := history.RoundHistory(r.Context(), arenaFrom(r).ID(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if records == nil {
			records = []worldstore.RoundRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}
