package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/playperu/minigames/internal/minigame"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// engineStatus maps an engine error to an HTTP status.
func engineStatus(err error) int {
	switch {
	case errors.Is(err, minigame.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, minigame.ErrOrphaned):
		return http.StatusGone
	case errors.Is(err, minigame.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, minigame.ErrInvalidState), errors.Is(err, minigame.ErrCancelled):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeEngineError(w http.ResponseWriter, err error) {
	status := engineStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, msg)
}
