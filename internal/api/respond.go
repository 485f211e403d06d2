package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/perttula/whispden/internal/game/service"
	"github.com/perttula/whispden/internal/game/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeServiceError maps service sentinels to HTTP statuses: missing
// records to 404, rejected input to 400, state conflicts to 409, and
// host-only violations to 403.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrPlayerNotFound),
		errors.Is(err, service.ErrTurnNotFound),
		errors.Is(err, service.ErrThemeNotFound),
		errors.Is(err, service.ErrElementNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotHost),
		errors.Is(err, service.ErrHostCannotLeave):
		return http.StatusForbidden
	case errors.Is(err, service.ErrSessionNotReady),
		errors.Is(err, service.ErrSessionNotJoinable),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrTurnCompleted),
		errors.Is(err, service.ErrStorytellerCannotGuess),
		errors.Is(err, service.ErrNoElementsForTheme):
		return http.StatusConflict
	case errors.Is(err, service.ErrSessionIDRequired),
		errors.Is(err, service.ErrPlayerIDRequired),
		errors.Is(err, service.ErrPlayerNameRequired),
		errors.Is(err, service.ErrLobbyCodeRequired),
		errors.Is(err, service.ErrThemeIDRequired),
		errors.Is(err, service.ErrElementIDRequired),
		errors.Is(err, service.ErrGuessTextRequired),
		errors.Is(err, service.ErrRecordingRefRequired),
		errors.Is(err, service.ErrRoundNumberInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
