package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/perttula/whispden/internal/game/service"
)

// GuessHandler handles guess submissions.
type GuessHandler struct {
	guesses *service.GuessService
}

// NewGuessHandler creates a new guess handler.
func NewGuessHandler(guesses *service.GuessService) *GuessHandler {
	return &GuessHandler{guesses: guesses}
}

// Submit handles POST /api/sessions/{id}/guesses
func (h *GuessHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoundNumber int    `json:"roundNumber"`
		PlayerID    string `json:"playerId"`
		GuessText   string `json:"guessText"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.guesses.SubmitGuess(r.Context(), chi.URLParam(r, "id"), req.RoundNumber, req.PlayerID, req.GuessText)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newGuessResultView(result))
}
