package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/perttula/whispden/internal/game/service"
)

// TurnHandler handles the storyteller's turn progression requests.
// Responses render the storyteller's own view, whisp included, since the
// storyteller's client is the one driving these calls.
type TurnHandler struct {
	turns *service.TurnService
}

// NewTurnHandler creates a new turn handler.
func NewTurnHandler(turns *service.TurnService) *TurnHandler {
	return &TurnHandler{turns: turns}
}

// Start handles POST /api/sessions/{id}/turns
func (h *TurnHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ThemeID string `json:"themeId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	turn, err := h.turns.StartTurn(r.Context(), chi.URLParam(r, "id"), req.ThemeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"turn": newTurnView(turn, turn.StorytellerID)})
}

// SelectSecret handles POST /api/sessions/{id}/turns/current/secret
func (h *TurnHandler) SelectSecret(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ElementID string `json:"elementId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	turn, err := h.turns.SelectSecretElement(r.Context(), chi.URLParam(r, "id"), req.ElementID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"turn": newTurnView(turn, turn.StorytellerID)})
}

// SubmitStory handles POST /api/sessions/{id}/turns/current/story
func (h *TurnHandler) SubmitStory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecordingRef string `json:"recordingRef"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	turn, err := h.turns.SubmitStory(r.Context(), chi.URLParam(r, "id"), req.RecordingRef)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"turn": newTurnView(turn, turn.StorytellerID)})
}
