package api

import (
	"net/http"

	"github.com/perttula/whispden/internal/game/service"
)

// ThemeHandler serves the theme inventory.
type ThemeHandler struct {
	lobby *service.LobbyService
}

// NewThemeHandler creates a new theme handler.
func NewThemeHandler(lobby *service.LobbyService) *ThemeHandler {
	return &ThemeHandler{lobby: lobby}
}

// List handles GET /api/themes
func (h *ThemeHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.lobby.ListThemes(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"themes": newThemeViews(summaries)})
}
