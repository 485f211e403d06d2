package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/perttula/whispden/internal/game/service"
)

// SessionHandler handles session lifecycle requests.
type SessionHandler struct {
	lobby  *service.LobbyService
	turns  *service.TurnService
	rounds *service.RoundService
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(lobby *service.LobbyService, turns *service.TurnService, rounds *service.RoundService) *SessionHandler {
	return &SessionHandler{lobby: lobby, turns: turns, rounds: rounds}
}

// Create handles POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HostName    string `json:"hostName"`
		TotalRounds int    `json:"totalRounds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	session, host, err := h.lobby.CreateSession(r.Context(), req.HostName, req.TotalRounds)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session": newSessionView(session),
		"player":  newPlayerView(host),
	})
}

// Join handles POST /api/lobbies/{code}/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerName string `json:"playerName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	session, player, err := h.lobby.JoinSession(r.Context(), chi.URLParam(r, "code"), req.PlayerName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session": newSessionView(session),
		"player":  newPlayerView(player),
	})
}

// Start handles POST /api/sessions/{id}/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, err := h.turns.StartGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"session": newSessionView(session)})
}

// State handles GET /api/sessions/{id}/state
//
// The optional playerId query parameter identifies the viewer. Only the
// current storyteller's view carries the whisp in plain text.
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.lobby.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	viewerID := r.URL.Query().Get("playerId")
	writeJSON(w, http.StatusOK, newGameStateView(state, viewerID))
}

// Leave handles POST /api/sessions/{id}/leave
func (h *SessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	session, err := h.rounds.HandleDeparture(r.Context(), chi.URLParam(r, "id"), req.PlayerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"session": newSessionView(session)})
}

// Kick handles POST /api/sessions/{id}/kick
func (h *SessionHandler) Kick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HostID   string `json:"hostId"`
		PlayerID string `json:"playerId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	session, err := h.rounds.KickPlayer(r.Context(), chi.URLParam(r, "id"), req.HostID, req.PlayerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"session": newSessionView(session)})
}

// End handles POST /api/sessions/{id}/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HostID string `json:"hostId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	session, err := h.rounds.EndSession(r.Context(), chi.URLParam(r, "id"), req.HostID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"session": newSessionView(session)})
}
