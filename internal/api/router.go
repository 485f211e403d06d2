package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/perttula/whispden/internal/game/service"
	"github.com/perttula/whispden/internal/relay"
)

// NewRouter creates the chi router with all routes and middleware.
//
// The websocket and health routes mount outside the middleware chain: the
// logging wrapper does not implement http.Hijacker, which the websocket
// upgrade needs.
func NewRouter(
	lobby *service.LobbyService,
	turns *service.TurnService,
	guesses *service.GuessService,
	rounds *service.RoundService,
	hub *relay.Hub,
) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", Health)
	if hub != nil {
		r.Handle("/ws", hub.Handler())
	}

	sessionH := NewSessionHandler(lobby, turns, rounds)
	turnH := NewTurnHandler(turns)
	guessH := NewGuessHandler(guesses)
	themeH := NewThemeHandler(lobby)

	r.Route("/api", func(r chi.Router) {
		r.Use(CORS)
		r.Use(RequestLogger)
		r.Use(Recovery)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionH.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/state", sessionH.State)
				r.Post("/start", sessionH.Start)
				r.Post("/leave", sessionH.Leave)
				r.Post("/kick", sessionH.Kick)
				r.Post("/end", sessionH.End)
				r.Post("/turns", turnH.Start)
				r.Post("/turns/current/secret", turnH.SelectSecret)
				r.Post("/turns/current/story", turnH.SubmitStory)
				r.Post("/guesses", guessH.Submit)
			})
		})

		r.Post("/lobbies/{code}/join", sessionH.Join)
		r.Get("/themes", themeH.List)
	})

	return r
}
