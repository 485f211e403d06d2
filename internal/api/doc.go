// Package api exposes the game over HTTP JSON.
//
// Routes mount on a chi router: session lifecycle under /api/sessions,
// lobby joins under /api/lobbies, the theme inventory at /api/themes,
// liveness at /healthz, and the websocket relay at /ws. Handlers
// translate service sentinel errors to HTTP statuses and render storage
// records as client-facing JSON views; the whisp is obfuscated for
// everyone but the storyteller.
package api
