// Package domain defines the core entities and rules of a whispden game.
//
// The model is centered around a few key concepts:
//
// # Session
//
// A Session is one lobby's game from creation to cleanup. It tracks the
// lifecycle status, the round counter, and which player currently holds the
// storyteller role. Sessions are joined by lobby code while waiting and
// become active when the host starts the game.
//
// # Turn
//
// Each round has exactly one Turn. The storyteller is assigned a secret
// whisp drawn from the selected theme plus an ordered set of five icons the
// guessers see. A turn moves through phases from theme selection to
// completion and completes when a guesser names the whisp.
//
// # Guess
//
// Guesses are compared against the whisp after normalization. Each player
// has three attempts per turn and only the first correct guess scores.
package domain
