// Package service implements the whispden game rules on top of the storage
// contracts.
//
// Services are small structs wired with a store, a clock, and an ID
// generator so tests can pin time and identifiers. The split follows the
// lifecycle of a game:
//
//   - LobbyService creates sessions and admits players while waiting.
//   - TurnService starts the game and drives one turn through its phases.
//   - GuessService resolves guesses, scoring the first correct one.
//   - RoundService advances rounds, handles departures, and ends sessions.
//
// Race-prone resolutions (the first correct guess, concurrent completions)
// lean on the store's atomic primitives rather than fetch-then-store
// sequences, so two racing callers always agree on a single winner.
package service
