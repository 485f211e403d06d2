package service

import "errors"

var (
	// ErrStoreNotConfigured indicates a service was built without a store.
	ErrStoreNotConfigured = errors.New("store is not configured")
	// ErrStrategyNotConfigured indicates a turn service was built without a
	// selection strategy.
	ErrStrategyNotConfigured = errors.New("selection strategy is not configured")

	// ErrSessionIDRequired indicates a missing session identifier.
	ErrSessionIDRequired = errors.New("session id is required")
	// ErrPlayerIDRequired indicates a missing player identifier.
	ErrPlayerIDRequired = errors.New("player id is required")
	// ErrPlayerNameRequired indicates a missing player display name.
	ErrPlayerNameRequired = errors.New("player name is required")
	// ErrLobbyCodeRequired indicates a missing join code.
	ErrLobbyCodeRequired = errors.New("lobby code is required")
	// ErrThemeIDRequired indicates a missing theme identifier.
	ErrThemeIDRequired = errors.New("theme id is required")
	// ErrElementIDRequired indicates a missing element identifier.
	ErrElementIDRequired = errors.New("element id is required")
	// ErrGuessTextRequired indicates an empty guess.
	ErrGuessTextRequired = errors.New("guess text is required")
	// ErrRecordingRefRequired indicates a story submission without a
	// recording reference.
	ErrRecordingRefRequired = errors.New("recording reference is required")
	// ErrRoundNumberInvalid indicates a round number outside 1..total.
	ErrRoundNumberInvalid = errors.New("round number is invalid")

	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPlayerNotFound indicates the player does not exist or belongs to a
	// different session.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrTurnNotFound indicates the session has no turn for the round.
	ErrTurnNotFound = errors.New("turn not found")
	// ErrThemeNotFound indicates the theme does not exist.
	ErrThemeNotFound = errors.New("theme not found")
	// ErrElementNotFound indicates the element does not exist.
	ErrElementNotFound = errors.New("element not found")
	// ErrNoElementsForTheme indicates the theme has no element eligible to
	// serve as the whisp.
	ErrNoElementsForTheme = errors.New("theme has no eligible elements")

	// ErrSessionNotReady indicates a start request against a session that is
	// not a waiting lobby with at least one player.
	ErrSessionNotReady = errors.New("session is not ready to start")
	// ErrSessionNotJoinable indicates a join request against a session that
	// already started or ended.
	ErrSessionNotJoinable = errors.New("session is not joinable")
	// ErrInvalidStatus indicates an operation that requires an active
	// session hit one in another state.
	ErrInvalidStatus = errors.New("session status does not allow this")
	// ErrTurnCompleted indicates a mutation against an already completed
	// turn.
	ErrTurnCompleted = errors.New("turn is already completed")
	// ErrStorytellerCannotGuess indicates the storyteller tried to guess
	// their own whisp.
	ErrStorytellerCannotGuess = errors.New("storyteller cannot guess their own turn")
	// ErrHostCannotLeave indicates the host tried to leave their session.
	// Hosts end the session instead.
	ErrHostCannotLeave = errors.New("host cannot leave the session")
	// ErrNotHost indicates a host-only operation from a non-host player.
	ErrNotHost = errors.New("only the host may do this")
	// ErrWhispGeneratorUnavailable indicates the generated-whisp strategy
	// was selected without a generator wired in.
	ErrWhispGeneratorUnavailable = errors.New("whisp generator is not available")
)
