package domain

import (
	crand "crypto/rand"
	"fmt"
	"strings"
)

// SessionStatus identifies the session lifecycle label.
type SessionStatus string

const (
	SessionStatusUnspecified SessionStatus = ""
	SessionStatusWaiting     SessionStatus = "waiting"
	SessionStatusActive      SessionStatus = "active"
	SessionStatusCompleted   SessionStatus = "completed"
	SessionStatusExpired     SessionStatus = "expired"
)

// NormalizeSessionStatus parses a session status label into a canonical value.
func NormalizeSessionStatus(value string) (SessionStatus, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch SessionStatus(trimmed) {
	case SessionStatusWaiting, SessionStatusActive, SessionStatusCompleted, SessionStatusExpired:
		return SessionStatus(trimmed), true
	default:
		return SessionStatusUnspecified, false
	}
}

// CanTransition reports whether a session may move from one status to another.
// Transitions are one-directional: waiting begins the lifecycle and
// completed/expired end it. A waiting lobby may complete directly when the
// host ends it before the game starts.
func CanTransition(from, to SessionStatus) bool {
	switch from {
	case SessionStatusWaiting:
		return to == SessionStatusActive || to == SessionStatusCompleted || to == SessionStatusExpired
	case SessionStatusActive:
		return to == SessionStatusCompleted || to == SessionStatusExpired
	default:
		return false
	}
}

// lobbyCodeAlphabet omits letters easily confused when a code is read aloud.
const lobbyCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// LobbyCodeLength is the number of characters in a join code.
const LobbyCodeLength = 6

// NewLobbyCode generates a random join code using rejection sampling so every
// alphabet character is equally likely.
func NewLobbyCode() (string, error) {
	const max = byte(255 - (256 % len(lobbyCodeAlphabet)))

	out := make([]byte, 0, LobbyCodeLength)
	buf := make([]byte, LobbyCodeLength*2)

	for len(out) < LobbyCodeLength {
		if _, err := crand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b <= max {
				out = append(out, lobbyCodeAlphabet[int(b)%len(lobbyCodeAlphabet)])
				if len(out) == LobbyCodeLength {
					return string(out), nil
				}
			}
		}
	}

	return string(out), nil
}
