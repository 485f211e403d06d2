package domain

import "strings"

// TurnPhase identifies how far a turn has progressed.
type TurnPhase string

const (
	TurnPhaseUnspecified    TurnPhase = ""
	TurnPhaseSelectingTheme TurnPhase = "selecting_theme"
	TurnPhaseWhispAssigned  TurnPhase = "whisp_assigned"
	TurnPhaseRecording      TurnPhase = "recording"
	TurnPhaseSubmitted      TurnPhase = "submitted"
	TurnPhaseCompleted      TurnPhase = "completed"
)

// NormalizeTurnPhase parses a turn phase label into a canonical value.
func NormalizeTurnPhase(value string) (TurnPhase, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch TurnPhase(trimmed) {
	case TurnPhaseSelectingTheme, TurnPhaseWhispAssigned, TurnPhaseRecording,
		TurnPhaseSubmitted, TurnPhaseCompleted:
		return TurnPhase(trimmed), true
	default:
		return TurnPhaseUnspecified, false
	}
}

// IconSetSize is the number of icons shown to guessers each turn.
const IconSetSize = 5

// MaxCoreIcons caps how many icons are backfilled from core themes.
const MaxCoreIcons = 2

// WinningPoints is awarded to the first player to guess the whisp.
const WinningPoints = 10

// MaxGuessAttempts is the per-player attempt limit for one turn.
const MaxGuessAttempts = 3
