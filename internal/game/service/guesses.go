package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/perttula/whispden/internal/game/domain"
	"github.com/perttula/whispden/internal/game/storage"
)

// GuessResult reports the outcome of one guess attempt.
type GuessResult struct {
	// Correct reports whether the guess named the whisp, even when another
	// player's correct guess landed first.
	Correct bool
	// PointsEarned is the score awarded by this guess. Only the turn's
	// winning guess carries points.
	PointsEarned int
	// AlreadyAnswered marks a correct guess that lost the completion race.
	AlreadyAnswered bool
	// AttemptsRemaining is how many guesses the player has left this turn.
	AttemptsRemaining int
	// MaxAttemptsReached marks a player who is out of attempts.
	MaxAttemptsReached bool
	// GameCompleted is set when this guess won the final round.
	GameCompleted bool
	// GameWinnerID is the game winner, set only with GameCompleted.
	GameWinnerID string
}

// GuessService resolves guess attempts against a turn. The first correct
// guess completes the turn through the store's first-writer-wins primitive,
// awards the points, and advances the round.
type GuessService struct {
	store  storage.Store
	ledger *ScoreLedger
	rounds *RoundService
	clock  func() time.Time
	newID  func() string
}

// NewGuessService wires a guess service. clock and newID may be nil; they
// default to time.Now and random UUIDs.
func NewGuessService(store storage.Store, ledger *ScoreLedger, rounds *RoundService, clock func() time.Time, newID func() string) *GuessService {
	return &GuessService{store: store, ledger: ledger, rounds: rounds, clock: clock, newID: newIDFrom(newID)}
}

// SubmitGuess records one attempt against the named round's turn.
//
// Guesses against a completed turn fail with ErrTurnCompleted. A player at
// the attempt limit gets MaxAttemptsReached without a new row. Whether a
// correct guess wins is decided by the store's completion swap, never by
// reading state first, so concurrent correct guesses agree on one winner:
// the losers are recorded with zero points and AlreadyAnswered set.
func (g *GuessService) SubmitGuess(ctx context.Context, sessionID string, roundNumber int, playerID, guessText string) (GuessResult, error) {
	if g == nil || g.store == nil {
		return GuessResult{}, ErrStoreNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return GuessResult{}, ErrSessionIDRequired
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return GuessResult{}, ErrPlayerIDRequired
	}
	guessText = strings.TrimSpace(guessText)
	if guessText == "" {
		return GuessResult{}, ErrGuessTextRequired
	}
	if roundNumber < 1 {
		return GuessResult{}, ErrRoundNumberInvalid
	}

	turn, err := g.store.GetTurnByRound(ctx, sessionID, roundNumber)
	if err != nil {
		if isNotFound(err) {
			return GuessResult{}, ErrTurnNotFound
		}
		return GuessResult{}, fmt.Errorf("get turn: %w", err)
	}
	if turn.CompletedAt != nil {
		return GuessResult{}, ErrTurnCompleted
	}

	player, err := g.store.GetPlayer(ctx, playerID)
	if err != nil {
		if isNotFound(err) {
			return GuessResult{}, ErrPlayerNotFound
		}
		return GuessResult{}, fmt.Errorf("get player: %w", err)
	}
	if player.SessionID != sessionID {
		return GuessResult{}, ErrPlayerNotFound
	}
	if player.ID == turn.StorytellerID {
		return GuessResult{}, ErrStorytellerCannotGuess
	}

	used, err := g.store.CountGuesses(ctx, turn.ID, playerID)
	if err != nil {
		return GuessResult{}, fmt.Errorf("count guesses: %w", err)
	}
	if used >= domain.MaxGuessAttempts {
		return GuessResult{MaxAttemptsReached: true}, nil
	}

	now := nowFrom(g.clock)
	correct := domain.GuessMatches(turn.Whisp, guessText)
	result := GuessResult{Correct: correct}

	points := 0
	if correct {
		won, err := g.store.CompleteTurnWithWinner(ctx, turn.ID, playerID, now)
		if err != nil {
			return GuessResult{}, fmt.Errorf("complete turn: %w", err)
		}
		if won {
			points = domain.WinningPoints
		} else {
			result.AlreadyAnswered = true
		}
	}

	guess := storage.GuessRecord{
		ID:           g.newID(),
		TurnID:       turn.ID,
		PlayerID:     playerID,
		GuessedText:  guessText,
		PointsEarned: points,
		CreatedAt:    now,
	}
	if err := g.store.CreateGuess(ctx, guess); err != nil {
		return GuessResult{}, fmt.Errorf("record guess: %w", err)
	}

	result.PointsEarned = points
	result.AttemptsRemaining = domain.MaxGuessAttempts - used - 1
	if result.AttemptsRemaining <= 0 {
		result.AttemptsRemaining = 0
		if !correct {
			result.MaxAttemptsReached = true
		}
	}

	if points > 0 {
		if g.ledger != nil {
			if _, err := g.ledger.Increment(ctx, playerID, points); err != nil {
				return result, fmt.Errorf("award points: %w", err)
			}
		}
		if g.rounds != nil {
			adv, err := g.rounds.Advance(ctx, sessionID)
			if err != nil {
				return result, fmt.Errorf("advance round: %w", err)
			}
			result.GameCompleted = adv.Completed
			result.GameWinnerID = adv.WinnerID
		}
	}
	return result, nil
}
