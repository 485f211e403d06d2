package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/perttula/whispden/internal/game/storage"
)

// ScoreLedger awards points through the store's atomic score mutation.
type ScoreLedger struct {
	store storage.PlayerStore
}

// NewScoreLedger wires a ledger over the player store.
func NewScoreLedger(store storage.PlayerStore) *ScoreLedger {
	return &ScoreLedger{store: store}
}

// Increment adds points to a player's score and returns the new total. The
// addition happens inside the store, so concurrent awards never lose an
// update.
func (l *ScoreLedger) Increment(ctx context.Context, playerID string, points int) (int, error) {
	if l == nil || l.store == nil {
		return 0, ErrStoreNotConfigured
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return 0, ErrPlayerIDRequired
	}

	total, err := l.store.IncrementScore(ctx, playerID, points)
	if err != nil {
		if isNotFound(err) {
			return 0, ErrPlayerNotFound
		}
		return 0, fmt.Errorf("increment score: %w", err)
	}
	return total, nil
}
