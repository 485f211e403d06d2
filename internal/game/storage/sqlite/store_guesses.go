package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/perttula/whispden/internal/game/storage"
)

// CreateGuess inserts one guess attempt row.
func (s *Store) CreateGuess(ctx context.Context, record storage.GuessRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	guessID := strings.TrimSpace(record.ID)
	turnID := strings.TrimSpace(record.TurnID)
	playerID := strings.TrimSpace(record.PlayerID)
	if guessID == "" {
		return fmt.Errorf("guess id is required")
	}
	if turnID == "" {
		return fmt.Errorf("turn id is required")
	}
	if playerID == "" {
		return fmt.Errorf("player id is required")
	}
	createdAt := record.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO guesses (id, turn_id, player_id, guessed_text, points_earned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		guessID,
		turnID,
		playerID,
		record.GuessedText,
		record.PointsEarned,
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create guess: %w", err)
	}
	return nil
}

// CountGuesses returns how many attempts a player has made on a turn.
func (s *Store) CountGuesses(ctx context.Context, turnID, playerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	turnID = strings.TrimSpace(turnID)
	if turnID == "" {
		return 0, fmt.Errorf("turn id is required")
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return 0, fmt.Errorf("player id is required")
	}

	var count int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM guesses WHERE turn_id = ? AND player_id = ?`,
		turnID,
		playerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count guesses: %w", err)
	}
	return count, nil
}

// ListGuessesByTurn returns all guesses of a turn ordered by creation time.
func (s *Store) ListGuessesByTurn(ctx context.Context, turnID string) ([]storage.GuessRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	turnID = strings.TrimSpace(turnID)
	if turnID == "" {
		return nil, fmt.Errorf("turn id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, turn_id, player_id, guessed_text, points_earned, created_at
		   FROM guesses
		  WHERE turn_id = ?
		  ORDER BY created_at ASC, id ASC`,
		turnID,
	)
	if err != nil {
		return nil, fmt.Errorf("list guesses: %w", err)
	}
	defer rows.Close()

	var records []storage.GuessRecord
	for rows.Next() {
		var (
			record    storage.GuessRecord
			createdAt int64
		)
		if err := rows.Scan(
			&record.ID,
			&record.TurnID,
			&record.PlayerID,
			&record.GuessedText,
			&record.PointsEarned,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("list guesses: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list guesses: %w", err)
	}
	return records, nil
}
