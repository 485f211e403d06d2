package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/perttula/whispden/internal/game/storage"
)

// CreatePlayer inserts one player row.
func (s *Store) CreatePlayer(ctx context.Context, record storage.PlayerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	playerID := strings.TrimSpace(record.ID)
	sessionID := strings.TrimSpace(record.SessionID)
	name := strings.TrimSpace(record.Name)
	if playerID == "" {
		return fmt.Errorf("player id is required")
	}
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if name == "" {
		return fmt.Errorf("player name is required")
	}
	if record.TurnOrder <= 0 {
		return fmt.Errorf("turn order must be greater than zero")
	}
	joinedAt := record.JoinedAt.UTC()
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO players (id, session_id, name, turn_order, score, joined_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		playerID,
		sessionID,
		name,
		record.TurnOrder,
		record.Score,
		toMillis(joinedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create player: %w", err)
	}
	return nil
}

// GetPlayer returns one player by ID.
func (s *Store) GetPlayer(ctx context.Context, playerID string) (storage.PlayerRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.PlayerRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.PlayerRecord{}, fmt.Errorf("storage is not configured")
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return storage.PlayerRecord{}, fmt.Errorf("player id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, session_id, name, turn_order, score, joined_at
		   FROM players
		  WHERE id = $1`,
		playerID,
	)
	record, err := scanPlayerRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.PlayerRecord{}, storage.ErrNotFound
		}
		return storage.PlayerRecord{}, fmt.Errorf("get player: %w", err)
	}
	return record, nil
}

// ListPlayersBySession returns all players of a session ordered by turn order.
func (s *Store) ListPlayersBySession(ctx context.Context, sessionID string) ([]storage.PlayerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, session_id, name, turn_order, score, joined_at
		   FROM players
		  WHERE session_id = $1
		  ORDER BY turn_order ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var records []storage.PlayerRecord
	for rows.Next() {
		record, err := scanPlayerRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list players: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return records, nil
}

// DeletePlayer removes one player row.
func (s *Store) DeletePlayer(ctx context.Context, playerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return fmt.Errorf("player id is required")
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete player rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ShiftTurnOrders moves every player above the removed slot down by one in a
// single statement.
func (s *Store) ShiftTurnOrders(ctx context.Context, sessionID string, removedOrder int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if removedOrder <= 0 {
		return fmt.Errorf("removed order must be greater than zero")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE players
		    SET turn_order = turn_order - 1
		  WHERE session_id = $1 AND turn_order > $2`,
		sessionID,
		removedOrder,
	)
	if err != nil {
		return fmt.Errorf("shift turn orders: %w", err)
	}
	return nil
}

// IncrementScore adds delta to a player's score in the database and returns
// the new total.
func (s *Store) IncrementScore(ctx context.Context, playerID string, delta int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return 0, fmt.Errorf("player id is required")
	}

	var total int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`UPDATE players SET score = score + $1 WHERE id = $2 RETURNING score`,
		delta,
		playerID,
	).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("increment score: %w", err)
	}
	return total, nil
}

func scanPlayerRow(scan func(dest ...any) error) (storage.PlayerRecord, error) {
	var (
		record   storage.PlayerRecord
		joinedAt int64
	)
	if err := scan(
		&record.ID,
		&record.SessionID,
		&record.Name,
		&record.TurnOrder,
		&record.Score,
		&joinedAt,
	); err != nil {
		return storage.PlayerRecord{}, err
	}
	record.JoinedAt = fromMillis(joinedAt)
	return record, nil
}
