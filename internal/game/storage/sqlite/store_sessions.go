package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/perttula/whispden/internal/game/domain"
	"github.com/perttula/whispden/internal/game/storage"
)

// CreateSession inserts one session row.
func (s *Store) CreateSession(ctx context.Context, record storage.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sessionID := strings.TrimSpace(record.ID)
	lobbyCode := strings.TrimSpace(record.LobbyCode)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if lobbyCode == "" {
		return fmt.Errorf("lobby code is required")
	}
	if record.Status == domain.SessionStatusUnspecified {
		return fmt.Errorf("session status is required")
	}
	createdAt := record.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := record.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO sessions (
		   id, lobby_code, status, current_round, total_rounds,
		   current_storyteller_id, selected_theme_id, host_id,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		lobbyCode,
		string(record.Status),
		record.CurrentRound,
		record.TotalRounds,
		record.CurrentStorytellerID,
		record.SelectedThemeID,
		record.HostID,
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns one session by ID.
func (s *Store) GetSession(ctx context.Context, sessionID string) (storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SessionRecord{}, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.SessionRecord{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, lobby_code, status, current_round, total_rounds,
		        current_storyteller_id, selected_theme_id, host_id,
		        created_at, updated_at
		   FROM sessions
		  WHERE id = ?`,
		sessionID,
	)
	record, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SessionRecord{}, storage.ErrNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	return record, nil
}

// GetSessionByLobbyCode returns one session by its join code.
func (s *Store) GetSessionByLobbyCode(ctx context.Context, code string) (storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SessionRecord{}, fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return storage.SessionRecord{}, fmt.Errorf("lobby code is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, lobby_code, status, current_round, total_rounds,
		        current_storyteller_id, selected_theme_id, host_id,
		        created_at, updated_at
		   FROM sessions
		  WHERE lobby_code = ?`,
		code,
	)
	record, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SessionRecord{}, storage.ErrNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("get session by lobby code: %w", err)
	}
	return record, nil
}

// UpdateSession overwrites the mutable session fields.
func (s *Store) UpdateSession(ctx context.Context, record storage.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sessionID := strings.TrimSpace(record.ID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if record.Status == domain.SessionStatusUnspecified {
		return fmt.Errorf("session status is required")
	}
	updatedAt := record.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE sessions
		    SET status = ?, current_round = ?, total_rounds = ?,
		        current_storyteller_id = ?, selected_theme_id = ?, updated_at = ?
		  WHERE id = ?`,
		string(record.Status),
		record.CurrentRound,
		record.TotalRounds,
		record.CurrentStorytellerID,
		record.SelectedThemeID,
		toMillis(updatedAt),
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListIdleSessions returns waiting or active sessions last updated before the cutoff.
func (s *Store) ListIdleSessions(ctx context.Context, updatedBefore time.Time) ([]storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, lobby_code, status, current_round, total_rounds,
		        current_storyteller_id, selected_theme_id, host_id,
		        created_at, updated_at
		   FROM sessions
		  WHERE status IN (?, ?) AND updated_at < ?
		  ORDER BY updated_at ASC`,
		string(domain.SessionStatusWaiting),
		string(domain.SessionStatusActive),
		toMillis(updatedBefore.UTC()),
	)
	if err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	defer rows.Close()

	var records []storage.SessionRecord
	for rows.Next() {
		record, err := scanSessionRows(rows)
		if err != nil {
			return nil, fmt.Errorf("list idle sessions: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	return records, nil
}

// PurgeSessionData deletes the turns, guesses, and players of a session in
// one transaction. The session row itself is kept.
func (s *Store) PurgeSessionData(ctx context.Context, sessionID string) error {
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

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM guesses WHERE turn_id IN (SELECT id FROM turns WHERE session_id = ?)`,
		sessionID,
	); err != nil {
		return fmt.Errorf("purge guesses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("purge turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM players WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("purge players: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purge transaction: %w", err)
	}
	return nil
}

func scanSessionRow(row *sql.Row) (storage.SessionRecord, error) {
	var (
		record    storage.SessionRecord
		status    string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&record.ID,
		&record.LobbyCode,
		&status,
		&record.CurrentRound,
		&record.TotalRounds,
		&record.CurrentStorytellerID,
		&record.SelectedThemeID,
		&record.HostID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.SessionRecord{}, err
	}
	record.Status = domain.SessionStatus(status)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanSessionRows(rows *sql.Rows) (storage.SessionRecord, error) {
	var (
		record    storage.SessionRecord
		status    string
		createdAt int64
		updatedAt int64
	)
	if err := rows.Scan(
		&record.ID,
		&record.LobbyCode,
		&status,
		&record.CurrentRound,
		&record.TotalRounds,
		&record.CurrentStorytellerID,
		&record.SelectedThemeID,
		&record.HostID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.SessionRecord{}, err
	}
	record.Status = domain.SessionStatus(status)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
