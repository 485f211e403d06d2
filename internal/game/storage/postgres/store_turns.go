package postgres

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

const turnColumns = `id, session_id, round_number, storyteller_id, phase,
	        theme_id, whisp, secret_element_id, selected_icon_ids,
	        recording_ref, winner_id, completed_at, created_at, updated_at`

// CreateTurn inserts one turn row. The unique (session, round) index makes
// duplicate creation attempts fail with ErrAlreadyExists.
func (s *Store) CreateTurn(ctx context.Context, record storage.TurnRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	turnID := strings.TrimSpace(record.ID)
	sessionID := strings.TrimSpace(record.SessionID)
	storytellerID := strings.TrimSpace(record.StorytellerID)
	if turnID == "" {
		return fmt.Errorf("turn id is required")
	}
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if record.RoundNumber <= 0 {
		return fmt.Errorf("round number must be greater than zero")
	}
	if storytellerID == "" {
		return fmt.Errorf("storyteller id is required")
	}
	if record.Phase == domain.TurnPhaseUnspecified {
		return fmt.Errorf("turn phase is required")
	}
	iconIDs, err := encodeIconIDs(record.SelectedIconIDs)
	if err != nil {
		return err
	}
	createdAt := record.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := record.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	var completedAt sql.NullInt64
	if record.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: toMillis(*record.CompletedAt), Valid: true}
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO turns (
		   id, session_id, round_number, storyteller_id, phase,
		   theme_id, whisp, secret_element_id, selected_icon_ids,
		   recording_ref, winner_id, completed_at, created_at, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		turnID,
		sessionID,
		record.RoundNumber,
		storytellerID,
		string(record.Phase),
		record.ThemeID,
		record.Whisp,
		record.SecretElementID,
		iconIDs,
		record.RecordingRef,
		record.WinnerID,
		completedAt,
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create turn: %w", err)
	}
	return nil
}

// GetTurn returns one turn by ID.
func (s *Store) GetTurn(ctx context.Context, turnID string) (storage.TurnRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.TurnRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.TurnRecord{}, fmt.Errorf("storage is not configured")
	}
	turnID = strings.TrimSpace(turnID)
	if turnID == "" {
		return storage.TurnRecord{}, fmt.Errorf("turn id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+turnColumns+`
		   FROM turns
		  WHERE id = $1`,
		turnID,
	)
	record, err := scanTurnRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.TurnRecord{}, storage.ErrNotFound
		}
		return storage.TurnRecord{}, fmt.Errorf("get turn: %w", err)
	}
	return record, nil
}

// GetTurnByRound returns the turn of one round of a session.
func (s *Store) GetTurnByRound(ctx context.Context, sessionID string, roundNumber int) (storage.TurnRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.TurnRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.TurnRecord{}, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.TurnRecord{}, fmt.Errorf("session id is required")
	}
	if roundNumber <= 0 {
		return storage.TurnRecord{}, fmt.Errorf("round number must be greater than zero")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+turnColumns+`
		   FROM turns
		  WHERE session_id = $1 AND round_number = $2`,
		sessionID,
		roundNumber,
	)
	record, err := scanTurnRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.TurnRecord{}, storage.ErrNotFound
		}
		return storage.TurnRecord{}, fmt.Errorf("get turn by round: %w", err)
	}
	return record, nil
}

// ListTurnsBySession returns all turns of a session ordered by round.
func (s *Store) ListTurnsBySession(ctx context.Context, sessionID string) ([]storage.TurnRecord, error) {
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
		`SELECT `+turnColumns+`
		   FROM turns
		  WHERE session_id = $1
		  ORDER BY round_number ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var records []storage.TurnRecord
	for rows.Next() {
		record, err := scanTurnRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list turns: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return records, nil
}

// UpdateTurn overwrites the mutable turn fields.
func (s *Store) UpdateTurn(ctx context.Context, record storage.TurnRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	turnID := strings.TrimSpace(record.ID)
	if turnID == "" {
		return fmt.Errorf("turn id is required")
	}
	if record.Phase == domain.TurnPhaseUnspecified {
		return fmt.Errorf("turn phase is required")
	}
	iconIDs, err := encodeIconIDs(record.SelectedIconIDs)
	if err != nil {
		return err
	}
	updatedAt := record.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	var completedAt sql.NullInt64
	if record.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: toMillis(*record.CompletedAt), Valid: true}
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE turns
		    SET phase = $1, theme_id = $2, whisp = $3, secret_element_id = $4,
		        selected_icon_ids = $5, recording_ref = $6, winner_id = $7,
		        completed_at = $8, updated_at = $9
		  WHERE id = $10`,
		string(record.Phase),
		record.ThemeID,
		record.Whisp,
		record.SecretElementID,
		iconIDs,
		record.RecordingRef,
		record.WinnerID,
		completedAt,
		toMillis(updatedAt),
		turnID,
	)
	if err != nil {
		return fmt.Errorf("update turn: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update turn rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CompleteTurnWithWinner marks the turn completed if no other writer has
// completed it yet. The conditional update is the arbiter when several
// correct guesses race: exactly one caller observes an affected row.
func (s *Store) CompleteTurnWithWinner(ctx context.Context, turnID, winnerID string, completedAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	turnID = strings.TrimSpace(turnID)
	if turnID == "" {
		return false, fmt.Errorf("turn id is required")
	}
	winnerID = strings.TrimSpace(winnerID)
	if winnerID == "" {
		return false, fmt.Errorf("winner id is required")
	}

	completedAt = completedAt.UTC()
	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE turns
		    SET phase = $1, winner_id = $2, completed_at = $3, updated_at = $4
		  WHERE id = $5 AND completed_at IS NULL`,
		string(domain.TurnPhaseCompleted),
		winnerID,
		toMillis(completedAt),
		toMillis(completedAt),
		turnID,
	)
	if err != nil {
		return false, fmt.Errorf("complete turn: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete turn rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanTurnRow(scan func(dest ...any) error) (storage.TurnRecord, error) {
	var (
		record      storage.TurnRecord
		phase       string
		iconIDsRaw  string
		completedAt sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)
	if err := scan(
		&record.ID,
		&record.SessionID,
		&record.RoundNumber,
		&record.StorytellerID,
		&phase,
		&record.ThemeID,
		&record.Whisp,
		&record.SecretElementID,
		&iconIDsRaw,
		&record.RecordingRef,
		&record.WinnerID,
		&completedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.TurnRecord{}, err
	}
	iconIDs, err := decodeIconIDs(iconIDsRaw)
	if err != nil {
		return storage.TurnRecord{}, err
	}
	record.Phase = domain.TurnPhase(phase)
	record.SelectedIconIDs = iconIDs
	if completedAt.Valid {
		value := fromMillis(completedAt.Int64)
		record.CompletedAt = &value
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
