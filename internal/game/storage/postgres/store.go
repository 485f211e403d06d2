// Package postgres provides a PostgreSQL-backed game storage implementation.
//
// The schema is created on open and is safe to apply repeatedly. Timestamps
// are stored as UTC millisecond integers so both storage backends report
// identical values for the same record.
package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/perttula/whispden/internal/game/storage"
)

// Store persists game state in PostgreSQL.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func encodeIconIDs(ids []string) (string, error) {
	if len(ids) == 0 {
		return "[]", nil
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal icon ids: %w", err)
	}
	return string(encoded), nil
}

func decodeIconIDs(value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(value), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal icon ids: %w", err)
	}
	return ids, nil
}

// Open connects to a PostgreSQL game store and ensures the schema exists.
func Open(databaseURL string) (*Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    lobby_code TEXT NOT NULL,
    status TEXT NOT NULL,
    current_round INTEGER NOT NULL DEFAULT 0,
    total_rounds INTEGER NOT NULL DEFAULT 0,
    current_storyteller_id TEXT NOT NULL DEFAULT '',
    selected_theme_id TEXT NOT NULL DEFAULT '',
    host_id TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_lobby_code ON sessions(lobby_code);
CREATE INDEX IF NOT EXISTS idx_sessions_status_updated ON sessions(status, updated_at);

CREATE TABLE IF NOT EXISTS players (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    name TEXT NOT NULL,
    turn_order INTEGER NOT NULL,
    score INTEGER NOT NULL DEFAULT 0,
    joined_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_players_session_order ON players(session_id, turn_order);

CREATE TABLE IF NOT EXISTS turns (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    round_number INTEGER NOT NULL,
    storyteller_id TEXT NOT NULL,
    phase TEXT NOT NULL,
    theme_id TEXT NOT NULL DEFAULT '',
    whisp TEXT NOT NULL DEFAULT '',
    secret_element_id TEXT NOT NULL DEFAULT '',
    selected_icon_ids TEXT NOT NULL DEFAULT '[]',
    recording_ref TEXT NOT NULL DEFAULT '',
    winner_id TEXT NOT NULL DEFAULT '',
    completed_at BIGINT,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_turns_session_round ON turns(session_id, round_number);

CREATE TABLE IF NOT EXISTS guesses (
    id TEXT PRIMARY KEY,
    turn_id TEXT NOT NULL,
    player_id TEXT NOT NULL,
    guessed_text TEXT NOT NULL,
    points_earned INTEGER NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_guesses_turn_player ON guesses(turn_id, player_id);

CREATE TABLE IF NOT EXISTS themes (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    core BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS elements (
    id TEXT PRIMARY KEY,
    theme_id TEXT NOT NULL,
    name TEXT NOT NULL,
    icon_ref TEXT NOT NULL DEFAULT '',
    whisp_eligible BOOLEAN NOT NULL DEFAULT TRUE,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_elements_theme ON elements(theme_id);
`

var _ storage.Store = (*Store)(nil)
