// Package storage defines persistence contracts for whispden game state.
//
// Implementations keep the correctness-critical coordination inside single
// SQL statements: CompleteTurnWithWinner is a compare-and-swap on the turn's
// completion marker and IncrementScore is a read-modify-write executed by the
// database. Callers never resolve races with fetch-then-store sequences.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/perttula/whispden/internal/game/domain"
)

var (
	// ErrNotFound indicates a requested game record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// SessionRecord stores one lobby's game from creation to cleanup.
type SessionRecord struct {
	ID                   string
	LobbyCode            string
	Status               domain.SessionStatus
	CurrentRound         int
	TotalRounds          int
	CurrentStorytellerID string
	SelectedThemeID      string
	HostID               string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// PlayerRecord stores one participant of a session. TurnOrder values are
// contiguous from 1 within a session.
type PlayerRecord struct {
	ID        string
	SessionID string
	Name      string
	TurnOrder int
	Score     int
	JoinedAt  time.Time
}

// TurnRecord stores one round's turn. At most one turn exists per
// (SessionID, RoundNumber) pair, enforced by a unique index.
type TurnRecord struct {
	ID              string
	SessionID       string
	RoundNumber     int
	StorytellerID   string
	Phase           domain.TurnPhase
	ThemeID         string
	Whisp           string
	SecretElementID string
	SelectedIconIDs []string
	RecordingRef    string
	WinnerID        string
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GuessRecord stores one guess attempt against a turn.
type GuessRecord struct {
	ID           string
	TurnID       string
	PlayerID     string
	GuessedText  string
	PointsEarned int
	CreatedAt    time.Time
}

// ThemeRecord stores one theme of the element catalog. Core themes backfill
// icon sets when the selected theme runs short.
type ThemeRecord struct {
	ID        string
	Name      string
	Core      bool
	CreatedAt time.Time
}

// ElementRecord stores one catalog element belonging to a theme.
type ElementRecord struct {
	ID            string
	ThemeID       string
	Name          string
	IconRef       string
	WhispEligible bool
	CreatedAt     time.Time
}

// SessionStore owns session lifecycle rows and the post-game purge.
type SessionStore interface {
	// CreateSession stores a new session. Returns ErrAlreadyExists when the
	// lobby code is already taken.
	CreateSession(ctx context.Context, s SessionRecord) error
	GetSession(ctx context.Context, id string) (SessionRecord, error)
	GetSessionByLobbyCode(ctx context.Context, code string) (SessionRecord, error)
	// UpdateSession overwrites the mutable session fields.
	UpdateSession(ctx context.Context, s SessionRecord) error
	// ListIdleSessions returns waiting or active sessions not updated since
	// the cutoff.
	ListIdleSessions(ctx context.Context, updatedBefore time.Time) ([]SessionRecord, error)
	// PurgeSessionData deletes the turns, guesses, and players of a session
	// in one transaction. The session row itself is kept. Purging an already
	// purged session is a no-op.
	PurgeSessionData(ctx context.Context, sessionID string) error
}

// PlayerStore owns player membership, ordering, and scores.
type PlayerStore interface {
	CreatePlayer(ctx context.Context, p PlayerRecord) error
	GetPlayer(ctx context.Context, id string) (PlayerRecord, error)
	// ListPlayersBySession returns all players ordered by turn order.
	ListPlayersBySession(ctx context.Context, sessionID string) ([]PlayerRecord, error)
	DeletePlayer(ctx context.Context, id string) error
	// ShiftTurnOrders closes the gap left by a departed player: every player
	// of the session with a turn order above removedOrder moves down one slot
	// in a single statement.
	ShiftTurnOrders(ctx context.Context, sessionID string, removedOrder int) error
	// IncrementScore adds delta to a player's score atomically and returns
	// the new total.
	IncrementScore(ctx context.Context, playerID string, delta int) (int, error)
}

// TurnStore owns turn rows and the first-writer-wins completion primitive.
type TurnStore interface {
	// CreateTurn stores a new turn. Returns ErrAlreadyExists when the round
	// already has one.
	CreateTurn(ctx context.Context, t TurnRecord) error
	GetTurn(ctx context.Context, id string) (TurnRecord, error)
	GetTurnByRound(ctx context.Context, sessionID string, roundNumber int) (TurnRecord, error)
	ListTurnsBySession(ctx context.Context, sessionID string) ([]TurnRecord, error)
	// UpdateTurn overwrites the mutable turn fields.
	UpdateTurn(ctx context.Context, t TurnRecord) error
	// CompleteTurnWithWinner marks the turn completed if and only if it is
	// not completed yet. The boolean reports whether this call won the race;
	// false means another writer completed the turn first.
	CompleteTurnWithWinner(ctx context.Context, turnID, winnerID string, completedAt time.Time) (bool, error)
}

// GuessStore owns guess attempt rows.
type GuessStore interface {
	CreateGuess(ctx context.Context, g GuessRecord) error
	// CountGuesses returns how many attempts a player has made on a turn.
	CountGuesses(ctx context.Context, turnID, playerID string) (int, error)
	ListGuessesByTurn(ctx context.Context, turnID string) ([]GuessRecord, error)
}

// CatalogStore owns the theme and element inventory.
type CatalogStore interface {
	PutTheme(ctx context.Context, t ThemeRecord) error
	GetTheme(ctx context.Context, id string) (ThemeRecord, error)
	ListThemes(ctx context.Context) ([]ThemeRecord, error)
	PutElement(ctx context.Context, e ElementRecord) error
	GetElement(ctx context.Context, id string) (ElementRecord, error)
	ListElementsByTheme(ctx context.Context, themeID string) ([]ElementRecord, error)
	// ListCoreElements returns elements of core themes, excluding one theme.
	ListCoreElements(ctx context.Context, excludeThemeID string) ([]ElementRecord, error)
	CountElementsByTheme(ctx context.Context, themeID string) (int, error)
}

// Store is a composite interface for all persistence concerns of the game
// services.
type Store interface {
	SessionStore
	PlayerStore
	TurnStore
	GuessStore
	CatalogStore
	Close() error
}
