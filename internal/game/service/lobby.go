package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/perttula/whispden/internal/game/domain"
	"github.com/perttula/whispden/internal/game/storage"
)

// lobbyCodeAttempts bounds retries when a generated join code collides with
// a live session.
const lobbyCodeAttempts = 5

// LobbyService creates sessions and admits players while a lobby waits.
type LobbyService struct {
	store   storage.Store
	clock   func() time.Time
	newID   func() string
	newCode func() (string, error)
}

// NewLobbyService wires a lobby service. clock, newID, and newCode may be
// nil; they default to time.Now, random UUIDs, and domain.NewLobbyCode.
func NewLobbyService(store storage.Store, clock func() time.Time, newID func() string, newCode func() (string, error)) *LobbyService {
	if newCode == nil {
		newCode = domain.NewLobbyCode
	}
	return &LobbyService{store: store, clock: clock, newID: newIDFrom(newID), newCode: newCode}
}

// CreateSession opens a new waiting lobby with the caller as host and first
// player. A totalRounds of zero means one round per player, decided when
// the game starts.
func (s *LobbyService) CreateSession(ctx context.Context, hostName string, totalRounds int) (storage.SessionRecord, storage.PlayerRecord, error) {
	if s == nil || s.store == nil {
		return storage.SessionRecord{}, storage.PlayerRecord{}, ErrStoreNotConfigured
	}
	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return storage.SessionRecord{}, storage.PlayerRecord{}, ErrPlayerNameRequired
	}
	if totalRounds < 0 {
		totalRounds = 0
	}

	now := nowFrom(s.clock)
	host := storage.PlayerRecord{
		ID:        s.newID(),
		Name:      hostName,
		TurnOrder: 1,
		JoinedAt:  now,
	}
	session := storage.SessionRecord{
		ID:          s.newID(),
		Status:      domain.SessionStatusWaiting,
		TotalRounds: totalRounds,
		HostID:      host.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	host.SessionID = session.ID

	created := false
	for attempt := 0; attempt < lobbyCodeAttempts && !created; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return storage.SessionRecord{}, storage.PlayerRecord{}, fmt.Errorf("generate lobby code: %w", err)
		}
		session.LobbyCode = code

		switch err := s.store.CreateSession(ctx, session); {
		case err == nil:
			created = true
		case !errors.Is(err, storage.ErrAlreadyExists):
			return storage.SessionRecord{}, storage.PlayerRecord{}, fmt.Errorf("create session: %w", err)
		}
	}
	if !created {
		return storage.SessionRecord{}, storage.PlayerRecord{}, fmt.Errorf("create session: %d lobby code attempts collided", lobbyCodeAttempts)
	}

	if err := s.store.CreatePlayer(ctx, host); err != nil {
		return storage.SessionRecord{}, storage.PlayerRecord{}, fmt.Errorf("create host player: %w", err)
	}
	return session, host, nil
}

// JoinSession admits a player to a waiting lobby by its join code. Joining
// after the game started fails with ErrSessionNotJoinable.
func (s *LobbyService) JoinSession(ctx context.Context, code, playerName string) (storage.SessionRecord, storage.PlayerRecord, error) {
	if s == nil || s.store == nil {
		return storage.SessionRecord{}, storage.PlayerRecord{}, ErrStoreNotConfigured
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return storage.SessionRecord{}, storage.PlayerRecord{}, ErrLobbyCodeRequired
	}
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return storage.SessionRecord{}, storage.PlayerRecord{}, ErrPlayerNameRequired
	}

	session, err := s.store.GetSessionByLobbyCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return storage.SessionRecord{}, storage.PlayerRecord{}, ErrSessionNotFound
		}
		return storage.SessionRecord{}, storage.PlayerRecord{}, fmt.Errorf("get session by code: %w", err)
	}
	if session.Status != domain.SessionStatusWaiting {
		return storage.SessionRecord{}, storage.PlayerRecord{}, ErrSessionNotJoinable
	}

	players, err := s.store.ListPlayersBySession(ctx, session.ID)
	if err != nil {
		return storage.SessionRecord{}, storage.PlayerRecord{}, fmt.Errorf("list players: %w", err)
	}

	now := nowFrom(s.clock)
	player := storage.PlayerRecord{
		ID:        s.newID(),
		SessionID: session.ID,
		Name:      playerName,
		TurnOrder: len(players) + 1,
		JoinedAt:  now,
	}
	if err := s.store.CreatePlayer(ctx, player); err != nil {
		return storage.SessionRecord{}, storage.PlayerRecord{}, fmt.Errorf("create player: %w", err)
	}

	session.UpdatedAt = now
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return storage.SessionRecord{}, storage.PlayerRecord{}, fmt.Errorf("update session: %w", err)
	}
	return session, player, nil
}

// GameState is the authoritative snapshot served to refreshing clients.
type GameState struct {
	Session storage.SessionRecord
	Players []storage.PlayerRecord
	// CurrentTurn is nil while the lobby waits and after the purge.
	CurrentTurn *storage.TurnRecord
	// Guesses are the current turn's recorded attempts in submission order.
	Guesses []storage.GuessRecord
}

// Snapshot returns the session, its players, and the current round's turn
// with its guesses. The whisp is returned as stored; who may see it in
// plain text is the transport layer's concern.
func (s *LobbyService) Snapshot(ctx context.Context, sessionID string) (GameState, error) {
	if s == nil || s.store == nil {
		return GameState{}, ErrStoreNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return GameState{}, ErrSessionIDRequired
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return GameState{}, ErrSessionNotFound
		}
		return GameState{}, fmt.Errorf("get session: %w", err)
	}

	players, err := s.store.ListPlayersBySession(ctx, sessionID)
	if err != nil {
		return GameState{}, fmt.Errorf("list players: %w", err)
	}

	state := GameState{Session: session, Players: players}
	if session.CurrentRound >= 1 {
		turn, err := s.store.GetTurnByRound(ctx, sessionID, session.CurrentRound)
		switch {
		case err == nil:
			state.CurrentTurn = &turn
			guesses, err := s.store.ListGuessesByTurn(ctx, turn.ID)
			if err != nil {
				return GameState{}, fmt.Errorf("list guesses: %w", err)
			}
			state.Guesses = guesses
		case isNotFound(err):
			// Purged sessions keep their tombstone row but no turns.
		default:
			return GameState{}, fmt.Errorf("get current turn: %w", err)
		}
	}
	return state, nil
}

// ThemeSummary pairs a theme with its element count for client pickers.
type ThemeSummary struct {
	Theme        storage.ThemeRecord
	ElementCount int
}

// ListThemes returns the catalog inventory with element counts.
func (s *LobbyService) ListThemes(ctx context.Context) ([]ThemeSummary, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}

	themes, err := s.store.ListThemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}

	out := make([]ThemeSummary, 0, len(themes))
	for _, t := range themes {
		count, err := s.store.CountElementsByTheme(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("count elements for theme %s: %w", t.ID, err)
		}
		out = append(out, ThemeSummary{Theme: t, ElementCount: count})
	}
	return out, nil
}
