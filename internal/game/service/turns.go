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

// TurnService starts games and drives the storyteller's turn through its
// phases.
type TurnService struct {
	store    storage.Store
	strategy SelectionStrategy
	clock    func() time.Time
	newID    func() string
}

// NewTurnService wires a turn service. clock and newID may be nil; they
// default to time.Now and random UUIDs.
func NewTurnService(store storage.Store, strategy SelectionStrategy, clock func() time.Time, newID func() string) *TurnService {
	return &TurnService{store: store, strategy: strategy, clock: clock, newID: newIDFrom(newID)}
}

// StartGame activates a waiting session. One turn row is created per player
// up front, round N belonging to the player with turn order N, and the
// player with turn order 1 becomes the first storyteller. A retried start
// finds its turn rows already created and leaves them alone.
func (s *TurnService) StartGame(ctx context.Context, sessionID string) (storage.SessionRecord, error) {
	if s == nil || s.store == nil {
		return storage.SessionRecord{}, ErrStoreNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.SessionRecord{}, ErrSessionIDRequired
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return storage.SessionRecord{}, ErrSessionNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	if session.Status != domain.SessionStatusWaiting {
		return storage.SessionRecord{}, ErrSessionNotReady
	}

	players, err := s.store.ListPlayersBySession(ctx, sessionID)
	if err != nil {
		return storage.SessionRecord{}, fmt.Errorf("list players: %w", err)
	}
	if len(players) == 0 {
		return storage.SessionRecord{}, ErrSessionNotReady
	}

	now := nowFrom(s.clock)
	for _, p := range players {
		turn := storage.TurnRecord{
			ID:            s.newID(),
			SessionID:     sessionID,
			RoundNumber:   p.TurnOrder,
			StorytellerID: p.ID,
			Phase:         domain.TurnPhaseSelectingTheme,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.store.CreateTurn(ctx, turn); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				continue
			}
			return storage.SessionRecord{}, fmt.Errorf("create turn for round %d: %w", p.TurnOrder, err)
		}
	}

	first := players[0]
	for _, p := range players {
		if p.TurnOrder == 1 {
			first = p
			break
		}
	}

	session.Status = domain.SessionStatusActive
	session.CurrentRound = 1
	if session.TotalRounds <= 0 || session.TotalRounds > len(players) {
		session.TotalRounds = len(players)
	}
	session.CurrentStorytellerID = first.ID
	session.UpdatedAt = now
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return storage.SessionRecord{}, fmt.Errorf("update session: %w", err)
	}
	return session, nil
}

// StartTurn assigns the round's theme and lets the selection strategy pick
// the whisp and icon board. The current round's turn is updated in place,
// so a retried request never creates a second turn row.
func (s *TurnService) StartTurn(ctx context.Context, sessionID, themeID string) (storage.TurnRecord, error) {
	if s == nil || s.store == nil {
		return storage.TurnRecord{}, ErrStoreNotConfigured
	}
	if s.strategy == nil {
		return storage.TurnRecord{}, ErrStrategyNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.TurnRecord{}, ErrSessionIDRequired
	}
	themeID = strings.TrimSpace(themeID)
	if themeID == "" {
		return storage.TurnRecord{}, ErrThemeIDRequired
	}

	session, turn, err := s.currentTurn(ctx, sessionID)
	if err != nil {
		return storage.TurnRecord{}, err
	}

	if _, err := s.store.GetTheme(ctx, themeID); err != nil {
		if isNotFound(err) {
			return storage.TurnRecord{}, ErrThemeNotFound
		}
		return storage.TurnRecord{}, fmt.Errorf("get theme: %w", err)
	}

	plan, err := s.strategy.PrepareTurn(ctx, SelectionInput{SessionID: sessionID, ThemeID: themeID})
	if err != nil {
		return storage.TurnRecord{}, err
	}

	now := nowFrom(s.clock)
	turn.ThemeID = themeID
	turn.Whisp = plan.Whisp
	turn.SecretElementID = plan.SecretElementID
	turn.SelectedIconIDs = plan.IconIDs
	turn.Phase = domain.TurnPhaseWhispAssigned
	turn.UpdatedAt = now
	if err := s.store.UpdateTurn(ctx, turn); err != nil {
		return storage.TurnRecord{}, fmt.Errorf("update turn: %w", err)
	}

	session.SelectedThemeID = themeID
	session.UpdatedAt = now
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return storage.TurnRecord{}, fmt.Errorf("update session: %w", err)
	}
	return turn, nil
}

// SelectSecretElement records the storyteller's confirmed secret on the
// current turn and moves it to the recording phase. The whisp follows the
// confirmed element's name so the secret and its answer always agree.
func (s *TurnService) SelectSecretElement(ctx context.Context, sessionID, elementID string) (storage.TurnRecord, error) {
	if s == nil || s.store == nil {
		return storage.TurnRecord{}, ErrStoreNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.TurnRecord{}, ErrSessionIDRequired
	}
	elementID = strings.TrimSpace(elementID)
	if elementID == "" {
		return storage.TurnRecord{}, ErrElementIDRequired
	}

	session, turn, err := s.currentTurn(ctx, sessionID)
	if err != nil {
		return storage.TurnRecord{}, err
	}

	element, err := s.store.GetElement(ctx, elementID)
	if err != nil {
		if isNotFound(err) {
			return storage.TurnRecord{}, ErrElementNotFound
		}
		return storage.TurnRecord{}, fmt.Errorf("get element: %w", err)
	}

	now := nowFrom(s.clock)
	turn.SecretElementID = element.ID
	turn.Whisp = element.Name
	turn.Phase = domain.TurnPhaseRecording
	turn.UpdatedAt = now
	if err := s.store.UpdateTurn(ctx, turn); err != nil {
		return storage.TurnRecord{}, fmt.Errorf("update turn: %w", err)
	}

	session.UpdatedAt = now
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return storage.TurnRecord{}, fmt.Errorf("update session: %w", err)
	}
	return turn, nil
}

// SubmitStory attaches the storyteller's recording reference and opens the
// turn for guessing. Completion stays gated on a correct guess.
func (s *TurnService) SubmitStory(ctx context.Context, sessionID, recordingRef string) (storage.TurnRecord, error) {
	if s == nil || s.store == nil {
		return storage.TurnRecord{}, ErrStoreNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.TurnRecord{}, ErrSessionIDRequired
	}
	recordingRef = strings.TrimSpace(recordingRef)
	if recordingRef == "" {
		return storage.TurnRecord{}, ErrRecordingRefRequired
	}

	session, turn, err := s.currentTurn(ctx, sessionID)
	if err != nil {
		return storage.TurnRecord{}, err
	}

	now := nowFrom(s.clock)
	turn.RecordingRef = recordingRef
	turn.Phase = domain.TurnPhaseSubmitted
	turn.UpdatedAt = now
	if err := s.store.UpdateTurn(ctx, turn); err != nil {
		return storage.TurnRecord{}, fmt.Errorf("update turn: %w", err)
	}

	session.UpdatedAt = now
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return storage.TurnRecord{}, fmt.Errorf("update session: %w", err)
	}
	return turn, nil
}

// currentTurn loads an active session and its current round's turn,
// rejecting completed turns. Departures can leave the turn row assigned to
// a player who is gone; the session's storyteller is authoritative, so the
// row is realigned here before any phase work.
func (s *TurnService) currentTurn(ctx context.Context, sessionID string) (storage.SessionRecord, storage.TurnRecord, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return storage.SessionRecord{}, storage.TurnRecord{}, ErrSessionNotFound
		}
		return storage.SessionRecord{}, storage.TurnRecord{}, fmt.Errorf("get session: %w", err)
	}
	if session.Status != domain.SessionStatusActive {
		return storage.SessionRecord{}, storage.TurnRecord{}, ErrInvalidStatus
	}

	turn, err := s.store.GetTurnByRound(ctx, sessionID, session.CurrentRound)
	if err != nil {
		if isNotFound(err) {
			return storage.SessionRecord{}, storage.TurnRecord{}, ErrTurnNotFound
		}
		return storage.SessionRecord{}, storage.TurnRecord{}, fmt.Errorf("get current turn: %w", err)
	}
	if turn.CompletedAt != nil {
		return storage.SessionRecord{}, storage.TurnRecord{}, ErrTurnCompleted
	}

	if session.CurrentStorytellerID != "" && turn.StorytellerID != session.CurrentStorytellerID {
		turn.StorytellerID = session.CurrentStorytellerID
	}
	return session, turn, nil
}
