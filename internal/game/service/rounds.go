package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/perttula/whispden/internal/game/domain"
	"github.com/perttula/whispden/internal/game/storage"
)

// AdvanceResult reports where a round advance landed.
type AdvanceResult struct {
	Session storage.SessionRecord
	// Completed is set when the advance finished the final round.
	Completed bool
	// WinnerID is the game winner, set only on completion. Ties go to the
	// earliest turn order.
	WinnerID string
}

// RoundService advances rounds, absorbs player departures, and ends
// sessions. Every path that finishes a session schedules the deferred purge
// through the cleaner.
type RoundService struct {
	store   storage.Store
	cleaner *Cleaner
	clock   func() time.Time
}

// NewRoundService wires a round service. cleaner may be nil when deferred
// cleanup is not wanted, clock may be nil to use time.Now.
func NewRoundService(store storage.Store, cleaner *Cleaner, clock func() time.Time) *RoundService {
	return &RoundService{store: store, cleaner: cleaner, clock: clock}
}

// Advance moves an active session to the next round, or completes it when
// the final round just finished. The next round's storyteller is the player
// whose turn order equals the new round number; the selected theme is
// cleared so the incoming storyteller picks again.
func (s *RoundService) Advance(ctx context.Context, sessionID string) (AdvanceResult, error) {
	if s == nil || s.store == nil {
		return AdvanceResult{}, ErrStoreNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return AdvanceResult{}, ErrSessionIDRequired
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return AdvanceResult{}, ErrSessionNotFound
		}
		return AdvanceResult{}, fmt.Errorf("get session: %w", err)
	}
	if session.Status != domain.SessionStatusActive {
		return AdvanceResult{}, ErrInvalidStatus
	}

	players, err := s.store.ListPlayersBySession(ctx, sessionID)
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("list players: %w", err)
	}

	now := nowFrom(s.clock)
	next := session.CurrentRound + 1
	storyteller, ok := playerWithOrder(players, next)
	if next > session.TotalRounds || !ok {
		session.Status = domain.SessionStatusCompleted
		session.UpdatedAt = now
		if err := s.store.UpdateSession(ctx, session); err != nil {
			return AdvanceResult{}, fmt.Errorf("update session: %w", err)
		}
		s.scheduleCleanup(sessionID)
		return AdvanceResult{Session: session, Completed: true, WinnerID: winnerID(players)}, nil
	}

	session.CurrentRound = next
	session.CurrentStorytellerID = storyteller.ID
	session.SelectedThemeID = ""
	session.UpdatedAt = now
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return AdvanceResult{}, fmt.Errorf("update session: %w", err)
	}
	return AdvanceResult{Session: session}, nil
}

// HandleDeparture removes a player and repairs the turn ordering: remaining
// players' turn orders close ranks to stay contiguous from 1 and the round
// total shrinks to the remaining player count. A departing storyteller's
// round is skipped by force-advancing against the remaining set, which may
// complete the session. The host cannot leave; the host ends the session.
func (s *RoundService) HandleDeparture(ctx context.Context, sessionID, playerID string) (storage.SessionRecord, error) {
	if s == nil || s.store == nil {
		return storage.SessionRecord{}, ErrStoreNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.SessionRecord{}, ErrSessionIDRequired
	}
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return storage.SessionRecord{}, ErrPlayerIDRequired
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return storage.SessionRecord{}, ErrSessionNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}

	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		if isNotFound(err) {
			return storage.SessionRecord{}, ErrPlayerNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("get player: %w", err)
	}
	if player.SessionID != sessionID {
		return storage.SessionRecord{}, ErrPlayerNotFound
	}
	if player.ID == session.HostID {
		return storage.SessionRecord{}, ErrHostCannotLeave
	}

	wasStoryteller := session.Status == domain.SessionStatusActive &&
		session.CurrentStorytellerID == player.ID

	if err := s.store.DeletePlayer(ctx, player.ID); err != nil {
		return storage.SessionRecord{}, fmt.Errorf("delete player: %w", err)
	}
	if err := s.store.ShiftTurnOrders(ctx, sessionID, player.TurnOrder); err != nil {
		return storage.SessionRecord{}, fmt.Errorf("shift turn orders: %w", err)
	}

	remaining, err := s.store.ListPlayersBySession(ctx, sessionID)
	if err != nil {
		return storage.SessionRecord{}, fmt.Errorf("list players: %w", err)
	}

	if session.Status == domain.SessionStatusActive && session.TotalRounds > len(remaining) {
		session.TotalRounds = len(remaining)
	}
	session.UpdatedAt = nowFrom(s.clock)
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return storage.SessionRecord{}, fmt.Errorf("update session: %w", err)
	}

	if wasStoryteller {
		res, err := s.Advance(ctx, sessionID)
		if err != nil {
			return storage.SessionRecord{}, fmt.Errorf("force advance: %w", err)
		}
		return res.Session, nil
	}
	return session, nil
}

// KickPlayer is the host removing another player. The departure rules are
// the same as a voluntary leave, including the storyteller force-advance.
func (s *RoundService) KickPlayer(ctx context.Context, sessionID, hostID, playerID string) (storage.SessionRecord, error) {
	if s == nil || s.store == nil {
		return storage.SessionRecord{}, ErrStoreNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.SessionRecord{}, ErrSessionIDRequired
	}
	hostID = strings.TrimSpace(hostID)
	playerID = strings.TrimSpace(playerID)
	if hostID == "" || playerID == "" {
		return storage.SessionRecord{}, ErrPlayerIDRequired
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return storage.SessionRecord{}, ErrSessionNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	if session.HostID != hostID {
		return storage.SessionRecord{}, ErrNotHost
	}

	return s.HandleDeparture(ctx, sessionID, playerID)
}

// EndSession is the host's explicit termination. Ending an already finished
// session returns it unchanged.
func (s *RoundService) EndSession(ctx context.Context, sessionID, hostID string) (storage.SessionRecord, error) {
	if s == nil || s.store == nil {
		return storage.SessionRecord{}, ErrStoreNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.SessionRecord{}, ErrSessionIDRequired
	}
	hostID = strings.TrimSpace(hostID)
	if hostID == "" {
		return storage.SessionRecord{}, ErrPlayerIDRequired
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return storage.SessionRecord{}, ErrSessionNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	if session.HostID != hostID {
		return storage.SessionRecord{}, ErrNotHost
	}

	switch session.Status {
	case domain.SessionStatusCompleted, domain.SessionStatusExpired:
		return session, nil
	}
	if !domain.CanTransition(session.Status, domain.SessionStatusCompleted) {
		return storage.SessionRecord{}, ErrInvalidStatus
	}

	session.Status = domain.SessionStatusCompleted
	session.UpdatedAt = nowFrom(s.clock)
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return storage.SessionRecord{}, fmt.Errorf("update session: %w", err)
	}
	s.scheduleCleanup(sessionID)
	return session, nil
}

// ExpireIdleSessions marks waiting or active sessions untouched since the
// cutoff as expired and schedules their purge. It returns how many sessions
// this sweep expired.
func (s *RoundService) ExpireIdleSessions(ctx context.Context, olderThan time.Time) (int, error) {
	if s == nil || s.store == nil {
		return 0, ErrStoreNotConfigured
	}

	idle, err := s.store.ListIdleSessions(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("list idle sessions: %w", err)
	}

	now := nowFrom(s.clock)
	expired := 0
	for _, session := range idle {
		if !domain.CanTransition(session.Status, domain.SessionStatusExpired) {
			continue
		}
		session.Status = domain.SessionStatusExpired
		session.UpdatedAt = now
		if err := s.store.UpdateSession(ctx, session); err != nil {
			if isNotFound(err) {
				continue
			}
			return expired, fmt.Errorf("expire session %s: %w", session.ID, err)
		}
		s.scheduleCleanup(session.ID)
		expired++
	}
	return expired, nil
}

func (s *RoundService) scheduleCleanup(sessionID string) {
	if s.cleaner != nil {
		s.cleaner.Schedule(sessionID)
	}
}

// playerWithOrder finds the player holding a turn order slot.
func playerWithOrder(players []storage.PlayerRecord, order int) (storage.PlayerRecord, bool) {
	for _, p := range players {
		if p.TurnOrder == order {
			return p, true
		}
	}
	return storage.PlayerRecord{}, false
}

// winnerID picks the highest score. Players arrive ordered by turn order
// and the comparison is strict, so ties keep the earliest order.
func winnerID(players []storage.PlayerRecord) string {
	var winner storage.PlayerRecord
	found := false
	for _, p := range players {
		if !found || p.Score > winner.Score {
			winner = p
			found = true
		}
	}
	if !found {
		return ""
	}
	return winner.ID
}
