package api

import (
	"time"

	"github.com/perttula/whispden/internal/game/domain"
	"github.com/perttula/whispden/internal/game/service"
	"github.com/perttula/whispden/internal/game/storage"
)

// Views are the client-facing JSON shapes. They rename storage fields to
// camelCase and apply the whisp visibility rule: only the storyteller of a
// turn sees the whisp in plain text, everyone else gets the obfuscated
// form. The secret element stays hidden the same way until the turn
// completes, since its name is the answer.

type sessionView struct {
	ID                   string    `json:"id"`
	LobbyCode            string    `json:"lobbyCode"`
	Status               string    `json:"status"`
	CurrentRound         int       `json:"currentRound"`
	TotalRounds          int       `json:"totalRounds"`
	CurrentStorytellerID string    `json:"currentStorytellerId,omitempty"`
	SelectedThemeID      string    `json:"selectedThemeId,omitempty"`
	HostID               string    `json:"hostId"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func newSessionView(s storage.SessionRecord) sessionView {
	return sessionView{
		ID:                   s.ID,
		LobbyCode:            s.LobbyCode,
		Status:               string(s.Status),
		CurrentRound:         s.CurrentRound,
		TotalRounds:          s.TotalRounds,
		CurrentStorytellerID: s.CurrentStorytellerID,
		SelectedThemeID:      s.SelectedThemeID,
		HostID:               s.HostID,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

type playerView struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Name      string    `json:"name"`
	TurnOrder int       `json:"turnOrder"`
	Score     int       `json:"score"`
	JoinedAt  time.Time `json:"joinedAt"`
}

func newPlayerView(p storage.PlayerRecord) playerView {
	return playerView{
		ID:        p.ID,
		SessionID: p.SessionID,
		Name:      p.Name,
		TurnOrder: p.TurnOrder,
		Score:     p.Score,
		JoinedAt:  p.JoinedAt,
	}
}

func newPlayerViews(players []storage.PlayerRecord) []playerView {
	views := make([]playerView, 0, len(players))
	for _, p := range players {
		views = append(views, newPlayerView(p))
	}
	return views
}

type turnView struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"sessionId"`
	RoundNumber     int        `json:"roundNumber"`
	StorytellerID   string     `json:"storytellerId"`
	Phase           string     `json:"phase"`
	ThemeID         string     `json:"themeId,omitempty"`
	Whisp           string     `json:"whisp,omitempty"`
	SecretElementID string     `json:"secretElementId,omitempty"`
	SelectedIconIDs []string   `json:"selectedIconIds,omitempty"`
	RecordingRef    string     `json:"recordingRef,omitempty"`
	WinnerID        string     `json:"winnerId,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// newTurnView renders a turn for one viewer. Non-storytellers get the
// obfuscated whisp, and no secret element until the turn is completed.
func newTurnView(t storage.TurnRecord, viewerID string) turnView {
	v := turnView{
		ID:              t.ID,
		SessionID:       t.SessionID,
		RoundNumber:     t.RoundNumber,
		StorytellerID:   t.StorytellerID,
		Phase:           string(t.Phase),
		ThemeID:         t.ThemeID,
		Whisp:           t.Whisp,
		SecretElementID: t.SecretElementID,
		SelectedIconIDs: t.SelectedIconIDs,
		RecordingRef:    t.RecordingRef,
		WinnerID:        t.WinnerID,
		CompletedAt:     t.CompletedAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if viewerID != t.StorytellerID {
		v.Whisp = domain.ObfuscateWhisp(t.Whisp)
		if t.CompletedAt == nil {
			v.SecretElementID = ""
		}
	}
	return v
}

type guessView struct {
	ID           string    `json:"id"`
	TurnID       string    `json:"turnId"`
	PlayerID     string    `json:"playerId"`
	GuessedText  string    `json:"guessedText"`
	PointsEarned int       `json:"pointsEarned"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newGuessViews(guesses []storage.GuessRecord) []guessView {
	views := make([]guessView, 0, len(guesses))
	for _, g := range guesses {
		views = append(views, guessView{
			ID:           g.ID,
			TurnID:       g.TurnID,
			PlayerID:     g.PlayerID,
			GuessedText:  g.GuessedText,
			PointsEarned: g.PointsEarned,
			CreatedAt:    g.CreatedAt,
		})
	}
	return views
}

type gameStateView struct {
	Session     sessionView  `json:"session"`
	Players     []playerView `json:"players"`
	CurrentTurn *turnView    `json:"currentTurn,omitempty"`
	Guesses     []guessView  `json:"guesses"`
}

func newGameStateView(state service.GameState, viewerID string) gameStateView {
	view := gameStateView{
		Session: newSessionView(state.Session),
		Players: newPlayerViews(state.Players),
		Guesses: newGuessViews(state.Guesses),
	}
	if state.CurrentTurn != nil {
		turn := newTurnView(*state.CurrentTurn, viewerID)
		view.CurrentTurn = &turn
	}
	return view
}

type guessResultView struct {
	Correct            bool   `json:"correct"`
	PointsEarned       int    `json:"pointsEarned"`
	AlreadyAnswered    bool   `json:"alreadyAnswered"`
	AttemptsRemaining  int    `json:"attemptsRemaining"`
	MaxAttemptsReached bool   `json:"maxAttemptsReached"`
	GameCompleted      bool   `json:"gameCompleted"`
	GameWinnerID       string `json:"gameWinnerId,omitempty"`
}

func newGuessResultView(res service.GuessResult) guessResultView {
	return guessResultView{
		Correct:            res.Correct,
		PointsEarned:       res.PointsEarned,
		AlreadyAnswered:    res.AlreadyAnswered,
		AttemptsRemaining:  res.AttemptsRemaining,
		MaxAttemptsReached: res.MaxAttemptsReached,
		GameCompleted:      res.GameCompleted,
		GameWinnerID:       res.GameWinnerID,
	}
}

type themeView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Core         bool      `json:"core"`
	ElementCount int       `json:"elementCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newThemeViews(summaries []service.ThemeSummary) []themeView {
	views := make([]themeView, 0, len(summaries))
	for _, s := range summaries {
		views = append(views, themeView{
			ID:           s.Theme.ID,
			Name:         s.Theme.Name,
			Core:         s.Theme.Core,
			ElementCount: s.ElementCount,
			CreatedAt:    s.Theme.CreatedAt,
		})
	}
	return views
}
