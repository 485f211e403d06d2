package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/perttula/whispden/internal/game/domain"
	"github.com/perttula/whispden/internal/game/storage"
)

func TestStartGameCreatesTurnSchedule(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newGameFixture(t, 3)

	f.start(t)

	if f.session.Status != domain.SessionStatusActive {
		t.Fatalf("status = %q, want %q", f.session.Status, domain.SessionStatusActive)
	}
	if f.session.CurrentRound != 1 {
		t.Fatalf("current round = %d, want 1", f.session.CurrentRound)
	}
	if f.session.TotalRounds != 3 {
		t.Fatalf("total rounds = %d, want 3", f.session.TotalRounds)
	}
	if f.session.CurrentStorytellerID != f.players[0].ID {
		t.Fatalf("storyteller = %q, want host %q", f.session.CurrentStorytellerID, f.players[0].ID)
	}

	rows, err := f.store.ListTurnsBySession(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("turn rows = %d, want 3", len(rows))
	}
	for i, row := range rows {
		if row.RoundNumber != i+1 {
			t.Fatalf("row %d round = %d, want %d", i, row.RoundNumber, i+1)
		}
		if row.StorytellerID != f.players[i].ID {
			t.Fatalf("round %d storyteller = %q, want %q", row.RoundNumber, row.StorytellerID, f.players[i].ID)
		}
		if row.Phase != domain.TurnPhaseSelectingTheme {
			t.Fatalf("round %d phase = %q, want %q", row.RoundNumber, row.Phase, domain.TurnPhaseSelectingTheme)
		}
	}
}

func TestStartGameRequiresWaitingWithPlayers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newGameFixture(t, 2)
	f.start(t)

	if _, err := f.turns.StartGame(ctx, f.session.ID); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("second start error = %v, want ErrSessionNotReady", err)
	}

	// A session row without any players cannot start either.
	empty := storage.SessionRecord{
		ID:        "session-empty",
		LobbyCode: "EMPTY1",
		Status:    domain.SessionStatusWaiting,
	}
	if err := f.store.CreateSession(ctx, empty); err != nil {
		t.Fatalf("create empty session: %v", err)
	}
	if _, err := f.turns.StartGame(ctx, empty.ID); !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("empty start error = %v, want ErrSessionNotReady", err)
	}

	if _, err := f.turns.StartGame(ctx, "session-ghost"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown session error = %v, want ErrSessionNotFound", err)
	}
}

func TestStartTurnBuildsIconBoard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newGameFixture(t, 3)
	f.start(t)

	turn, err := f.turns.StartTurn(ctx, f.session.ID, "theme-ocean")
	if err != nil {
		t.Fatalf("start turn: %v", err)
	}
	if turn.Phase != domain.TurnPhaseWhispAssigned {
		t.Fatalf("phase = %q, want %q", turn.Phase, domain.TurnPhaseWhispAssigned)
	}
	if turn.ThemeID != "theme-ocean" {
		t.Fatalf("theme = %q, want theme-ocean", turn.ThemeID)
	}
	if len(turn.SelectedIconIDs) != domain.IconSetSize {
		t.Fatalf("icon count = %d, want %d", len(turn.SelectedIconIDs), domain.IconSetSize)
	}

	ocean := map[string]bool{"el-wave": true, "el-coral": true, "el-anchor": true, "el-foam": true}
	core := map[string]bool{"el-lion": true, "el-owl": true, "el-hammer": true}
	seen := make(map[string]bool)
	oceanCount, coreCount := 0, 0
	secretOnBoard := false
	for _, id := range turn.SelectedIconIDs {
		if seen[id] {
			t.Fatalf("icon %q appears twice", id)
		}
		seen[id] = true
		switch {
		case ocean[id]:
			oceanCount++
		case core[id]:
			coreCount++
		default:
			t.Fatalf("icon %q belongs to no seeded theme", id)
		}
		if id == turn.SecretElementID {
			secretOnBoard = true
		}
	}
	if oceanCount != 3 || coreCount != 2 {
		t.Fatalf("board split = %d theme + %d core, want 3 + 2", oceanCount, coreCount)
	}
	if !secretOnBoard {
		t.Fatal("secret element missing from the board")
	}

	secret, err := f.store.GetElement(ctx, turn.SecretElementID)
	if err != nil {
		t.Fatalf("get secret element: %v", err)
	}
	if !secret.WhispEligible {
		t.Fatalf("secret %q is not whisp eligible", secret.ID)
	}
	if turn.Whisp != secret.Name {
		t.Fatalf("whisp = %q, want element name %q", turn.Whisp, secret.Name)
	}

	session, err := f.store.GetSession(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.SelectedThemeID != "theme-ocean" {
		t.Fatalf("selected theme = %q, want theme-ocean", session.SelectedThemeID)
	}

	// A retried request updates the same row instead of adding one.
	again, err := f.turns.StartTurn(ctx, f.session.ID, "theme-ocean")
	if err != nil {
		t.Fatalf("retried start turn: %v", err)
	}
	if again.ID != turn.ID {
		t.Fatalf("retry turn id = %q, want %q", again.ID, turn.ID)
	}
	rows, err := f.store.ListTurnsBySession(ctx, f.session.ID)
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("turn rows after retry = %d, want 3", len(rows))
	}
}

func TestStartTurnValidations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	waiting := newGameFixture(t, 2)
	if _, err := waiting.turns.StartTurn(ctx, waiting.session.ID, "theme-ocean"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("waiting lobby error = %v, want ErrInvalidStatus", err)
	}

	f := newGameFixture(t, 2)
	f.start(t)

	if _, err := f.turns.StartTurn(ctx, f.session.ID, ""); !errors.Is(err, ErrThemeIDRequired) {
		t.Fatalf("empty theme error = %v, want ErrThemeIDRequired", err)
	}
	if _, err := f.turns.StartTurn(ctx, f.session.ID, "theme-ghost"); !errors.Is(err, ErrThemeNotFound) {
		t.Fatalf("unknown theme error = %v, want ErrThemeNotFound", err)
	}
	if _, err := f.turns.StartTurn(ctx, "session-ghost", "theme-ocean"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown session error = %v, want ErrSessionNotFound", err)
	}

	bare := storage.ThemeRecord{ID: "theme-bare", Name: "Bare"}
	if err := f.store.PutTheme(ctx, bare); err != nil {
		t.Fatalf("put theme: %v", err)
	}
	if err := f.store.PutElement(ctx, storage.ElementRecord{
		ID: "el-mist", ThemeID: "theme-bare", Name: "Mist", WhispEligible: false,
	}); err != nil {
		t.Fatalf("put element: %v", err)
	}
	if _, err := f.turns.StartTurn(ctx, f.session.ID, "theme-bare"); !errors.Is(err, ErrNoElementsForTheme) {
		t.Fatalf("empty pool error = %v, want ErrNoElementsForTheme", err)
	}
}

func TestSelectSecretElementConfirms(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newGameFixture(t, 2)
	f.start(t)
	if _, err := f.turns.StartTurn(ctx, f.session.ID, "theme-ocean"); err != nil {
		t.Fatalf("start turn: %v", err)
	}

	turn, err := f.turns.SelectSecretElement(ctx, f.session.ID, "el-coral")
	if err != nil {
		t.Fatalf("select secret: %v", err)
	}
	if turn.SecretElementID != "el-coral" {
		t.Fatalf("secret = %q, want el-coral", turn.SecretElementID)
	}
	if turn.Whisp != "Coral" {
		t.Fatalf("whisp = %q, want %q", turn.Whisp, "Coral")
	}
	if turn.Phase != domain.TurnPhaseRecording {
		t.Fatalf("phase = %q, want %q", turn.Phase, domain.TurnPhaseRecording)
	}

	if _, err := f.turns.SelectSecretElement(ctx, f.session.ID, "el-ghost"); !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("unknown element error = %v, want ErrElementNotFound", err)
	}
}

func TestSubmitStoryOpensGuessing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newGameFixture(t, 2)
	f.start(t)
	if _, err := f.turns.StartTurn(ctx, f.session.ID, "theme-ocean"); err != nil {
		t.Fatalf("start turn: %v", err)
	}

	turn, err := f.turns.SubmitStory(ctx, f.session.ID, "recordings/round-1.webm")
	if err != nil {
		t.Fatalf("submit story: %v", err)
	}
	if turn.RecordingRef != "recordings/round-1.webm" {
		t.Fatalf("recording ref = %q", turn.RecordingRef)
	}
	if turn.Phase != domain.TurnPhaseSubmitted {
		t.Fatalf("phase = %q, want %q", turn.Phase, domain.TurnPhaseSubmitted)
	}

	if _, err := f.turns.SubmitStory(ctx, f.session.ID, "  "); !errors.Is(err, ErrRecordingRefRequired) {
		t.Fatalf("blank ref error = %v, want ErrRecordingRefRequired", err)
	}
}

func TestTurnOpsRejectCompletedTurn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newGameFixture(t, 2)
	f.start(t)
	turn, err := f.turns.StartTurn(ctx, f.session.ID, "theme-ocean")
	if err != nil {
		t.Fatalf("start turn: %v", err)
	}

	won, err := f.store.CompleteTurnWithWinner(ctx, turn.ID, f.players[1].ID, time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC))
	if err != nil || !won {
		t.Fatalf("complete turn = %v, %v", won, err)
	}

	if _, err := f.turns.StartTurn(ctx, f.session.ID, "theme-ocean"); !errors.Is(err, ErrTurnCompleted) {
		t.Fatalf("start turn error = %v, want ErrTurnCompleted", err)
	}
	if _, err := f.turns.SelectSecretElement(ctx, f.session.ID, "el-coral"); !errors.Is(err, ErrTurnCompleted) {
		t.Fatalf("select secret error = %v, want ErrTurnCompleted", err)
	}
	if _, err := f.turns.SubmitStory(ctx, f.session.ID, "recordings/late.webm"); !errors.Is(err, ErrTurnCompleted) {
		t.Fatalf("submit story error = %v, want ErrTurnCompleted", err)
	}
}
