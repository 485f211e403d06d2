package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/perttula/whispden/internal/game/domain"
	"github.com/perttula/whispden/internal/game/storage"
)

func TestNewStrategyByName(t *testing.T) {
	t.Parallel()
	store := newFakeStore()

	tests := []struct {
		name    string
		wantErr bool
	}{
		{"", false},
		{StrategyFixedSplit, false},
		{"  Fixed_Split  ", false},
		{StrategyStorytellerChoice, false},
		{StrategyDatabaseWhisp, false},
		{StrategyAIWhisp, false},
		{"roulette", true},
	}
	for _, tc := range tests {
		strategy, err := NewStrategy(tc.name, store, nil)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("NewStrategy(%q) expected an error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewStrategy(%q): %v", tc.name, err)
		}
		if strategy == nil {
			t.Fatalf("NewStrategy(%q) returned nil strategy", tc.name)
		}
	}
}

func TestFixedSplitBoardComposition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeStore()
	seedCatalog(t, store)

	strategy := NewFixedSplitSelection(store, rand.New(rand.NewSource(7)))
	plan, err := strategy.PrepareTurn(ctx, SelectionInput{SessionID: "session-1", ThemeID: "theme-ocean"})
	if err != nil {
		t.Fatalf("prepare turn: %v", err)
	}

	if plan.Whisp == "" || plan.SecretElementID == "" {
		t.Fatalf("plan missing secret: %+v", plan)
	}
	secret, err := store.GetElement(ctx, plan.SecretElementID)
	if err != nil {
		t.Fatalf("get secret: %v", err)
	}
	if !secret.WhispEligible {
		t.Fatalf("secret %q not whisp eligible", secret.ID)
	}
	if plan.Whisp != secret.Name {
		t.Fatalf("whisp = %q, want %q", plan.Whisp, secret.Name)
	}

	if len(plan.IconIDs) != domain.IconSetSize {
		t.Fatalf("icons = %d, want %d", len(plan.IconIDs), domain.IconSetSize)
	}
	themeCount, coreCount := 0, 0
	secretOnBoard := false
	for _, id := range plan.IconIDs {
		element, err := store.GetElement(ctx, id)
		if err != nil {
			t.Fatalf("board element %q: %v", id, err)
		}
		if element.ThemeID == "theme-ocean" {
			themeCount++
		} else {
			coreCount++
		}
		if id == plan.SecretElementID {
			secretOnBoard = true
		}
	}
	if themeCount != 3 || coreCount != domain.MaxCoreIcons {
		t.Fatalf("split = %d theme + %d core, want 3 + %d", themeCount, coreCount, domain.MaxCoreIcons)
	}
	if !secretOnBoard {
		t.Fatal("secret element missing from the board")
	}
}

func TestFixedSplitSmallPoolsShrinkBoard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeStore()
	seedCatalog(t, store)

	if err := store.PutTheme(ctx, storage.ThemeRecord{ID: "theme-solo", Name: "Solo"}); err != nil {
		t.Fatalf("put theme: %v", err)
	}
	if err := store.PutElement(ctx, storage.ElementRecord{
		ID: "el-only", ThemeID: "theme-solo", Name: "Only One", WhispEligible: true,
	}); err != nil {
		t.Fatalf("put element: %v", err)
	}

	strategy := NewFixedSplitSelection(store, rand.New(rand.NewSource(7)))
	plan, err := strategy.PrepareTurn(ctx, SelectionInput{ThemeID: "theme-solo"})
	if err != nil {
		t.Fatalf("prepare turn: %v", err)
	}

	// One theme element plus all three cores: the board stops at four.
	if len(plan.IconIDs) != 4 {
		t.Fatalf("icons = %d, want 4", len(plan.IconIDs))
	}
	if plan.SecretElementID != "el-only" {
		t.Fatalf("secret = %q, want el-only", plan.SecretElementID)
	}
}

func TestFixedSplitEmptyPool(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeStore()
	if err := store.PutTheme(ctx, storage.ThemeRecord{ID: "theme-void", Name: "Void"}); err != nil {
		t.Fatalf("put theme: %v", err)
	}

	strategy := NewFixedSplitSelection(store, rand.New(rand.NewSource(7)))
	if _, err := strategy.PrepareTurn(ctx, SelectionInput{ThemeID: "theme-void"}); !errors.Is(err, ErrNoElementsForTheme) {
		t.Fatalf("error = %v, want ErrNoElementsForTheme", err)
	}
}

func TestStorytellerChoiceDefersSecret(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeStore()
	seedCatalog(t, store)

	strategy, err := NewStrategy(StrategyStorytellerChoice, store, nil)
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	plan, err := strategy.PrepareTurn(ctx, SelectionInput{ThemeID: "theme-ocean"})
	if err != nil {
		t.Fatalf("prepare turn: %v", err)
	}
	if plan.Whisp == "" {
		t.Fatal("expected a drawn whisp suggestion")
	}
	if plan.SecretElementID != "" {
		t.Fatalf("secret = %q, want deferred", plan.SecretElementID)
	}
	if len(plan.IconIDs) != 0 {
		t.Fatalf("icons = %d, want none", len(plan.IconIDs))
	}
}

func TestDatabaseWhispSkipsBoard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeStore()
	seedCatalog(t, store)

	strategy, err := NewStrategy(StrategyDatabaseWhisp, store, nil)
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	plan, err := strategy.PrepareTurn(ctx, SelectionInput{ThemeID: "theme-ocean"})
	if err != nil {
		t.Fatalf("prepare turn: %v", err)
	}
	if plan.Whisp == "" || plan.SecretElementID == "" {
		t.Fatalf("plan missing secret: %+v", plan)
	}
	if len(plan.IconIDs) != 0 {
		t.Fatalf("icons = %d, want none", len(plan.IconIDs))
	}
}

// stubGenerator returns a canned whisp or error.
type stubGenerator struct {
	whisp string
	err   error
}

func (s stubGenerator) GenerateWhisp(_ context.Context, themeName string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("%s (%s)", s.whisp, themeName), nil
}

func TestAIWhispUsesGenerator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeStore()
	seedCatalog(t, store)

	missing := &AIWhisp{catalog: store}
	if _, err := missing.PrepareTurn(ctx, SelectionInput{ThemeID: "theme-ocean"}); !errors.Is(err, ErrWhispGeneratorUnavailable) {
		t.Fatalf("nil generator error = %v, want ErrWhispGeneratorUnavailable", err)
	}

	strategy, err := NewStrategy(StrategyAIWhisp, store, stubGenerator{whisp: "midnight tide"})
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	plan, err := strategy.PrepareTurn(ctx, SelectionInput{ThemeID: "theme-ocean"})
	if err != nil {
		t.Fatalf("prepare turn: %v", err)
	}
	if plan.Whisp != "midnight tide (Ocean)" {
		t.Fatalf("whisp = %q", plan.Whisp)
	}
	if plan.SecretElementID != "" || len(plan.IconIDs) != 0 {
		t.Fatalf("generated plan should carry text only: %+v", plan)
	}

	if _, err := strategy.PrepareTurn(ctx, SelectionInput{ThemeID: "theme-ghost"}); !errors.Is(err, ErrThemeNotFound) {
		t.Fatalf("unknown theme error = %v, want ErrThemeNotFound", err)
	}

	failing, err := NewStrategy(StrategyAIWhisp, store, stubGenerator{err: errors.New("model offline")})
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	if _, err := failing.PrepareTurn(ctx, SelectionInput{ThemeID: "theme-ocean"}); err == nil {
		t.Fatal("expected generator failure to propagate")
	}
}
