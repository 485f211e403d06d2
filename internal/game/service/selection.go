package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/perttula/whispden/internal/game/domain"
	"github.com/perttula/whispden/internal/game/storage"
	"github.com/perttula/whispden/internal/random"
)

// SelectionInput carries what a strategy needs to prepare a turn.
type SelectionInput struct {
	SessionID string
	ThemeID   string
}

// TurnPlan is a strategy's answer: the secret whisp and the icon set shown
// to guessers. Strategies that defer the secret to the storyteller leave
// SecretElementID empty; strategies without a server-built board leave
// IconIDs empty.
type TurnPlan struct {
	Whisp           string
	SecretElementID string
	IconIDs         []string
}

// SelectionStrategy prepares the whisp and icon set when the storyteller
// selects a theme.
type SelectionStrategy interface {
	PrepareTurn(ctx context.Context, in SelectionInput) (TurnPlan, error)
}

// Strategy names accepted by NewStrategy.
const (
	StrategyFixedSplit        = "fixed_split"
	StrategyStorytellerChoice = "storyteller_choice"
	StrategyDatabaseWhisp     = "database_whisp"
	StrategyAIWhisp           = "ai_whisp"
)

// NewStrategy builds the selection strategy registered under name. An empty
// name selects the fixed split. The generator is only consulted by the
// ai_whisp strategy and may be nil otherwise.
func NewStrategy(name string, catalog storage.CatalogStore, gen WhispGenerator) (SelectionStrategy, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", StrategyFixedSplit:
		return NewFixedSplitSelection(catalog, nil), nil
	case StrategyStorytellerChoice:
		return &StorytellerChoice{catalog: catalog, rng: newLockedRand(nil)}, nil
	case StrategyDatabaseWhisp:
		return &DatabaseWhisp{catalog: catalog, rng: newLockedRand(nil)}, nil
	case StrategyAIWhisp:
		return &AIWhisp{catalog: catalog, gen: gen}, nil
	default:
		return nil, fmt.Errorf("unknown selection strategy %q", name)
	}
}

// lockedRand serializes draws from a rand.Rand shared across request
// goroutines. rand.Rand itself is not safe for concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand(rng *rand.Rand) *lockedRand {
	if rng == nil {
		var err error
		rng, err = random.NewRand()
		if err != nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	return &lockedRand{rng: rng}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rng.Shuffle(n, swap)
}

// drawWhispElement picks a uniformly random whisp-eligible element from the
// theme's pool.
func drawWhispElement(ctx context.Context, catalog storage.CatalogStore, themeID string, rng *lockedRand) (storage.ElementRecord, []storage.ElementRecord, error) {
	elements, err := catalog.ListElementsByTheme(ctx, themeID)
	if err != nil {
		return storage.ElementRecord{}, nil, fmt.Errorf("list theme elements: %w", err)
	}

	var pool []storage.ElementRecord
	for _, e := range elements {
		if e.WhispEligible {
			pool = append(pool, e)
		}
	}
	if len(pool) == 0 {
		return storage.ElementRecord{}, nil, ErrNoElementsForTheme
	}
	return pool[rng.Intn(len(pool))], elements, nil
}

// FixedSplitSelection is the default strategy. It draws the whisp from the
// theme's eligible elements and builds a five-icon board: up to two icons
// backfilled from core themes and the rest, whisp included, from the
// selected theme. The final board order is shuffled so the whisp's slot
// carries no signal, and that order is stored as-is.
type FixedSplitSelection struct {
	catalog storage.CatalogStore
	rng     *lockedRand
}

// NewFixedSplitSelection builds the default strategy. A nil rng is replaced
// with a freshly seeded one.
func NewFixedSplitSelection(catalog storage.CatalogStore, rng *rand.Rand) *FixedSplitSelection {
	return &FixedSplitSelection{catalog: catalog, rng: newLockedRand(rng)}
}

func (f *FixedSplitSelection) PrepareTurn(ctx context.Context, in SelectionInput) (TurnPlan, error) {
	if f == nil || f.catalog == nil {
		return TurnPlan{}, ErrStoreNotConfigured
	}

	secret, themeElements, err := drawWhispElement(ctx, f.catalog, in.ThemeID, f.rng)
	if err != nil {
		return TurnPlan{}, err
	}

	coreElements, err := f.catalog.ListCoreElements(ctx, in.ThemeID)
	if err != nil {
		return TurnPlan{}, fmt.Errorf("list core elements: %w", err)
	}

	return TurnPlan{
		Whisp:           secret.Name,
		SecretElementID: secret.ID,
		IconIDs:         f.buildIconSet(secret, themeElements, coreElements),
	}, nil
}

func (f *FixedSplitSelection) buildIconSet(secret storage.ElementRecord, themeElements, coreElements []storage.ElementRecord) []string {
	themePool := make([]storage.ElementRecord, 0, len(themeElements))
	for _, e := range themeElements {
		if e.ID != secret.ID {
			themePool = append(themePool, e)
		}
	}
	corePool := make([]storage.ElementRecord, len(coreElements))
	copy(corePool, coreElements)

	coreCount := domain.MaxCoreIcons
	if coreCount > len(corePool) {
		coreCount = len(corePool)
	}
	themeCount := domain.IconSetSize - coreCount

	picks := make([]storage.ElementRecord, 0, domain.IconSetSize)
	picks = append(picks, secret)

	f.rng.Shuffle(len(themePool), func(i, j int) {
		themePool[i], themePool[j] = themePool[j], themePool[i]
	})
	for _, e := range themePool {
		if len(picks) >= themeCount {
			break
		}
		picks = append(picks, e)
	}

	// Cores backfill the remainder, taking extra slots when the theme pool
	// ran short of its quota.
	f.rng.Shuffle(len(corePool), func(i, j int) {
		corePool[i], corePool[j] = corePool[j], corePool[i]
	})
	for _, e := range corePool {
		if len(picks) >= domain.IconSetSize {
			break
		}
		picks = append(picks, e)
	}

	// The whisp must not sit in a predictable slot.
	f.rng.Shuffle(len(picks), func(i, j int) {
		picks[i], picks[j] = picks[j], picks[i]
	})

	ids := make([]string, len(picks))
	for i, e := range picks {
		ids[i] = e.ID
	}
	return ids
}

// StorytellerChoice draws a whisp suggestion from the pool but leaves the
// secret element unconfirmed. The storyteller picks icons client-side and
// confirms the secret through SelectSecretElement.
type StorytellerChoice struct {
	catalog storage.CatalogStore
	rng     *lockedRand
}

func (s *StorytellerChoice) PrepareTurn(ctx context.Context, in SelectionInput) (TurnPlan, error) {
	if s == nil || s.catalog == nil {
		return TurnPlan{}, ErrStoreNotConfigured
	}
	secret, _, err := drawWhispElement(ctx, s.catalog, in.ThemeID, s.rng)
	if err != nil {
		return TurnPlan{}, err
	}
	return TurnPlan{Whisp: secret.Name}, nil
}

// DatabaseWhisp draws the whisp and its element from the pool without
// building a board, for clients that render their own.
type DatabaseWhisp struct {
	catalog storage.CatalogStore
	rng     *lockedRand
}

func (d *DatabaseWhisp) PrepareTurn(ctx context.Context, in SelectionInput) (TurnPlan, error) {
	if d == nil || d.catalog == nil {
		return TurnPlan{}, ErrStoreNotConfigured
	}
	secret, _, err := drawWhispElement(ctx, d.catalog, in.ThemeID, d.rng)
	if err != nil {
		return TurnPlan{}, err
	}
	return TurnPlan{Whisp: secret.Name, SecretElementID: secret.ID}, nil
}

// WhispGenerator produces whisp text for a theme from an external source.
type WhispGenerator interface {
	GenerateWhisp(ctx context.Context, themeName string) (string, error)
}

// AIWhisp asks an injected generator for the whisp instead of drawing from
// the catalog. Kept as a pluggable variant for older clients; never the
// default.
type AIWhisp struct {
	catalog storage.CatalogStore
	gen     WhispGenerator
}

func (a *AIWhisp) PrepareTurn(ctx context.Context, in SelectionInput) (TurnPlan, error) {
	if a == nil || a.catalog == nil {
		return TurnPlan{}, ErrStoreNotConfigured
	}
	if a.gen == nil {
		return TurnPlan{}, ErrWhispGeneratorUnavailable
	}

	theme, err := a.catalog.GetTheme(ctx, in.ThemeID)
	if err != nil {
		if isNotFound(err) {
			return TurnPlan{}, ErrThemeNotFound
		}
		return TurnPlan{}, fmt.Errorf("get theme: %w", err)
	}

	whisp, err := a.gen.GenerateWhisp(ctx, theme.Name)
	if err != nil {
		return TurnPlan{}, fmt.Errorf("generate whisp: %w", err)
	}
	whisp = strings.TrimSpace(whisp)
	if whisp == "" {
		return TurnPlan{}, fmt.Errorf("generate whisp: empty result")
	}
	return TurnPlan{Whisp: whisp}, nil
}
