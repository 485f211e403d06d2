package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/perttula/whispden/internal/game/domain"
	"github.com/perttula/whispden/internal/game/storage"
)

// fakeStore is an in-memory storage.Store with the same uniqueness and
// atomicity rules as the real backends. All methods run under one mutex, so
// the completion swap and score increment behave like their SQL versions
// under concurrent callers.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]storage.SessionRecord
	players  map[string]storage.PlayerRecord
	turns    map[string]storage.TurnRecord
	guesses  map[string]storage.GuessRecord
	themes   map[string]storage.ThemeRecord
	elements map[string]storage.ElementRecord
}

var _ storage.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]storage.SessionRecord),
		players:  make(map[string]storage.PlayerRecord),
		turns:    make(map[string]storage.TurnRecord),
		guesses:  make(map[string]storage.GuessRecord),
		themes:   make(map[string]storage.ThemeRecord),
		elements: make(map[string]storage.ElementRecord),
	}
}

func (f *fakeStore) CreateSession(_ context.Context, s storage.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.ID]; ok {
		return storage.ErrAlreadyExists
	}
	for _, existing := range f.sessions {
		if existing.LobbyCode == s.LobbyCode {
			return storage.ErrAlreadyExists
		}
	}
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (storage.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return storage.SessionRecord{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) GetSessionByLobbyCode(_ context.Context, code string) (storage.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.LobbyCode == code {
			return s, nil
		}
	}
	return storage.SessionRecord{}, storage.ErrNotFound
}

func (f *fakeStore) UpdateSession(_ context.Context, s storage.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.ID]; !ok {
		return storage.ErrNotFound
	}
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeStore) ListIdleSessions(_ context.Context, updatedBefore time.Time) ([]storage.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.SessionRecord
	for _, s := range f.sessions {
		idle := s.Status == domain.SessionStatusWaiting || s.Status == domain.SessionStatusActive
		if idle && s.UpdatedAt.Before(updatedBefore) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeStore) PurgeSessionData(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.turns {
		if t.SessionID == sessionID {
			for gid, g := range f.guesses {
				if g.TurnID == t.ID {
					delete(f.guesses, gid)
				}
			}
			delete(f.turns, id)
		}
	}
	for id, p := range f.players {
		if p.SessionID == sessionID {
			delete(f.players, id)
		}
	}
	return nil
}

func (f *fakeStore) CreatePlayer(_ context.Context, p storage.PlayerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.players[p.ID]; ok {
		return storage.ErrAlreadyExists
	}
	f.players[p.ID] = p
	return nil
}

func (f *fakeStore) GetPlayer(_ context.Context, id string) (storage.PlayerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return storage.PlayerRecord{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ListPlayersBySession(_ context.Context, sessionID string) ([]storage.PlayerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.PlayerRecord
	for _, p := range f.players {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnOrder < out[j].TurnOrder })
	return out, nil
}

func (f *fakeStore) DeletePlayer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.players[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.players, id)
	return nil
}

func (f *fakeStore) ShiftTurnOrders(_ context.Context, sessionID string, removedOrder int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.players {
		if p.SessionID == sessionID && p.TurnOrder > removedOrder {
			p.TurnOrder--
			f.players[id] = p
		}
	}
	return nil
}

func (f *fakeStore) IncrementScore(_ context.Context, playerID string, delta int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[playerID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	p.Score += delta
	f.players[playerID] = p
	return p.Score, nil
}

func (f *fakeStore) CreateTurn(_ context.Context, t storage.TurnRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.turns[t.ID]; ok {
		return storage.ErrAlreadyExists
	}
	for _, existing := range f.turns {
		if existing.SessionID == t.SessionID && existing.RoundNumber == t.RoundNumber {
			return storage.ErrAlreadyExists
		}
	}
	f.turns[t.ID] = t
	return nil
}

func (f *fakeStore) GetTurn(_ context.Context, id string) (storage.TurnRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.turns[id]
	if !ok {
		return storage.TurnRecord{}, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) GetTurnByRound(_ context.Context, sessionID string, roundNumber int) (storage.TurnRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.turns {
		if t.SessionID == sessionID && t.RoundNumber == roundNumber {
			return t, nil
		}
	}
	return storage.TurnRecord{}, storage.ErrNotFound
}

func (f *fakeStore) ListTurnsBySession(_ context.Context, sessionID string) ([]storage.TurnRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.TurnRecord
	for _, t := range f.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

func (f *fakeStore) UpdateTurn(_ context.Context, t storage.TurnRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.turns[t.ID]; !ok {
		return storage.ErrNotFound
	}
	f.turns[t.ID] = t
	return nil
}

func (f *fakeStore) CompleteTurnWithWinner(_ context.Context, turnID, winnerID string, completedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.turns[turnID]
	if !ok || t.CompletedAt != nil {
		return false, nil
	}
	t.WinnerID = winnerID
	t.CompletedAt = &completedAt
	t.Phase = domain.TurnPhaseCompleted
	t.UpdatedAt = completedAt
	f.turns[turnID] = t
	return true, nil
}

func (f *fakeStore) CreateGuess(_ context.Context, g storage.GuessRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.guesses[g.ID]; ok {
		return storage.ErrAlreadyExists
	}
	f.guesses[g.ID] = g
	return nil
}

func (f *fakeStore) CountGuesses(_ context.Context, turnID, playerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, g := range f.guesses {
		if g.TurnID == turnID && g.PlayerID == playerID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListGuessesByTurn(_ context.Context, turnID string) ([]storage.GuessRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.GuessRecord
	for _, g := range f.guesses {
		if g.TurnID == turnID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeStore) PutTheme(_ context.Context, t storage.ThemeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.themes[t.ID] = t
	return nil
}

func (f *fakeStore) GetTheme(_ context.Context, id string) (storage.ThemeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.themes[id]
	if !ok {
		return storage.ThemeRecord{}, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) ListThemes(_ context.Context) ([]storage.ThemeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.ThemeRecord
	for _, t := range f.themes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) PutElement(_ context.Context, e storage.ElementRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[e.ID] = e
	return nil
}

func (f *fakeStore) GetElement(_ context.Context, id string) (storage.ElementRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.elements[id]
	if !ok {
		return storage.ElementRecord{}, storage.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) ListElementsByTheme(_ context.Context, themeID string) ([]storage.ElementRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.ElementRecord
	for _, e := range f.elements {
		if e.ThemeID == themeID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) ListCoreElements(_ context.Context, excludeThemeID string) ([]storage.ElementRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.ElementRecord
	for _, e := range f.elements {
		theme, ok := f.themes[e.ThemeID]
		if ok && theme.Core && e.ThemeID != excludeThemeID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) CountElementsByTheme(_ context.Context, themeID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, e := range f.elements {
		if e.ThemeID == themeID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Close() error { return nil }

// sequentialIDs returns a generator producing prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	n := 0
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// clockAt returns a clock pinned to one instant.
func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticCode returns a lobby code generator that always yields code.
func staticCode(code string) func() (string, error) {
	return func() (string, error) { return code, nil }
}

// gameFixture wires every service over one fake store for scenario tests.
// players[0] is the host.
type gameFixture struct {
	store   *fakeStore
	lobby   *LobbyService
	turns   *TurnService
	guesses *GuessService
	rounds  *RoundService
	cleaner *Cleaner

	session storage.SessionRecord
	players []storage.PlayerRecord
}

// newGameFixture seeds the catalog and opens a waiting lobby with
// playerCount players joined.
func newGameFixture(t *testing.T, playerCount int) *gameFixture {
	t.Helper()
	ctx := context.Background()

	store := newFakeStore()
	seedCatalog(t, store)

	clock := clockAt(time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC))

	f := &gameFixture{store: store}
	f.cleaner = NewCleaner(store, time.Hour)
	t.Cleanup(f.cleaner.Stop)

	f.lobby = NewLobbyService(store, clock, sequentialIDs("id"), staticCode("WHISP1"))
	strategy := NewFixedSplitSelection(store, rand.New(rand.NewSource(11)))
	f.turns = NewTurnService(store, strategy, clock, sequentialIDs("turn"))
	f.rounds = NewRoundService(store, f.cleaner, clock)
	f.guesses = NewGuessService(store, NewScoreLedger(store), f.rounds, clock, sequentialIDs("guess"))

	names := []string{"Maija", "Ville", "Aino", "Okko", "Senja", "Tuuli"}
	if playerCount < 1 || playerCount > len(names) {
		t.Fatalf("player count %d outside fixture range", playerCount)
	}

	session, host, err := f.lobby.CreateSession(ctx, names[0], 0)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	f.session = session
	f.players = append(f.players, host)

	for i := 1; i < playerCount; i++ {
		_, player, err := f.lobby.JoinSession(ctx, "WHISP1", names[i])
		if err != nil {
			t.Fatalf("join session: %v", err)
		}
		f.players = append(f.players, player)
	}
	return f
}

// start activates the game and refreshes the cached session.
func (f *gameFixture) start(t *testing.T) {
	t.Helper()
	session, err := f.turns.StartGame(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	f.session = session
}

// seedCatalog stores one pickable theme plus two core themes. The Ocean
// theme has three whisp-eligible elements and one ineligible filler.
func seedCatalog(t *testing.T, store *fakeStore) {
	t.Helper()
	ctx := context.Background()
	created := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)

	themes := []storage.ThemeRecord{
		{ID: "theme-ocean", Name: "Ocean", Core: false, CreatedAt: created},
		{ID: "theme-animals", Name: "Animals", Core: true, CreatedAt: created},
		{ID: "theme-tools", Name: "Tools", Core: true, CreatedAt: created},
	}
	for _, theme := range themes {
		if err := store.PutTheme(ctx, theme); err != nil {
			t.Fatalf("put theme %s: %v", theme.ID, err)
		}
	}

	elements := []storage.ElementRecord{
		{ID: "el-wave", ThemeID: "theme-ocean", Name: "Wave", IconRef: "icons/wave.svg", WhispEligible: true},
		{ID: "el-coral", ThemeID: "theme-ocean", Name: "Coral", IconRef: "icons/coral.svg", WhispEligible: true},
		{ID: "el-anchor", ThemeID: "theme-ocean", Name: "Anchor", IconRef: "icons/anchor.svg", WhispEligible: true},
		{ID: "el-foam", ThemeID: "theme-ocean", Name: "Sea Foam", IconRef: "icons/foam.svg", WhispEligible: false},
		{ID: "el-lion", ThemeID: "theme-animals", Name: "Lion", IconRef: "icons/lion.svg", WhispEligible: true},
		{ID: "el-owl", ThemeID: "theme-animals", Name: "Owl", IconRef: "icons/owl.svg", WhispEligible: true},
		{ID: "el-hammer", ThemeID: "theme-tools", Name: "Hammer", IconRef: "icons/hammer.svg", WhispEligible: true},
	}
	for _, element := range elements {
		element.CreatedAt = created
		if err := store.PutElement(ctx, element); err != nil {
			t.Fatalf("put element %s: %v", element.ID, err)
		}
	}
}
