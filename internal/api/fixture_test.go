package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/perttula/whispden/internal/game/service"
	"github.com/perttula/whispden/internal/game/storage"
	"github.com/perttula/whispden/internal/game/storage/sqlite"
	"github.com/perttula/whispden/internal/relay"
)

// apiFixture serves the full router over a real sqlite store, so handler
// tests cover the same wiring the server runs.
type apiFixture struct {
	t      *testing.T
	store  *sqlite.Store
	server *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "game.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	seedCatalog(t, store)

	clock := func() time.Time {
		return time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	}

	cleaner := service.NewCleaner(store, time.Hour)
	t.Cleanup(cleaner.Stop)

	lobby := service.NewLobbyService(store, clock, sequentialIDs("id"), staticCode("WHISP1"))
	strategy := service.NewFixedSplitSelection(store, rand.New(rand.NewSource(7)))
	turns := service.NewTurnService(store, strategy, clock, sequentialIDs("turn"))
	rounds := service.NewRoundService(store, cleaner, clock)
	guesses := service.NewGuessService(store, service.NewScoreLedger(store), rounds, clock, sequentialIDs("guess"))

	server := httptest.NewServer(NewRouter(lobby, turns, guesses, rounds, relay.NewHub()))
	t.Cleanup(server.Close)

	return &apiFixture{t: t, store: store, server: server}
}

// seedCatalog stores one pickable theme plus two core themes. The Ocean
// theme has three whisp-eligible elements and one ineligible filler.
func seedCatalog(t *testing.T, store *sqlite.Store) {
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

// staticCode returns a lobby code generator that always yields code.
func staticCode(code string) func() (string, error) {
	return func() (string, error) { return code, nil }
}

// post sends a JSON body and decodes the JSON response.
func (f *apiFixture) post(path string, body any) (int, map[string]any) {
	f.t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		f.t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		f.t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		f.t.Fatalf("decode response of POST %s: %v", path, err)
	}
	return resp.StatusCode, decoded
}

// get fetches a path and decodes the JSON response.
func (f *apiFixture) get(path string) (int, map[string]any) {
	f.t.Helper()

	resp, err := http.Get(f.server.URL + path)
	if err != nil {
		f.t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		f.t.Fatalf("decode response of GET %s: %v", path, err)
	}
	return resp.StatusCode, decoded
}

// openLobby creates a session and joins the remaining players. The first
// name is the host. Returns the session view and players in join order.
func (f *apiFixture) openLobby(names ...string) (map[string]any, []map[string]any) {
	f.t.Helper()

	status, body := f.post("/api/sessions", map[string]any{"hostName": names[0]})
	if status != http.StatusCreated {
		f.t.Fatalf("create session: status %d, body %v", status, body)
	}
	session := sub(f.t, body, "session")
	code := str(f.t, session, "lobbyCode")
	players := []map[string]any{sub(f.t, body, "player")}

	for _, name := range names[1:] {
		status, body := f.post("/api/lobbies/"+code+"/join", map[string]any{"playerName": name})
		if status != http.StatusOK {
			f.t.Fatalf("join %s: status %d, body %v", name, status, body)
		}
		players = append(players, sub(f.t, body, "player"))
	}
	return session, players
}

// startGame activates the session and returns the refreshed session view.
func (f *apiFixture) startGame(sessionID string) map[string]any {
	f.t.Helper()

	status, body := f.post("/api/sessions/"+sessionID+"/start", map[string]any{})
	if status != http.StatusOK {
		f.t.Fatalf("start game: status %d, body %v", status, body)
	}
	return sub(f.t, body, "session")
}

// startTurn assigns the round's theme and returns the storyteller's turn view.
func (f *apiFixture) startTurn(sessionID, themeID string) map[string]any {
	f.t.Helper()

	status, body := f.post("/api/sessions/"+sessionID+"/turns", map[string]any{"themeId": themeID})
	if status != http.StatusOK {
		f.t.Fatalf("start turn: status %d, body %v", status, body)
	}
	return sub(f.t, body, "turn")
}

// selectSecret confirms the storyteller's secret element.
func (f *apiFixture) selectSecret(sessionID, elementID string) map[string]any {
	f.t.Helper()

	status, body := f.post("/api/sessions/"+sessionID+"/turns/current/secret", map[string]any{"elementId": elementID})
	if status != http.StatusOK {
		f.t.Fatalf("select secret: status %d, body %v", status, body)
	}
	return sub(f.t, body, "turn")
}

// submitStory attaches a recording and opens the turn for guessing.
func (f *apiFixture) submitStory(sessionID, recordingRef string) map[string]any {
	f.t.Helper()

	status, body := f.post("/api/sessions/"+sessionID+"/turns/current/story", map[string]any{"recordingRef": recordingRef})
	if status != http.StatusOK {
		f.t.Fatalf("submit story: status %d, body %v", status, body)
	}
	return sub(f.t, body, "turn")
}

// state fetches the game state as seen by viewerID. An empty viewerID
// fetches the anonymous view.
func (f *apiFixture) state(sessionID, viewerID string) map[string]any {
	f.t.Helper()

	path := "/api/sessions/" + sessionID + "/state"
	if viewerID != "" {
		path += "?playerId=" + viewerID
	}
	status, body := f.get(path)
	if status != http.StatusOK {
		f.t.Fatalf("get state: status %d, body %v", status, body)
	}
	return body
}

func sub(t *testing.T, m map[string]any, key string) map[string]any {
	t.Helper()
	v, ok := m[key].(map[string]any)
	if !ok {
		t.Fatalf("missing object %q in %v", key, m)
	}
	return v
}

func str(t *testing.T, m map[string]any, key string) string {
	t.Helper()
	v, ok := m[key].(string)
	if !ok {
		t.Fatalf("missing string %q in %v", key, m)
	}
	return v
}

func num(t *testing.T, m map[string]any, key string) int {
	t.Helper()
	v, ok := m[key].(float64)
	if !ok {
		t.Fatalf("missing number %q in %v", key, m)
	}
	return int(v)
}
