package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"snakearena/internal/cache"
	"snakearena/internal/game"
	"snakearena/internal/model"
	"snakearena/internal/repository"
	"snakearena/internal/service"
	"snakearena/internal/transport/ws"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func (m *memUsers) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	user.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	u.IsActive = active
	return true, nil
}

// noCache always misses
type noCache struct{}

func (noCache) Set(ctx context.Context, p *model.UserProfile) error            { return nil }
func (noCache) Get(ctx context.Context, id string) (*model.UserProfile, error) { return nil, nil }
func (noCache) Delete(ctx context.Context, id string) error                     { return nil }

type memGames struct{}

func (memGames) Upsert(ctx context.Context, r *model.GameRecord) error { return nil }
func (memGames) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.GameRecord, error) {
	return nil, nil
}

type memRooms struct {
	mu    sync.Mutex
	metas map[string]model.RoomMeta
}

func (m *memRooms) SetMeta(ctx context.Context, meta *model.RoomMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metas[meta.RoomCode] = *meta
	return nil
}

func (m *memRooms) GetMeta(ctx context.Context, code string) (*model.RoomMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if meta, ok := m.metas[code]; ok {
		return &meta, nil
	}
	return nil, nil
}

func (m *memRooms) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.metas, code)
	return nil
}

type memScores struct{}

func (memScores) InsertMany(ctx context.Context, s []*model.ScoreRecord) error { return nil }
func (memScores) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.ScoreRecord, error) {
	return nil, nil
}

type memBoard struct{}

func (memBoard) RaiseScore(ctx context.Context, userID string, score int) error { return nil }
func (memBoard) GetTop(ctx context.Context, limit int) ([]cache.LeaderboardEntry, error) {
	return []cache.LeaderboardEntry{}, nil
}

type testAPI struct {
	handler http.Handler
	games   *service.GameService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	users := &memUsers{users: make(map[string]*model.User)}
	rooms := &memRooms{metas: make(map[string]model.RoomMeta)}
	identity := service.NewIdentityService(users, noCache{})
	scores := service.NewScoreService(memScores{}, memBoard{}, identity)
	games := service.NewGameService(game.NewRegistry(), identity, scores, memGames{}, rooms, service.Timing{
		CountdownStep:  time.Hour,
		GracePeriod:    time.Hour,
		PersistTimeout: time.Second,
	})
	hub := ws.NewHub()
	games.SetBroadcaster(hub)
	t.Cleanup(func() { games.Shutdown(context.Background()) })

	return &testAPI{
		games: games,
		handler: NewRouter(&Container{
			AuthService:     service.NewAuthService(users, "test-secret"),
			IdentityService: identity,
			GameService:     games,
			ScoreService:    scores,
			RoomCache:       rooms,
			WSHub:           hub,
			PublicURL:       "https://snake.example/",
		}),
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(t *testing.T, username string) string {
	t.Helper()
	rec := a.do(t, "POST", "/v1/auth/register", "", model.RegisterRequest{Username: username, Password: "secret123"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", username, rec.Code, rec.Body)
	}
	var resp model.AuthResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
}

func TestGameFlowOverREST(t *testing.T) {
	api := newTestAPI(t)
	host := api.register(t, "host")
	guest := api.register(t, "guest")

	rec := api.do(t, "POST", "/v1/multiplayer/create", host, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var created model.CreateGameResponse
	decode(t, rec, &created)
	if created.Game.GridSize != 20 || created.Game.Speed != 100 || created.Game.MaxPlayers != 4 {
		t.Fatalf("defaults not applied: %+v", created.Game)
	}

	rec = api.do(t, "POST", "/v1/multiplayer/join", guest, model.JoinGameRequest{RoomCode: " " + strings.ToLower(created.RoomCode)})
	if rec.Code != http.StatusOK {
		t.Fatalf("join: %d %s", rec.Code, rec.Body)
	}
	var joined model.JoinGameResponse
	decode(t, rec, &joined)
	if joined.PlayerIndex != 1 || joined.SessionID != created.SessionID {
		t.Fatalf("unexpected join: %+v", joined)
	}

	gamePath := "/v1/multiplayer/game/" + created.SessionID
	if rec := api.do(t, "POST", gamePath+"/start", guest, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-host start, got %d", rec.Code)
	}
	if rec := api.do(t, "POST", gamePath+"/start", host, nil); rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body)
	}
	if rec := api.do(t, "POST", gamePath+"/start", host, nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a second start, got %d", rec.Code)
	}

	rec = api.do(t, "GET", gamePath, guest, nil)
	var info model.GameInfo
	decode(t, rec, &info)
	if info.Status != model.GameCountdown || info.CurrentPlayers != 2 || len(info.FoodPositions) != game.InitialFood {
		t.Fatalf("unexpected game info: %+v", info)
	}

	rec = api.do(t, "GET", "/v1/multiplayer/current", guest, nil)
	var cur model.CurrentGameResponse
	decode(t, rec, &cur)
	if !cur.InGame || cur.Game.GameID != created.SessionID {
		t.Fatalf("unexpected current game: %+v", cur)
	}

	if rec := api.do(t, "POST", gamePath+"/leave", guest, nil); rec.Code != http.StatusOK {
		t.Fatalf("leave: %d %s", rec.Code, rec.Body)
	}
	rec = api.do(t, "GET", "/v1/multiplayer/current", guest, nil)
	cur = model.CurrentGameResponse{}
	decode(t, rec, &cur)
	if cur.InGame {
		t.Fatalf("expected guest to be out of the game")
	}
}

func TestDeactivatedAccountCannotPlay(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "quitter")

	if rec := api.do(t, "DELETE", "/v1/users/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
	if rec := api.do(t, "DELETE", "/v1/users/me", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("deactivate: %d %s", rec.Code, rec.Body)
	}
	if rec := api.do(t, "POST", "/v1/multiplayer/create", token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 creating a game after deactivation, got %d", rec.Code)
	}
	rec := api.do(t, "POST", "/v1/auth/login", "", model.LoginRequest{Username: "quitter", Password: "secret123"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected login to be refused, got %d", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	api := newTestAPI(t)
	host := api.register(t, "host")
	other := api.register(t, "other")
	third := api.register(t, "third")

	rec := api.do(t, "POST", "/v1/multiplayer/create", host, model.CreateGameRequest{MaxPlayers: 2})
	var created model.CreateGameResponse
	decode(t, rec, &created)
	api.do(t, "POST", "/v1/multiplayer/join", other, model.JoinGameRequest{RoomCode: created.RoomCode})

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		want   int
	}{
		{"missing bearer", "POST", "/v1/multiplayer/create", "", nil, http.StatusUnauthorized},
		{"bad bearer", "POST", "/v1/multiplayer/create", "nope", nil, http.StatusUnauthorized},
		{"grid too large", "POST", "/v1/multiplayer/create", third, model.CreateGameRequest{GridSize: 45}, http.StatusBadRequest},
		{"speed too low", "POST", "/v1/multiplayer/create", third, model.CreateGameRequest{Speed: 20}, http.StatusBadRequest},
		{"short code", "POST", "/v1/multiplayer/join", third, model.JoinGameRequest{RoomCode: "AB"}, http.StatusBadRequest},
		{"unknown code", "POST", "/v1/multiplayer/join", third, model.JoinGameRequest{RoomCode: "ZZZZZZ"}, http.StatusNotFound},
		{"full room", "POST", "/v1/multiplayer/join", third, model.JoinGameRequest{RoomCode: created.RoomCode}, http.StatusConflict},
		{"unknown game", "GET", "/v1/multiplayer/game/missing", third, nil, http.StatusNotFound},
		{"stranger start", "POST", "/v1/multiplayer/game/" + created.SessionID + "/start", third, nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		rec := api.do(t, tc.method, tc.path, tc.token, tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d %s", tc.name, tc.want, rec.Code, rec.Body)
			continue
		}
		var body map[string]string
		json.NewDecoder(rec.Body).Decode(&body)
		if body["error"] == "" {
			t.Errorf("%s: expected an error message", tc.name)
		}
	}
}

func TestAuthEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice")

	if rec := api.do(t, "POST", "/v1/auth/register", "", model.RegisterRequest{Username: "alice", Password: "secret123"}); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a taken username, got %d", rec.Code)
	}
	if rec := api.do(t, "POST", "/v1/auth/register", "", model.RegisterRequest{Username: "bo", Password: "secret123"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a short username, got %d", rec.Code)
	}
	if rec := api.do(t, "POST", "/v1/auth/login", "", model.LoginRequest{Username: "alice", Password: "wrong"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a wrong password, got %d", rec.Code)
	}
	rec := api.do(t, "POST", "/v1/auth/login", "", model.LoginRequest{Username: "alice", Password: "secret123"})
	var resp model.AuthResponse
	decode(t, rec, &resp)
	if resp.Token == "" || resp.UserID == "" {
		t.Fatalf("expected a token, got %+v", resp)
	}
}

func TestRoomPreviewAndQR(t *testing.T) {
	api := newTestAPI(t)
	host := api.register(t, "host")

	rec := api.do(t, "POST", "/v1/multiplayer/create", host, nil)
	var created model.CreateGameResponse
	decode(t, rec, &created)

	rec = api.do(t, "GET", "/v1/multiplayer/rooms/"+strings.ToLower(created.RoomCode), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", rec.Code, rec.Body)
	}
	var meta model.RoomMeta
	decode(t, rec, &meta)
	if meta.GameID != created.SessionID || meta.CurrentPlayers != 1 || meta.Status != model.GameWaiting {
		t.Fatalf("unexpected preview %+v", meta)
	}

	rec = api.do(t, "GET", "/v1/multiplayer/rooms/"+created.RoomCode+"/qr", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("qr: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("expected a PNG body")
	}

	if rec := api.do(t, "GET", "/v1/multiplayer/rooms/QQQQQQ", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown room, got %d", rec.Code)
	}
	if rec := api.do(t, "GET", "/v1/multiplayer/rooms/QQQQQQ/qr", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown room QR, got %d", rec.Code)
	}
}

func TestHealthCORSAndLeaderboard(t *testing.T) {
	api := newTestAPI(t)

	if rec := api.do(t, "GET", "/v1/leaderboard?top=500", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("leaderboard: %d", rec.Code)
	}

	rec := api.do(t, "OPTIONS", "/v1/multiplayer/create", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected preflight to pass without auth, got %d", rec.Code)
	}

	if rec := api.do(t, "GET", "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	api.games.Shutdown(context.Background())
	if rec := api.do(t, "GET", "/health", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after shutdown, got %d", rec.Code)
	}
}
