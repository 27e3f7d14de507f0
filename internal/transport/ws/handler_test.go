package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"snakearena/internal/model"
)

type fakeAuth struct{}

func (fakeAuth) ValidateToken(token string) (*model.UserClaims, error) {
	if !strings.HasPrefix(token, "token-") {
		return nil, errors.New("invalid token")
	}
	id := strings.TrimPrefix(token, "token-")
	return &model.UserClaims{UserID: id, Username: id}, nil
}

type call struct {
	op     string
	userID string
	gameID string
	dir    model.Direction
}

type fakeGames struct {
	mu      sync.Mutex
	members map[string]map[string]bool
	calls   chan call
}

func newFakeGames() *fakeGames {
	return &fakeGames{
		members: map[string]map[string]bool{"g1": {"u1": true, "u2": true}},
		calls:   make(chan call, 16),
	}
}

func (f *fakeGames) Admit(userID, gameID string, attach func(*model.GameState)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	members, ok := f.members[gameID]
	if !ok {
		return errors.New("game not found")
	}
	if !members[userID] {
		return errors.New("not in this game")
	}
	attach(&model.GameState{GameID: gameID, Status: model.GameWaiting})
	return nil
}

func (f *fakeGames) Move(userID, gameID string, dir model.Direction) bool {
	f.calls <- call{op: "move", userID: userID, gameID: gameID, dir: dir}
	return true
}

func (f *fakeGames) StartGame(ctx context.Context, userID, gameID string) error {
	f.calls <- call{op: "start", userID: userID, gameID: gameID}
	if userID != "u1" {
		return errors.New("only the host can start the game")
	}
	return nil
}

func (f *fakeGames) LeaveGame(ctx context.Context, userID, gameID string) error {
	f.calls <- call{op: "leave", userID: userID, gameID: gameID}
	return nil
}

func (f *fakeGames) Disconnect(userID, gameID string) {
	f.calls <- call{op: "disconnect", userID: userID, gameID: gameID}
}

func (f *fakeGames) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a game call")
	}
	return call{}
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub, *fakeGames) {
	t.Helper()
	hub := NewHub()
	games := newFakeGames()
	h := NewHandler(hub, fakeAuth{}, games)

	r := mux.NewRouter()
	r.HandleFunc("/v1/multiplayer/ws/{gameId}", h.GameWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub, games
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

type envelope struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

func TestRejectedConnectionsGetAnError(t *testing.T) {
	srv, _, _ := newTestServer(t)

	cases := []struct {
		path string
		want string
	}{
		{"/v1/multiplayer/ws/g1", "missing token"},
		{"/v1/multiplayer/ws/g1?token=bogus", "invalid token"},
		{"/v1/multiplayer/ws/nope?token=token-u1", "game not found"},
		{"/v1/multiplayer/ws/g1?token=token-u9", "not in this game"},
	}
	for _, tc := range cases {
		conn := dial(t, srv, tc.path)
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("%s: read failed: %v", tc.path, err)
		}
		if env.Type != model.MsgError || env.Payload["message"] != tc.want {
			t.Fatalf("%s: unexpected message %+v", tc.path, env)
		}
		if _, _, err := conn.ReadMessage(); err == nil {
			t.Fatalf("%s: expected the channel to be closed", tc.path)
		}
	}
}

func TestAdmittedConnectionFlow(t *testing.T) {
	srv, hub, games := newTestServer(t)
	conn := dial(t, srv, "/v1/multiplayer/ws/g1?token=token-u1")

	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatal(err)
	}
	if env.Type != model.MsgGameState || env.Payload["gameId"] != "g1" {
		t.Fatalf("expected initial snapshot, got %+v", env)
	}

	if err := conn.WriteJSON(model.PlayerAction{Action: model.ActionMove, Direction: model.DirUp}); err != nil {
		t.Fatal(err)
	}
	if c := games.next(t); c.op != "move" || c.dir != model.DirUp || c.userID != "u1" || c.gameID != "g1" {
		t.Fatalf("unexpected call %+v", c)
	}

	// unknown and malformed input is ignored
	conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"dance"}`))
	conn.WriteMessage(websocket.TextMessage, []byte(`not json`))

	hub.Broadcast("g1", model.MsgCountdown, model.CountdownTick{Count: 2})
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatal(err)
	}
	if env.Type != model.MsgCountdown || env.Payload["count"] != float64(2) {
		t.Fatalf("expected countdown broadcast, got %+v", env)
	}

	conn.WriteJSON(model.PlayerAction{Action: model.ActionLeave})
	if c := games.next(t); c.op != "leave" {
		t.Fatalf("expected leave, got %+v", c)
	}
	if c := games.next(t); c.op != "disconnect" {
		t.Fatalf("expected disconnect after leave, got %+v", c)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the channel to be closed after leave")
	}
}

func TestStartErrorIsReported(t *testing.T) {
	srv, _, games := newTestServer(t)
	conn := dial(t, srv, "/v1/multiplayer/ws/g1?token=token-u2")

	var env envelope
	conn.ReadJSON(&env)

	conn.WriteJSON(model.PlayerAction{Action: model.ActionStart})
	if c := games.next(t); c.op != "start" {
		t.Fatalf("expected start, got %+v", c)
	}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatal(err)
	}
	if env.Type != model.MsgError || env.Payload["message"] != "only the host can start the game" {
		t.Fatalf("expected start error, got %+v", env)
	}
}

func TestClientCloseDisconnects(t *testing.T) {
	srv, hub, games := newTestServer(t)
	conn := dial(t, srv, "/v1/multiplayer/ws/g1?token=token-u2")

	var env envelope
	conn.ReadJSON(&env)
	if hub.Count("g1") != 1 {
		t.Fatalf("expected one registered connection, got %d", hub.Count("g1"))
	}

	conn.Close()
	if c := games.next(t); c.op != "disconnect" || c.userID != "u2" {
		t.Fatalf("expected disconnect for u2, got %+v", c)
	}
	if hub.Count("g1") != 0 {
		t.Fatalf("expected connection to be unregistered")
	}
}

func TestMsgpackChannel(t *testing.T) {
	srv, _, games := newTestServer(t)
	conn := dial(t, srv, "/v1/multiplayer/ws/g1?token=token-u1&encoding=msgpack")

	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("expected a binary frame, got %d", kind)
	}
	var env map[string]interface{}
	if err := msgpack.Unmarshal(data, &env); err != nil {
		t.Fatal(err)
	}
	if env["type"] != model.MsgGameState {
		t.Fatalf("unexpected envelope %v", env)
	}

	move, _ := msgpack.Marshal(model.PlayerAction{Action: model.ActionMove, Direction: model.DirLeft})
	conn.WriteMessage(websocket.BinaryMessage, move)
	if c := games.next(t); c.op != "move" || c.dir != model.DirLeft {
		t.Fatalf("unexpected call %+v", c)
	}
}
