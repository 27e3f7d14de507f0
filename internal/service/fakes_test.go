package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"snakearena/internal/model"
)

type fakeIdentity struct {
	profiles map[string]*model.UserProfile
}

func newFakeIdentity(ids ...string) *fakeIdentity {
	f := &fakeIdentity{profiles: make(map[string]*model.UserProfile)}
	for _, id := range ids {
		f.profiles[id] = &model.UserProfile{UserID: id, Username: id, DisplayName: "Player " + id, IsActive: true}
	}
	return f
}

func (f *fakeIdentity) Lookup(ctx context.Context, userID string) (*model.UserProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if !p.IsActive {
		return nil, ErrUserInactive
	}
	cp := *p
	return &cp, nil
}

type fakeScores struct {
	mu      sync.Mutex
	results []*model.GameResult
	err     error
}

func (f *fakeScores) RecordFinal(ctx context.Context, result *model.GameResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
	return f.err
}

func (f *fakeScores) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeScores) all() []*model.GameResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.GameResult(nil), f.results...)
}

type fakeGameRepo struct {
	mu      sync.Mutex
	records map[string]model.GameRecord
}

func newFakeGameRepo() *fakeGameRepo {
	return &fakeGameRepo{records: make(map[string]model.GameRecord)}
}

func (f *fakeGameRepo) Upsert(ctx context.Context, record *model.GameRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.GameID] = *record
	return nil
}

func (f *fakeGameRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.GameRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []*model.GameRecord
	for _, r := range f.records {
		for _, p := range r.Players {
			if p.UserID == userID {
				rec := r
				list = append(list, &rec)
				break
			}
		}
	}
	return list, nil
}

func (f *fakeGameRepo) get(gameID string) (model.GameRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[gameID]
	return r, ok
}

type fakeRoomCache struct {
	mu    sync.Mutex
	metas map[string]model.RoomMeta
	// beforeSet runs ahead of every write, outside the lock
	beforeSet func()
}

func newFakeRoomCache() *fakeRoomCache {
	return &fakeRoomCache{metas: make(map[string]model.RoomMeta)}
}

func (f *fakeRoomCache) SetMeta(ctx context.Context, meta *model.RoomMeta) error {
	if hook := f.beforeSet; hook != nil {
		f.beforeSet = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metas[meta.RoomCode] = *meta
	return nil
}

func (f *fakeRoomCache) GetMeta(ctx context.Context, code string) (*model.RoomMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.metas[code]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeRoomCache) Delete(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.metas, code)
	return nil
}

type sent struct {
	sessionID string
	msgType   string
	payload   interface{}
}

type fakeBroadcaster struct {
	mu           sync.Mutex
	msgs         []sent
	closed       map[string]bool
	disconnected map[string][]string
	gameOver     chan sent
	// failOn makes the first matching broadcast panic, once
	failOn func(sent) bool
	failed bool
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{
		closed:       make(map[string]bool),
		disconnected: make(map[string][]string),
		gameOver:     make(chan sent, 8),
	}
}

func (f *fakeBroadcaster) Broadcast(sessionID, msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed[sessionID] {
		panic("broadcast to a closed session " + sessionID)
	}
	m := sent{sessionID: sessionID, msgType: msgType, payload: payload}
	if f.failOn != nil && !f.failed && f.failOn(m) {
		f.failed = true
		panic("broadcast failed")
	}
	f.msgs = append(f.msgs, m)
	if msgType == model.MsgGameOver {
		f.gameOver <- m
	}
}

func (f *fakeBroadcaster) DisconnectUser(sessionID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected[sessionID] = append(f.disconnected[sessionID], userID)
}

func (f *fakeBroadcaster) CloseSession(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed[sessionID] = true
}

func (f *fakeBroadcaster) messages(sessionID string) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, m := range f.msgs {
		if m.sessionID == sessionID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBroadcaster) isClosed(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed[sessionID]
}

func (f *fakeBroadcaster) disconnects(sessionID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.disconnected[sessionID]...)
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
