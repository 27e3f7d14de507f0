package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"snakearena/internal/cache"
	"snakearena/internal/model"
)

type fakeScoreRepo struct {
	mu     sync.Mutex
	scores []*model.ScoreRecord
}

func (f *fakeScoreRepo) InsertMany(ctx context.Context, scores []*model.ScoreRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = append(f.scores, scores...)
	return nil
}

func (f *fakeScoreRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.ScoreRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ScoreRecord
	for _, s := range f.scores {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeBoard keeps the best score per user like ZADD GT does
type fakeBoard struct {
	best map[string]int
}

func (f *fakeBoard) RaiseScore(ctx context.Context, userID string, score int) error {
	if cur, ok := f.best[userID]; !ok || score > cur {
		f.best[userID] = score
	}
	return nil
}

func (f *fakeBoard) GetTop(ctx context.Context, limit int) ([]cache.LeaderboardEntry, error) {
	var entries []cache.LeaderboardEntry
	for id, score := range f.best {
		entries = append(entries, cache.LeaderboardEntry{UserID: id, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func TestRecordFinalKeepsBestScore(t *testing.T) {
	repo := &fakeScoreRepo{}
	board := &fakeBoard{best: map[string]int{"u1": 50}}
	svc := NewScoreService(repo, board, newFakeIdentity("u1", "u2"))
	winner := "u2"

	err := svc.RecordFinal(context.Background(), &model.GameResult{
		GameID:   "g1",
		Mode:     "classic",
		WinnerID: &winner,
		Players: []model.PlayerResult{
			{UserID: "u1", Score: 30},
			{UserID: "u2", Score: 40, Won: true},
		},
		FinishedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(repo.scores) != 2 {
		t.Fatalf("expected 2 score records, got %d", len(repo.scores))
	}
	for _, s := range repo.scores {
		if !s.Multiplayer || s.GameID != "g1" || s.Won != (s.UserID == "u2") {
			t.Fatalf("unexpected score record %+v", s)
		}
	}
	if board.best["u1"] != 50 || board.best["u2"] != 40 {
		t.Fatalf("unexpected leaderboard %v", board.best)
	}

	top, err := svc.Top(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].UserID != "u1" || top[0].DisplayName != "Player u1" || top[1].Rank != 2 {
		t.Fatalf("unexpected top list %+v", top)
	}
}
