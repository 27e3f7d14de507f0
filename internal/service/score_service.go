package service

import (
	"context"
	"fmt"

	"snakearena/internal/cache"
	"snakearena/internal/model"
	"snakearena/internal/repository"
)

// ScoreRecorder receives the final standings of a finished game
type ScoreRecorder interface {
	RecordFinal(ctx context.Context, result *model.GameResult) error
}

// ScoreService writes score history and the multiplayer leaderboard
type ScoreService struct {
	scores   repository.ScoreRepo
	board    cache.LeaderboardCache
	identity IdentityProvider
}

// NewScoreService creates a new score service
func NewScoreService(scores repository.ScoreRepo, board cache.LeaderboardCache, identity IdentityProvider) *ScoreService {
	return &ScoreService{
		scores:   scores,
		board:    board,
		identity: identity,
	}
}

// RecordFinal stores one score per player and raises their best leaderboard score
func (s *ScoreService) RecordFinal(ctx context.Context, result *model.GameResult) error {
	records := make([]*model.ScoreRecord, 0, len(result.Players))
	for _, p := range result.Players {
		records = append(records, &model.ScoreRecord{
			UserID:      p.UserID,
			GameID:      result.GameID,
			Mode:        result.Mode,
			Score:       p.Score,
			Won:         p.Won,
			Multiplayer: true,
			CreatedAt:   result.FinishedAt,
		})
	}
	if err := s.scores.InsertMany(ctx, records); err != nil {
		return fmt.Errorf("failed to insert scores: %w", err)
	}

	for _, p := range result.Players {
		if err := s.board.RaiseScore(ctx, p.UserID, p.Score); err != nil {
			return fmt.Errorf("failed to update leaderboard for %s: %w", p.UserID, err)
		}
	}
	return nil
}

// Top returns the best n multiplayer scores. Display names are filled in
// where the user can still be resolved.
func (s *ScoreService) Top(ctx context.Context, n int) ([]cache.LeaderboardEntry, error) {
	entries, err := s.board.GetTop(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	for i := range entries {
		if profile, err := s.identity.Lookup(ctx, entries[i].UserID); err == nil {
			entries[i].DisplayName = profile.DisplayName
		}
	}
	return entries, nil
}

// History returns the caller's most recent scores
func (s *ScoreService) History(ctx context.Context, userID string, limit int64) ([]*model.ScoreRecord, error) {
	return s.scores.ListByUser(ctx, userID, limit)
}
