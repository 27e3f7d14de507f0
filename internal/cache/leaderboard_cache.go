package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const multiplayerBoardKey = "leaderboard:multiplayer"

// LeaderboardCache handles the Redis ZSET of best multiplayer scores
type LeaderboardCache interface {
	RaiseScore(ctx context.Context, userID string, score int) error
	GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// LeaderboardEntry represents a single leaderboard entry
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	Rank        int    `json:"rank"`
}

type leaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
	}
}

// RaiseScore stores score as the user's best unless a higher one is already recorded
func (c *leaderboardCache) RaiseScore(ctx context.Context, userID string, score int) error {
	return c.client.ZAddArgs(ctx, multiplayerBoardKey, redis.ZAddArgs{
		GT: true,
		Members: []redis.Z{{
			Score:  float64(score),
			Member: userID,
		}},
	}).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, multiplayerBoardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		entries[i] = LeaderboardEntry{
			UserID: member,
			Score:  int(z.Score),
			Rank:   i + 1,
		}
	}
	return entries, nil
}
