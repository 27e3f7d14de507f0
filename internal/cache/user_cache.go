package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"snakearena/internal/model"
)

// UserCache keeps recently looked up profiles in Redis
type UserCache interface {
	Set(ctx context.Context, profile *model.UserProfile) error
	Get(ctx context.Context, userID string) (*model.UserProfile, error)
	Delete(ctx context.Context, userID string) error
}

type userCache struct {
	client *redis.Client
}

func NewUserCache(client *redis.Client) UserCache {
	return &userCache{
		client: client,
	}
}

func (c *userCache) Set(ctx context.Context, profile *model.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "user:"+profile.UserID, data, 10*time.Minute).Err()
}

// Get returns nil, nil on a miss
func (c *userCache) Get(ctx context.Context, userID string) (*model.UserProfile, error) {
	data, err := c.client.Get(ctx, "user:"+userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var profile model.UserProfile
	err = json.Unmarshal([]byte(data), &profile)
	return &profile, err
}

func (c *userCache) Delete(ctx context.Context, userID string) error {
	return c.client.Del(ctx, "user:"+userID).Err()
}
