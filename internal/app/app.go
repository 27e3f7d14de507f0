package app

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"snakearena/internal/cache"
	"snakearena/internal/repository"
)

// App groups the storage-backed dependencies shared by the services
type App struct {
	UserRepo  repository.UserRepo
	GameRepo  repository.GameRepo
	ScoreRepo repository.ScoreRepo

	UserCache   cache.UserCache
	RoomCache   cache.RoomCache
	Leaderboard cache.LeaderboardCache
}

// New builds the repositories and caches over db and rdb
func New(db *mongo.Database, rdb *redis.Client) *App {
	return &App{
		UserRepo:    repository.NewUserRepo(db),
		GameRepo:    repository.NewGameRepo(db),
		ScoreRepo:   repository.NewScoreRepo(db),
		UserCache:   cache.NewUserCache(rdb),
		RoomCache:   cache.NewRoomCache(rdb),
		Leaderboard: cache.NewLeaderboardCache(rdb),
	}
}
