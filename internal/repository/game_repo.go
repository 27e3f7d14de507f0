package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"snakearena/internal/model"
)

// GameRepo stores the history of multiplayer games
type GameRepo interface {
	Upsert(ctx context.Context, record *model.GameRecord) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]*model.GameRecord, error)
}

type gameRepo struct {
	collection *mongo.Collection
}

// NewGameRepo creates a new game repository
func NewGameRepo(db *mongo.Database) GameRepo {
	repo := &gameRepo{
		collection: db.Collection("multiplayer_games"),
	}
	createIndex(context.Background(), repo.collection, bson.D{{Key: "gameId", Value: 1}}, true)
	createIndex(context.Background(), repo.collection, bson.D{
		{Key: "players.userId", Value: 1},
		{Key: "createdAt", Value: -1},
	}, false)
	return repo
}

func (r *gameRepo) Upsert(ctx context.Context, record *model.GameRecord) error {
	record.ID = record.GameID
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"gameId": record.GameID}, record, opts)
	return err
}

func (r *gameRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.GameRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"players.userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*model.GameRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
