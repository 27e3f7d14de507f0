package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"snakearena/internal/model"
)

type ScoreRepo interface {
	InsertMany(ctx context.Context, scores []*model.ScoreRecord) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]*model.ScoreRecord, error)
}

type scoreRepo struct {
	collection *mongo.Collection
}

func NewScoreRepo(db *mongo.Database) ScoreRepo {
	repo := &scoreRepo{
		collection: db.Collection("scores"),
	}
	createIndex(context.Background(), repo.collection, bson.D{
		{Key: "userId", Value: 1},
		{Key: "createdAt", Value: -1},
	}, false)
	return repo
}

func (r *scoreRepo) InsertMany(ctx context.Context, scores []*model.ScoreRecord) error {
	if len(scores) == 0 {
		return nil
	}
	docs := make([]interface{}, len(scores))
	for i, s := range scores {
		if s.ID == "" {
			s.ID = primitive.NewObjectID().Hex()
		}
		docs[i] = s
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

func (r *scoreRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.ScoreRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var scores []*model.ScoreRecord
	if err := cursor.All(ctx, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}
