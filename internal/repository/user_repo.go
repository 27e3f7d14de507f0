package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"snakearena/internal/model"
)

// ErrDuplicateUsername is returned when a username is already registered
var ErrDuplicateUsername = errors.New("username already taken")

type UserRepo interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// SetActive reports false when no user has the id
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

type userRepo struct {
	collection *mongo.Collection
}

func NewUserRepo(db *mongo.Database) UserRepo {
	repo := &userRepo{
		collection: db.Collection("users"),
	}
	createIndex(context.Background(), repo.collection, bson.D{{Key: "username", Value: 1}}, true)
	return repo
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	// Ids are stored as hex strings so they can travel in tokens unchanged
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}

	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *userRepo) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isActive": active}})
	if err != nil {
		return false, fmt.Errorf("failed to update user: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *userRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // User not found
		}
		return nil, err
	}
	return &user, nil
}
