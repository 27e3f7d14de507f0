package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"snakearena/internal/model"
	"snakearena/internal/repository"
	"snakearena/internal/service"
)

// Demo accounts for local play. Every password is "snakes123".
var demoUsers = []model.RegisterRequest{
	{Username: "alice", DisplayName: "Alice"},
	{Username: "bob", DisplayName: "Bob"},
	{Username: "carol", DisplayName: "Carol"},
	{Username: "dave", DisplayName: "Dave"},
}

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DATABASE")
	if dbName == "" {
		dbName = "snakearena"
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "seed"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	auth := service.NewAuthService(repository.NewUserRepo(client.Database(dbName)), secret)

	created := 0
	for _, u := range demoUsers {
		req := u
		req.Password = "snakes123"
		resp, err := auth.Register(ctx, &req)
		if errors.Is(err, service.ErrUsernameTaken) {
			log.Printf("User %s already exists, skipping", u.Username)
			continue
		}
		if err != nil {
			log.Fatalf("Failed to seed %s: %v", u.Username, err)
		}
		created++
		log.Printf("Seeded %s (%s)", u.Username, resp.UserID)
	}

	fmt.Printf("Seeded %d of %d demo users into %s\n", created, len(demoUsers), dbName)
}
