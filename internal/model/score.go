package model

import "time"

// ScoreRecord is one player's result in one game
type ScoreRecord struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	UserID      string    `json:"userId" bson:"userId"`
	GameID      string    `json:"gameId" bson:"gameId"`
	Mode        string    `json:"mode" bson:"mode"`
	Score       int       `json:"score" bson:"score"`
	Won         bool      `json:"won" bson:"won"`
	Multiplayer bool      `json:"multiplayer" bson:"multiplayer"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}
