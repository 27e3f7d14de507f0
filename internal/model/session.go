package model

import "time"

// GameRecord is the persisted history of one multiplayer game
type GameRecord struct {
	ID         string         `json:"id" bson:"_id,omitempty"`
	GameID     string         `json:"gameId" bson:"gameId"`
	RoomCode   string         `json:"roomCode" bson:"roomCode"`
	Mode       string         `json:"mode" bson:"mode"`
	Status     GameStatus     `json:"status" bson:"status"`
	MaxPlayers int            `json:"maxPlayers" bson:"maxPlayers"`
	GridSize   int            `json:"gridSize" bson:"gridSize"`
	Speed      int            `json:"speed" bson:"speed"`
	Players    []PlayerResult `json:"players" bson:"players"`
	WinnerID   *string        `json:"winnerId,omitempty" bson:"winnerId,omitempty"`
	CreatedAt  time.Time      `json:"createdAt" bson:"createdAt"`
	StartedAt  *time.Time     `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
}

// GameResult is handed to the score collaborator when a game finishes
type GameResult struct {
	GameID     string
	RoomCode   string
	Mode       string
	WinnerID   *string
	Players    []PlayerResult
	FinishedAt time.Time
}
