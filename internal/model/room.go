package model

import "time"

// RoomMeta is the public preview of a joinable room, cached in Redis
type RoomMeta struct {
	GameID         string     `json:"gameId"`
	RoomCode       string     `json:"roomCode"`
	Mode           string     `json:"mode"`
	Status         GameStatus `json:"status"`
	CurrentPlayers int        `json:"currentPlayers"`
	MaxPlayers     int        `json:"maxPlayers"`
	GridSize       int        `json:"gridSize"`
	CreatedAt      time.Time  `json:"createdAt"`
}
