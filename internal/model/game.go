package model

import "time"

// GameStatus is the lifecycle state of a multiplayer game
type GameStatus string

const (
	GameWaiting   GameStatus = "waiting"
	GameCountdown GameStatus = "countdown"
	GamePlaying   GameStatus = "playing"
	GameFinished  GameStatus = "finished"
)

// GameState is the snapshot broadcast to every connection after a join and after every tick
type GameState struct {
	GameID        string           `json:"gameId"`
	Status        GameStatus       `json:"status"`
	Players       []PlayerState    `json:"players"`
	FoodPositions []Position       `json:"foodPositions"`
	PowerUps      []map[string]any `json:"powerUps"`
	Countdown     *int             `json:"countdown"`
	WinnerID      *string          `json:"winnerId"`
}

// GameInfo is the REST view of a game
type GameInfo struct {
	GameID         string           `json:"gameId"`
	Mode           string           `json:"mode"`
	Status         GameStatus       `json:"status"`
	RoomCode       string           `json:"roomCode"`
	MaxPlayers     int              `json:"maxPlayers"`
	CurrentPlayers int              `json:"currentPlayers"`
	Players        []PlayerState    `json:"players"`
	FoodPositions  []Position       `json:"foodPositions"`
	PowerUps       []map[string]any `json:"powerUps"`
	GridSize       int              `json:"gridSize"`
	Speed          int              `json:"speed"`
	WinnerID       *string          `json:"winnerId,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	StartedAt      *time.Time       `json:"startedAt,omitempty"`
	FinishedAt     *time.Time       `json:"finishedAt,omitempty"`
}

// GameOver is broadcast once when a game finishes
type GameOver struct {
	WinnerID    *string        `json:"winnerId"`
	FinalScores map[string]int `json:"finalScores"`
}

// CountdownTick is broadcast once per countdown step
type CountdownTick struct {
	Count int `json:"count"`
}

// PlayerLeft is broadcast when a member leaves a game
type PlayerLeft struct {
	UserID string `json:"userId"`
}

// ErrorNotice is sent before a connection is closed for a protocol violation
type ErrorNotice struct {
	Message string `json:"message"`
}

// PlayerAction is an inbound channel message
type PlayerAction struct {
	Action    string    `json:"action" msgpack:"action"`
	Direction Direction `json:"direction,omitempty" msgpack:"direction,omitempty"`
}

// Player action tags
const (
	ActionMove  = "move"
	ActionLeave = "leave"
	ActionStart = "start"
)

// CreateGameRequest is the request body for creating a game room
type CreateGameRequest struct {
	Mode       string `json:"mode"`
	MaxPlayers int    `json:"maxPlayers"`
	GridSize   int    `json:"gridSize"`
	Speed      int    `json:"speed"`
}

// CreateGameResponse is returned after a room is created
type CreateGameResponse struct {
	SessionID string    `json:"sessionId"`
	RoomCode  string    `json:"roomCode"`
	Game      *GameInfo `json:"game"`
}

// JoinGameRequest is the request body for joining by room code
type JoinGameRequest struct {
	RoomCode string `json:"roomCode"`
}

// JoinGameResponse is returned after joining a room
type JoinGameResponse struct {
	SessionID   string    `json:"sessionId"`
	PlayerIndex int       `json:"playerIndex"`
	Game        *GameInfo `json:"game"`
}

// CurrentGameResponse reports the caller's current game, if any
type CurrentGameResponse struct {
	InGame bool      `json:"inGame"`
	Game   *GameInfo `json:"game"`
}
