package model

// Outbound channel message types
const (
	MsgGameState  = "game_state"
	MsgCountdown  = "countdown"
	MsgGameOver   = "game_over"
	MsgPlayerLeft = "player_left"
	MsgError      = "error"
)
