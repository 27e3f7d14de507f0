package model

// Direction is a snake heading
type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// Valid reports whether d is one of the four cardinal headings
func (d Direction) Valid() bool {
	switch d {
	case DirUp, DirDown, DirLeft, DirRight:
		return true
	}
	return false
}

// Opposite returns the reverse heading
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	}
	return ""
}

// Vector returns the unit grid offset for the heading
func (d Direction) Vector() (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	}
	return 0, 0
}

// Position is a grid cell
type Position struct {
	X int `json:"x" bson:"x"`
	Y int `json:"y" bson:"y"`
}

// PlayerState is one participant inside a multiplayer game.
// SnakePositions[0] is the head.
type PlayerState struct {
	UserID         string     `json:"userId"`
	Username       string     `json:"username,omitempty"`
	DisplayName    string     `json:"displayName,omitempty"`
	AvatarURL      string     `json:"avatarUrl,omitempty"`
	PlayerIndex    int        `json:"playerIndex"`
	Score          int        `json:"score"`
	IsAlive        bool       `json:"isAlive"`
	SnakePositions []Position `json:"snakePositions"`
	Direction      Direction  `json:"direction"`
	Color          string     `json:"color"`
}

// PlayerResult is a player's final standing in a finished game
type PlayerResult struct {
	UserID      string `json:"userId" bson:"userId"`
	Username    string `json:"username,omitempty" bson:"username,omitempty"`
	PlayerIndex int    `json:"playerIndex" bson:"playerIndex"`
	Score       int    `json:"score" bson:"score"`
	IsAlive     bool   `json:"isAlive" bson:"isAlive"`
	Won         bool   `json:"won" bson:"won"`
}
