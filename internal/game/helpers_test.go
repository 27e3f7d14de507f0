package game

import (
	"math/rand"
	"testing"
	"time"

	"snakearena/internal/model"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func profile(id string) *model.UserProfile {
	return &model.UserProfile{UserID: id, Username: id, DisplayName: "Player " + id, IsActive: true}
}

func newTestSession(t *testing.T, gridSize int, ids ...string) *Session {
	t.Helper()
	s := newSession("game-1", "ABCDEF", Settings{
		Mode:       DefaultMode,
		MaxPlayers: MaxPlayers,
		GridSize:   gridSize,
		Speed:      DefaultSpeed,
	}, rand.New(rand.NewSource(7)), func() time.Time { return testNow })
	for i, id := range ids {
		s.addPlayer(profile(id), i)
	}
	return s
}

// place puts a player's snake at body (head first) heading dir
func place(s *Session, id string, dir model.Direction, body ...model.Position) {
	p := s.players[id]
	p.state.SnakePositions = append([]model.Position(nil), body...)
	p.state.Direction = dir
	p.next = dir
}

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.newRand = func() *rand.Rand { return rand.New(rand.NewSource(1)) }
	r.now = func() time.Time { return testNow }
	return r
}

func noopEmit(string, any) {}

type emitted struct {
	msgType string
	payload any
}

func recorder(out *[]emitted) Emitter {
	return func(msgType string, payload any) {
		*out = append(*out, emitted{msgType: msgType, payload: payload})
	}
}

func pos(x, y int) model.Position {
	return model.Position{X: x, Y: y}
}
