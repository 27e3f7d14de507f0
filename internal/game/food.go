package game

import "snakearena/internal/model"

const foodSpawnAttempts = 100

func (s *Session) occupiedCells() map[model.Position]struct{} {
	occupied := make(map[model.Position]struct{})
	for _, p := range s.players {
		for _, c := range p.state.SnakePositions {
			occupied[c] = struct{}{}
		}
	}
	for _, f := range s.food {
		occupied[f] = struct{}{}
	}
	return occupied
}

// spawnFood picks a random free cell, falling back to a scan of the grid
// after a bounded number of random draws. ok is false when no cell is free.
func (s *Session) spawnFood() (model.Position, bool) {
	occupied := s.occupiedCells()
	g := s.settings.GridSize

	for i := 0; i < foodSpawnAttempts; i++ {
		c := model.Position{X: s.rng.Intn(g), Y: s.rng.Intn(g)}
		if _, taken := occupied[c]; !taken {
			return c, true
		}
	}
	for y := 0; y < g; y++ {
		for x := 0; x < g; x++ {
			c := model.Position{X: x, Y: y}
			if _, taken := occupied[c]; !taken {
				return c, true
			}
		}
	}
	return model.Position{}, false
}

func (s *Session) addFood() bool {
	c, ok := s.spawnFood()
	if ok {
		s.food = append(s.food, c)
	}
	return ok
}

func (s *Session) foodIndex(c model.Position) int {
	for i, f := range s.food {
		if f == c {
			return i
		}
	}
	return -1
}
