package game

import "snakearena/internal/model"

// tick advances every live snake by one cell. It must be called with the
// session lock held and reports whether the game finished on this tick.
//
// Collisions are checked against the bodies as they were before the tick,
// in ascending player index order. Heads that target the same cell all die.
func (s *Session) tick() bool {
	players := s.playersByIndex()

	before := make(map[string][]model.Position, len(players))
	for _, p := range players {
		before[p.state.UserID] = append([]model.Position(nil), p.state.SnakePositions...)
	}

	targets := make(map[string]model.Position, len(players))
	contested := make(map[model.Position]int, len(players))
	for _, p := range players {
		if !p.state.IsAlive {
			continue
		}
		p.state.Direction = p.next
		head := p.state.SnakePositions[0]
		dx, dy := p.state.Direction.Vector()
		next := model.Position{X: head.X + dx, Y: head.Y + dy}
		targets[p.state.UserID] = next
		contested[next]++
	}

	for _, p := range players {
		next, ok := targets[p.state.UserID]
		if !ok {
			continue
		}

		if !s.inBounds(next) {
			p.state.IsAlive = false
			continue
		}
		if containsCell(before[p.state.UserID], next) {
			p.state.IsAlive = false
			continue
		}
		if hitsOther(before, p.state.UserID, next) {
			p.state.IsAlive = false
			continue
		}
		if contested[next] > 1 {
			p.state.IsAlive = false
			continue
		}

		p.state.SnakePositions = append([]model.Position{next}, p.state.SnakePositions...)

		if i := s.foodIndex(next); i >= 0 {
			s.food = append(s.food[:i], s.food[i+1:]...)
			p.state.Score += FoodReward
			s.addFood()
			continue
		}
		p.state.SnakePositions = p.state.SnakePositions[:len(p.state.SnakePositions)-1]
	}

	var alive []*player
	for _, p := range players {
		if p.state.IsAlive {
			alive = append(alive, p)
		}
	}
	if len(alive) > 1 {
		return false
	}

	now := s.now()
	s.status = model.GameFinished
	s.finishedAt = &now
	if len(alive) == 1 {
		winner := alive[0].state.UserID
		s.winnerID = &winner
	}
	return true
}

func (s *Session) inBounds(c model.Position) bool {
	g := s.settings.GridSize
	return c.X >= 0 && c.X < g && c.Y >= 0 && c.Y < g
}

func containsCell(body []model.Position, c model.Position) bool {
	for _, b := range body {
		if b == c {
			return true
		}
	}
	return false
}

func hitsOther(bodies map[string][]model.Position, self string, c model.Position) bool {
	for id, body := range bodies {
		if id == self {
			continue
		}
		if containsCell(body, c) {
			return true
		}
	}
	return false
}
